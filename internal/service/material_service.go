package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/pkg/docstore"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/storage"
)

const materialFolder = "materials"

type materialRepository interface {
	List() ([]models.StudyMaterial, error)
	FindByID(id string) (*models.StudyMaterial, error)
	Save(material *models.StudyMaterial) error
	Delete(id string) error
}

// Upload is a file received alongside a form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// MaterialService publishes study materials.
type MaterialService struct {
	repo      materialRepository
	files     storage.ObjectStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	maxBytes  int64
}

// NewMaterialService constructs MaterialService.
func NewMaterialService(repo materialRepository, files storage.ObjectStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger, maxBytes int64) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &MaterialService{repo: repo, files: files, cache: cache, validator: validate, logger: logger, maxBytes: maxBytes}
}

// List returns materials matching the filter. Class compares by digits, subject ignores case.
func (s *MaterialService) List(ctx context.Context, filter models.MaterialFilter) ([]models.StudyMaterial, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return filterMaterials(all, filter), nil
}

// ForStudent returns the materials published for the student's class.
func (s *MaterialService) ForStudent(ctx context.Context, student *models.ActiveStudent, subject string) ([]models.StudyMaterial, error) {
	if student == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if credential.NormalizeClass(student.Class) == "" {
		return []models.StudyMaterial{}, nil
	}
	return s.List(ctx, models.MaterialFilter{Class: student.Class, Subject: subject})
}

// Create publishes a material from an uploaded file or an external link.
func (s *MaterialService) Create(ctx context.Context, req dto.MaterialRequest, file *Upload) (*models.StudyMaterial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if file == nil && req.URL == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "either a file or a url is required")
	}
	material := &models.StudyMaterial{
		ID:      uuid.NewString(),
		Title:   strings.TrimSpace(req.Title),
		Subject: strings.TrimSpace(req.Subject),
		Class:   strings.TrimSpace(req.Class),
		URL:     req.URL,
	}
	if file != nil {
		key, url, err := s.store(ctx, file)
		if err != nil {
			return nil, err
		}
		material.StorageKey, material.URL = key, url
	}
	if err := s.repo.Save(material); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to save material")
	}
	s.invalidate(ctx)
	s.logger.Info("material published", zap.String("material_id", material.ID), zap.String("class", material.Class))
	return material, nil
}

// Update edits a material. A new file replaces the stored one.
func (s *MaterialService) Update(ctx context.Context, id string, req dto.MaterialRequest, file *Upload) (*models.StudyMaterial, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	material, err := s.find(id)
	if err != nil {
		return nil, err
	}
	previousKey := material.StorageKey
	material.Title = strings.TrimSpace(req.Title)
	material.Subject = strings.TrimSpace(req.Subject)
	material.Class = strings.TrimSpace(req.Class)
	switch {
	case file != nil:
		key, url, err := s.store(ctx, file)
		if err != nil {
			return nil, err
		}
		material.StorageKey, material.URL = key, url
	case req.URL != "":
		material.StorageKey, material.URL = "", req.URL
	}
	now := time.Now().UTC()
	material.UpdatedAt = &now
	if err := s.repo.Save(material); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to save material")
	}
	if previousKey != "" && previousKey != material.StorageKey {
		s.removeFile(ctx, previousKey)
	}
	s.invalidate(ctx)
	return material, nil
}

// Delete removes a material and its stored file.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	material, err := s.find(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to delete material")
	}
	if material.StorageKey != "" {
		s.removeFile(ctx, material.StorageKey)
	}
	s.invalidate(ctx)
	return nil
}

func (s *MaterialService) all(ctx context.Context) ([]models.StudyMaterial, error) {
	key := cacheKeyMaterials + "all"
	var cached []models.StudyMaterial
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	items, err := s.repo.List()
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list materials")
	}
	if items == nil {
		items = []models.StudyMaterial{}
	}
	_ = s.cache.Set(ctx, key, items, 0)
	return items, nil
}

func (s *MaterialService) find(id string) (*models.StudyMaterial, error) {
	material, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load material")
	}
	return material, nil
}

func (s *MaterialService) store(ctx context.Context, file *Upload) (string, string, error) {
	if s.files == nil {
		return "", "", appErrors.Clone(appErrors.ErrInternal, "file storage not configured")
	}
	if file.Size > s.maxBytes {
		return "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	key := storage.NewKey(materialFolder, file.Filename)
	if err := s.files.Put(ctx, key, io.LimitReader(file.Reader, s.maxBytes), file.ContentType); err != nil {
		return "", "", appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to store material file")
	}
	url, err := s.files.URL(key)
	if err != nil {
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve material url")
	}
	return key, url, nil
}

func (s *MaterialService) removeFile(ctx context.Context, key string) {
	if s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove material file", zap.String("key", key), zap.Error(err))
	}
}

func (s *MaterialService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, cacheKeyMaterials+"*")
}

func filterMaterials(items []models.StudyMaterial, filter models.MaterialFilter) []models.StudyMaterial {
	class := credential.NormalizeClass(filter.Class)
	subject := strings.TrimSpace(filter.Subject)
	out := make([]models.StudyMaterial, 0, len(items))
	for _, item := range items {
		if filter.Class != "" && credential.NormalizeClass(item.Class) != class {
			continue
		}
		if subject != "" && !strings.EqualFold(strings.TrimSpace(item.Subject), subject) {
			continue
		}
		out = append(out, item)
	}
	return out
}
