package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/pkg/docstore"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type quizRepository interface {
	List() ([]models.Quiz, error)
	FindByID(id string) (*models.Quiz, error)
	Save(quiz *models.Quiz) error
	Delete(id string) error
	GetLive() (*models.LiveQuiz, error)
	SetLive(live *models.LiveQuiz) error
}

// QuizService manages quizzes and the live quiz link.
type QuizService struct {
	repo      quizRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuizService constructs QuizService.
func NewQuizService(repo quizRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *QuizService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every quiz, newest first.
func (s *QuizService) List(ctx context.Context) ([]models.Quiz, error) {
	key := cacheKeyQuizzes + "all"
	var cached []models.Quiz
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	quizzes, err := s.repo.List()
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list quizzes")
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	_ = s.cache.Set(ctx, key, quizzes, 0)
	return quizzes, nil
}

// Create stores a quiz. Every answer must be one of its question's options.
func (s *QuizService) Create(ctx context.Context, req dto.CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}
	for i, q := range req.Questions {
		if !containsOption(q.Options, q.Answer) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("answer of question %d is not one of its options", i+1))
		}
	}
	quiz := &models.Quiz{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Subject:   strings.TrimSpace(req.Subject),
		Class:     strings.TrimSpace(req.Class),
		Questions: req.Questions,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(quiz); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to save quiz")
	}
	_ = s.cache.Invalidate(ctx, cacheKeyQuizzes+"*")
	s.logger.Info("quiz created", zap.String("quiz_id", quiz.ID), zap.Int("questions", len(quiz.Questions)))
	return quiz, nil
}

// Delete removes a quiz.
func (s *QuizService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to delete quiz")
	}
	_ = s.cache.Invalidate(ctx, cacheKeyQuizzes+"*")
	return nil
}

// Live returns the current live quiz link.
func (s *QuizService) Live(ctx context.Context) (*models.LiveQuiz, error) {
	var cached models.LiveQuiz
	if hit, _ := s.cache.Get(ctx, cacheKeyLiveQuiz, &cached); hit {
		return &cached, nil
	}
	live, err := s.repo.GetLive()
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no live quiz")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load live quiz")
	}
	_ = s.cache.Set(ctx, cacheKeyLiveQuiz, live, 0)
	return live, nil
}

// SetLive points the live quiz at an absolute http(s) form link.
func (s *QuizService) SetLive(ctx context.Context, req dto.SetLiveQuizRequest) (*models.LiveQuiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid live quiz link")
	}
	parsed, err := url.Parse(strings.TrimSpace(req.FormLink))
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "form link must be an absolute http(s) url")
	}
	live := &models.LiveQuiz{FormLink: parsed.String(), UpdatedAt: time.Now().UTC()}
	if err := s.repo.SetLive(live); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to save live quiz")
	}
	_ = s.cache.Invalidate(ctx, cacheKeyLiveQuiz)
	return live, nil
}

func containsOption(options []string, answer string) bool {
	for _, option := range options {
		if option == answer {
			return true
		}
	}
	return false
}
