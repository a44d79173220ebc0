package repository

import (
	"fmt"
	"time"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/pkg/docstore"
)

// MaterialRepository keeps study materials in the document store.
type MaterialRepository struct {
	store *docstore.Store
}

// NewMaterialRepository constructs a MaterialRepository.
func NewMaterialRepository(store *docstore.Store) *MaterialRepository {
	return &MaterialRepository{store: store}
}

// List returns every material, newest upload first.
func (r *MaterialRepository) List() ([]models.StudyMaterial, error) {
	items, err := docstore.List(r.store, docstore.BucketMaterials, func(a, b models.StudyMaterial) bool {
		return a.UploadedAt.After(b.UploadedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return items, nil
}

// FindByID fetches a material. docstore.ErrNotFound is returned unwrapped when absent.
func (r *MaterialRepository) FindByID(id string) (*models.StudyMaterial, error) {
	return docstore.Get[models.StudyMaterial](r.store, docstore.BucketMaterials, id)
}

// Save creates or replaces a material.
func (r *MaterialRepository) Save(material *models.StudyMaterial) error {
	if material.UploadedAt.IsZero() {
		material.UploadedAt = time.Now().UTC()
	}
	if err := docstore.Put(r.store, docstore.BucketMaterials, material.ID, material); err != nil {
		return fmt.Errorf("save material: %w", err)
	}
	return nil
}

// Delete removes a material. docstore.ErrNotFound is returned unwrapped when absent.
func (r *MaterialRepository) Delete(id string) error {
	return docstore.Delete(r.store, docstore.BucketMaterials, id)
}
