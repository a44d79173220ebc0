package repository

import (
	"fmt"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/pkg/docstore"
)

const liveQuizKey = "current"

// QuizRepository keeps quizzes and the live quiz link in the document store.
type QuizRepository struct {
	store *docstore.Store
}

// NewQuizRepository constructs a QuizRepository.
func NewQuizRepository(store *docstore.Store) *QuizRepository {
	return &QuizRepository{store: store}
}

// List returns every quiz, newest first.
func (r *QuizRepository) List() ([]models.Quiz, error) {
	items, err := docstore.List(r.store, docstore.BucketQuizzes, func(a, b models.Quiz) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	return items, nil
}

// FindByID fetches a quiz.
func (r *QuizRepository) FindByID(id string) (*models.Quiz, error) {
	return docstore.Get[models.Quiz](r.store, docstore.BucketQuizzes, id)
}

// Save creates or replaces a quiz.
func (r *QuizRepository) Save(quiz *models.Quiz) error {
	if err := docstore.Put(r.store, docstore.BucketQuizzes, quiz.ID, quiz); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

// Delete removes a quiz.
func (r *QuizRepository) Delete(id string) error {
	return docstore.Delete(r.store, docstore.BucketQuizzes, id)
}

// GetLive returns the live quiz link. docstore.ErrNotFound means none has been set.
func (r *QuizRepository) GetLive() (*models.LiveQuiz, error) {
	return docstore.Get[models.LiveQuiz](r.store, docstore.BucketLiveQuiz, liveQuizKey)
}

// SetLive replaces the live quiz link.
func (r *QuizRepository) SetLive(live *models.LiveQuiz) error {
	if err := docstore.Put(r.store, docstore.BucketLiveQuiz, liveQuizKey, live); err != nil {
		return fmt.Errorf("save live quiz: %w", err)
	}
	return nil
}
