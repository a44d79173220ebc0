package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pp-coaching/coaching-api/internal/models"
)

const markColumns = `id, student_id, subject, exam_type, exam_name, marks_obtained, total_marks, exam_date, created_at`

// MarkRepository manages exam and test results.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository constructs a MarkRepository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// ListByStudent returns a student's marks, newest first.
func (r *MarkRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error) {
	query := fmt.Sprintf("SELECT %s FROM marks WHERE student_id = $1 ORDER BY created_at DESC", markColumns)
	marks := make([]models.Mark, 0)
	if err := r.db.SelectContext(ctx, &marks, query, studentID); err != nil {
		return nil, fmt.Errorf("list marks: %w", err)
	}
	return marks, nil
}

// FindByID fetches a single mark. sql.ErrNoRows is returned unwrapped when absent.
func (r *MarkRepository) FindByID(ctx context.Context, id string) (*models.Mark, error) {
	query := fmt.Sprintf("SELECT %s FROM marks WHERE id = $1", markColumns)
	var mark models.Mark
	if err := r.db.GetContext(ctx, &mark, query, id); err != nil {
		return nil, err
	}
	return &mark, nil
}

// Create records a mark.
func (r *MarkRepository) Create(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO marks (%s) VALUES (:id, :student_id, :subject, :exam_type, :exam_name, :marks_obtained, :total_marks, :exam_date, :created_at)`, markColumns)
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("create mark: %w", err)
	}
	return nil
}

// Delete removes a mark.
func (r *MarkRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM marks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete mark: %w", err)
	}
	return nil
}
