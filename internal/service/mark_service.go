package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/export"
)

type markRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
	FindByID(ctx context.Context, id string) (*models.Mark, error)
	Create(ctx context.Context, mark *models.Mark) error
	Delete(ctx context.Context, id string) error
}

type studentFinder interface {
	FindByID(ctx context.Context, id string) (*models.ActiveStudent, error)
}

// MarkService records exam and test results for active students.
type MarkService struct {
	repo      markRepository
	students  studentFinder
	exporter  *export.CSVExporter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMarkService constructs MarkService.
func NewMarkService(repo markRepository, students studentFinder, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{repo: repo, students: students, exporter: export.NewCSVExporter(), validator: validate, logger: logger}
}

// ListByStudent returns a student's marks, newest first.
func (s *MarkService) ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error) {
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	marks, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list marks")
	}
	return marks, nil
}

// Create records a result for an existing student.
func (s *MarkService) Create(ctx context.Context, req dto.CreateMarkRequest) (*models.Mark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	if _, err := s.student(ctx, req.StudentID); err != nil {
		return nil, err
	}
	mark := &models.Mark{
		StudentID:     req.StudentID,
		Subject:       strings.TrimSpace(req.Subject),
		ExamType:      req.ExamType,
		ExamName:      strings.TrimSpace(req.ExamName),
		MarksObtained: req.MarksObtained,
		TotalMarks:    req.TotalMarks,
		ExamDate:      req.ExamDate,
	}
	if err := s.repo.Create(ctx, mark); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to record mark")
	}
	return mark, nil
}

// Delete removes a mark.
func (s *MarkService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "mark not found")
		}
		return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load mark")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to delete mark")
	}
	return nil
}

// ExportCSV renders a student's marks and returns the attachment file name.
func (s *MarkService) ExportCSV(ctx context.Context, studentID string) ([]byte, string, error) {
	student, err := s.student(ctx, studentID)
	if err != nil {
		return nil, "", err
	}
	marks, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, "", appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to list marks")
	}
	data := export.Dataset{Headers: []string{"Subject", "Type", "Exam", "Marks Obtained", "Total Marks", "Percentage", "Exam Date"}}
	for _, m := range marks {
		date := ""
		if m.ExamDate != nil {
			date = *m.ExamDate
		}
		data.AddRow(m.Subject, string(m.ExamType), m.ExamName, formatScore(m.MarksObtained), formatScore(m.TotalMarks), percentage(m), date)
	}
	out, err := s.exporter.Render(data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render marks csv")
	}
	return out, fmt.Sprintf("marks_%s.csv", student.LoginID), nil
}

func (s *MarkService) student(ctx context.Context, id string) (*models.ActiveStudent, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrStoreUnavailable, "failed to load student")
	}
	return student, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percentage(m models.Mark) string {
	if m.TotalMarks <= 0 {
		return ""
	}
	return strconv.FormatFloat(m.MarksObtained/m.TotalMarks*100, 'f', 1, 64)
}
