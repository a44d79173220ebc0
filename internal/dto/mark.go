package dto

import "github.com/pp-coaching/coaching-api/internal/models"

// CreateMarkRequest records one result for an active student.
type CreateMarkRequest struct {
	StudentID     string          `json:"student_id" validate:"required"`
	Subject       string          `json:"subject" validate:"required,max=80"`
	ExamType      models.ExamType `json:"exam_type" validate:"required,oneof=exam test"`
	ExamName      string          `json:"exam_name" validate:"required,max=120"`
	MarksObtained float64         `json:"marks_obtained" validate:"gte=0,ltefield=TotalMarks"`
	TotalMarks    float64         `json:"total_marks" validate:"gt=0"`
	ExamDate      *string         `json:"exam_date" validate:"omitempty,datetime=2006-01-02"`
}
