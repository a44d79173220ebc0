package models

import "time"

// ExamType distinguishes term exams from class tests.
type ExamType string

const (
	ExamTypeExam ExamType = "exam"
	ExamTypeTest ExamType = "test"
)

// Mark is a single exam or test result for an active student.
type Mark struct {
	ID            string    `db:"id" json:"id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	Subject       string    `db:"subject" json:"subject"`
	ExamType      ExamType  `db:"exam_type" json:"exam_type"`
	ExamName      string    `db:"exam_name" json:"exam_name"`
	MarksObtained float64   `db:"marks_obtained" json:"marks_obtained"`
	TotalMarks    float64   `db:"total_marks" json:"total_marks"`
	ExamDate      *string   `db:"exam_date" json:"exam_date,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
