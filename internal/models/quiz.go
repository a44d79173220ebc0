package models

import "time"

// QuizQuestion is a multiple-choice question with four options.
type QuizQuestion struct {
	Question string   `json:"question" validate:"required"`
	Options  []string `json:"options" validate:"len=4,dive,required"`
	Answer   string   `json:"answer" validate:"required"`
}

// Quiz groups questions for a class and subject.
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Subject   string         `json:"subject"`
	Class     string         `json:"class"`
	Questions []QuizQuestion `json:"questions"`
	CreatedAt time.Time      `json:"created_at"`
}

// LiveQuiz points at the currently running embedded quiz form.
type LiveQuiz struct {
	FormLink  string    `json:"form_link"`
	UpdatedAt time.Time `json:"updated_at"`
}
