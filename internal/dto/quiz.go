package dto

import "github.com/pp-coaching/coaching-api/internal/models"

// CreateQuizRequest creates a quiz with its questions.
type CreateQuizRequest struct {
	Title     string                `json:"title" validate:"required,max=200"`
	Subject   string                `json:"subject" validate:"required,max=80"`
	Class     string                `json:"class" validate:"required,max=40"`
	Questions []models.QuizQuestion `json:"questions" validate:"required,min=1,dive"`
}

// SetLiveQuizRequest points the live quiz at an embedded form.
type SetLiveQuizRequest struct {
	FormLink string `json:"form_link" validate:"required,url,startswith=http"`
}
