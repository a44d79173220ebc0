package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type quizService interface {
	List(ctx context.Context) ([]models.Quiz, error)
	Create(ctx context.Context, req dto.CreateQuizRequest) (*models.Quiz, error)
	Delete(ctx context.Context, id string) error
	Live(ctx context.Context) (*models.LiveQuiz, error)
	SetLive(ctx context.Context, req dto.SetLiveQuizRequest) (*models.LiveQuiz, error)
}

// QuizHandler exposes quizzes and the live quiz link.
type QuizHandler struct {
	quizzes quizService
}

// NewQuizHandler constructs QuizHandler.
func NewQuizHandler(quizzes quizService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes}
}

// List godoc
// @Summary List quizzes
// @Tags Quizzes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /quizzes [get]
func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.quizzes.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(quizzes))
	response.JSON(c, http.StatusOK, quizzes, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create quiz
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param payload body dto.CreateQuizRequest true "Quiz"
// @Success 201 {object} response.Envelope
// @Router /quizzes [post]
func (h *QuizHandler) Create(c *gin.Context) {
	var req dto.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quiz payload"))
		return
	}
	quiz, err := h.quizzes.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, quiz)
}

// Delete godoc
// @Summary Delete quiz
// @Tags Quizzes
// @Param id path string true "Quiz ID"
// @Success 204
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) Delete(c *gin.Context) {
	if err := h.quizzes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Live godoc
// @Summary Current live quiz
// @Tags Quizzes
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /live-quiz [get]
func (h *QuizHandler) Live(c *gin.Context) {
	live, err := h.quizzes.Live(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, live, nil)
}

// SetLive godoc
// @Summary Set live quiz link
// @Tags Quizzes
// @Accept json
// @Produce json
// @Param payload body dto.SetLiveQuizRequest true "Form link"
// @Success 200 {object} response.Envelope
// @Router /live-quiz [put]
func (h *QuizHandler) SetLive(c *gin.Context) {
	var req dto.SetLiveQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid live quiz payload"))
		return
	}
	live, err := h.quizzes.SetLive(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, live, nil)
}
