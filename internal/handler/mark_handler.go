package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type markService interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
	Create(ctx context.Context, req dto.CreateMarkRequest) (*models.Mark, error)
	Delete(ctx context.Context, id string) error
	ExportCSV(ctx context.Context, studentID string) ([]byte, string, error)
}

// MarkHandler exposes exam and test results.
type MarkHandler struct {
	marks markService
}

// NewMarkHandler constructs MarkHandler.
func NewMarkHandler(marks markService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// ListByStudent godoc
// @Summary List a student's marks
// @Tags Marks
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/marks [get]
func (h *MarkHandler) ListByStudent(c *gin.Context) {
	marks, err := h.marks.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// Create godoc
// @Summary Record a mark
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body dto.CreateMarkRequest true "Mark"
// @Success 201 {object} response.Envelope
// @Router /marks [post]
func (h *MarkHandler) Create(c *gin.Context) {
	var req dto.CreateMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}
	mark, err := h.marks.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// Delete godoc
// @Summary Delete a mark
// @Tags Marks
// @Param id path string true "Mark ID"
// @Success 204
// @Router /marks/{id} [delete]
func (h *MarkHandler) Delete(c *gin.Context) {
	if err := h.marks.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a student's marks
// @Tags Marks
// @Produce text/csv
// @Param id path string true "Student ID"
// @Success 200 {file} file
// @Router /students/{id}/marks/export [get]
func (h *MarkHandler) Export(c *gin.Context) {
	data, filename, err := h.marks.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "text/csv; charset=utf-8", data)
}
