package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type portalMarks interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Mark, error)
}

type portalMaterials interface {
	ForStudent(ctx context.Context, student *models.ActiveStudent, subject string) ([]models.StudyMaterial, error)
}

// StudentPortalHandler serves the signed-in student's own data.
type StudentPortalHandler struct {
	marks     portalMarks
	materials portalMaterials
}

// NewStudentPortalHandler constructs StudentPortalHandler.
func NewStudentPortalHandler(marks portalMarks, materials portalMaterials) *StudentPortalHandler {
	return &StudentPortalHandler{marks: marks, materials: materials}
}

// Login godoc
// @Summary Student sign-in
// @Description Signs a student in with the issued login id and the date of birth as DDMMYYYY
// @Tags Student Portal
// @Accept json
// @Produce json
// @Param payload body models.StudentLoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /student/login [post]
func (h *StudentPortalHandler) Login(c *gin.Context) {
	var req models.StudentLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	resolver := middleware.ResolverFrom(c)
	if resolver == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session middleware not installed"))
		return
	}

	student, err := resolver.StudentLogin(c.Request.Context(), strings.TrimSpace(req.LoginID), strings.TrimSpace(req.Password))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dto.StudentLoginResponse{LoginID: student.LoginID, Name: student.Name, Class: student.Class}, nil)
}

// Logout godoc
// @Summary Student sign-out
// @Tags Student Portal
// @Success 204
// @Router /student/logout [post]
func (h *StudentPortalHandler) Logout(c *gin.Context) {
	resolver := middleware.ResolverFrom(c)
	if resolver == nil {
		response.NoContent(c)
		return
	}
	if err := resolver.StudentLogout(); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current student
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /student/me [get]
func (h *StudentPortalHandler) Me(c *gin.Context) {
	student := middleware.StudentFrom(c)
	if student == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Marks godoc
// @Summary Own marks
// @Description Lists the signed-in student's marks, newest first
// @Tags Student Portal
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/marks [get]
func (h *StudentPortalHandler) Marks(c *gin.Context) {
	student := middleware.StudentFrom(c)
	if student == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	marks, err := h.marks.ListByStudent(c.Request.Context(), student.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}

// Materials godoc
// @Summary Materials for my class
// @Tags Student Portal
// @Produce json
// @Param subject query string false "Subject, case-insensitive"
// @Success 200 {object} response.Envelope
// @Router /student/materials [get]
func (h *StudentPortalHandler) Materials(c *gin.Context) {
	student := middleware.StudentFrom(c)
	if student == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.materials.ForStudent(c.Request.Context(), student, c.Query("subject"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
