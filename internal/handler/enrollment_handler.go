package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, inquiryID string, meta service.AuditMeta) (*models.EnrollResult, error)
	EnrollAll(ctx context.Context, meta service.AuditMeta) (*models.BatchEnrollResult, error)
	Unenroll(ctx context.Context, studentID string, meta service.AuditMeta) (*models.ActiveStudent, error)
}

type credentialSlipRenderer interface {
	CredentialSlipPDF(result *models.EnrollResult) ([]byte, string, error)
}

// EnrollmentHandler turns inquiries into active students and back.
type EnrollmentHandler struct {
	enrollments enrollmentService
	slips       credentialSlipRenderer
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, slips credentialSlipRenderer) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, slips: slips}
}

// Enroll godoc
// @Summary Enroll an admission inquiry
// @Description Issues portal credentials. The password is returned once; pass format=pdf for a printable slip.
// @Tags Enrollment
// @Produce json,application/pdf
// @Param id path string true "Inquiry ID"
// @Param format query string false "json or pdf"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /admissions/{id}/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	result, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"), middleware.AuditMetaFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if c.Query("format") == "pdf" && h.slips != nil {
		data, filename, err := h.slips.CredentialSlipPDF(result)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Attachment(c, filename, "application/pdf", data)
		return
	}
	response.Created(c, result)
}

// EnrollAll godoc
// @Summary Enroll every pending inquiry
// @Description Continues past individual failures and reports each of them
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admissions/enroll-all [post]
func (h *EnrollmentHandler) EnrollAll(c *gin.Context) {
	result, err := h.enrollments.EnrollAll(c.Request.Context(), middleware.AuditMetaFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unenroll godoc
// @Summary Remove an active student
// @Description Deletes the student and returns the linked inquiry to pending. The login id is never reissued.
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if _, err := h.enrollments.Unenroll(c.Request.Context(), c.Param("id"), middleware.AuditMetaFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
