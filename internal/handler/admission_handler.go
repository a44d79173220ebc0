package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type admissionService interface {
	Create(ctx context.Context, req dto.CreateAdmissionRequest) (*models.AdmissionInquiry, error)
	UploadPhoto(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*dto.PhotoUploadResponse, error)
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AdmissionInquiry, error)
	Update(ctx context.Context, id string, req dto.UpdateAdmissionRequest, meta service.AuditMeta) (*models.AdmissionInquiry, error)
	Purge(ctx context.Context, id string, meta service.AuditMeta) error
	FormPDF(ctx context.Context, id string) ([]byte, string, error)
}

// AdmissionHandler exposes the intake form and inquiry management.
type AdmissionHandler struct {
	admissions admissionService
}

// NewAdmissionHandler constructs AdmissionHandler.
func NewAdmissionHandler(admissions admissionService) *AdmissionHandler {
	return &AdmissionHandler{admissions: admissions}
}

// Create godoc
// @Summary Submit admission form
// @Tags Admissions
// @Accept json
// @Produce json
// @Param payload body dto.CreateAdmissionRequest true "Admission form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admissions [post]
func (h *AdmissionHandler) Create(c *gin.Context) {
	var req dto.CreateAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admission form"))
		return
	}
	inquiry, err := h.admissions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inquiry)
}

// UploadPhoto godoc
// @Summary Upload admission photo
// @Tags Admissions
// @Accept multipart/form-data
// @Produce json
// @Param photo formData file true "Student photo"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admissions/photo [post]
func (h *AdmissionHandler) UploadPhoto(c *gin.Context) {
	header, err := c.FormFile("photo")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "photo file required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable photo"))
		return
	}
	defer file.Close()

	res, err := h.admissions.UploadPhoto(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// List godoc
// @Summary List admission inquiries
// @Tags Admissions
// @Produce json
// @Param status query string false "pending or enrolled"
// @Param class query string false "Class"
// @Param search query string false "Search by name, phone or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admissions [get]
func (h *AdmissionHandler) List(c *gin.Context) {
	filter := models.AdmissionFilter{
		Status:    models.AdmissionStatus(strings.ToLower(c.Query("status"))),
		Class:     strings.TrimSpace(c.Query("class")),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	inquiries, pagination, err := h.admissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiries, pagination)
}

// Get godoc
// @Summary Get admission inquiry
// @Tags Admissions
// @Produce json
// @Param id path string true "Inquiry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admissions/{id} [get]
func (h *AdmissionHandler) Get(c *gin.Context) {
	inquiry, err := h.admissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiry, nil)
}

// Update godoc
// @Summary Edit admission inquiry
// @Tags Admissions
// @Accept json
// @Produce json
// @Param id path string true "Inquiry ID"
// @Param payload body dto.UpdateAdmissionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admissions/{id} [patch]
func (h *AdmissionHandler) Update(c *gin.Context) {
	var req dto.UpdateAdmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	inquiry, err := h.admissions.Update(c.Request.Context(), c.Param("id"), req, middleware.AuditMetaFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiry, nil)
}

// Purge godoc
// @Summary Purge admission inquiry
// @Tags Admissions
// @Param id path string true "Inquiry ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admissions/{id} [delete]
func (h *AdmissionHandler) Purge(c *gin.Context) {
	if err := h.admissions.Purge(c.Request.Context(), c.Param("id"), middleware.AuditMetaFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FormPDF godoc
// @Summary Download admission form
// @Tags Admissions
// @Produce application/pdf
// @Param id path string true "Inquiry ID"
// @Success 200 {file} file
// @Router /admissions/{id}/pdf [get]
func (h *AdmissionHandler) FormPDF(c *gin.Context) {
	data, filename, err := h.admissions.FormPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, "application/pdf", data)
}
