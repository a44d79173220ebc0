package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
	"github.com/pp-coaching/coaching-api/pkg/response"
)

type materialService interface {
	List(ctx context.Context, filter models.MaterialFilter) ([]models.StudyMaterial, error)
	Create(ctx context.Context, req dto.MaterialRequest, file *service.Upload) (*models.StudyMaterial, error)
	Update(ctx context.Context, id string, req dto.MaterialRequest, file *service.Upload) (*models.StudyMaterial, error)
	Delete(ctx context.Context, id string) error
}

// MaterialHandler exposes study materials.
type MaterialHandler struct {
	materials materialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials materialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// List godoc
// @Summary List study materials
// @Tags Materials
// @Produce json
// @Param class query string false "Class, compared by its digits"
// @Param subject query string false "Subject, case-insensitive"
// @Success 200 {object} response.Envelope
// @Router /materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	items, err := h.materials.List(c.Request.Context(), models.MaterialFilter{Class: c.Query("class"), Subject: c.Query("subject")})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "count", len(items))
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Publish study material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param subject formData string true "Subject"
// @Param class formData string true "Class"
// @Param url formData string false "External link when no file is sent"
// @Param file formData file false "Document"
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	req, upload, closeFile, err := bindMaterial(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	material, err := h.materials.Create(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// Update godoc
// @Summary Edit study material
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Material ID"
// @Success 200 {object} response.Envelope
// @Router /materials/{id} [put]
func (h *MaterialHandler) Update(c *gin.Context) {
	req, upload, closeFile, err := bindMaterial(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()

	material, err := h.materials.Update(c.Request.Context(), c.Param("id"), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, material, nil)
}

// Delete godoc
// @Summary Delete study material
// @Tags Materials
// @Param id path string true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// bindMaterial accepts either JSON or a multipart form carrying an optional file.
func bindMaterial(c *gin.Context) (dto.MaterialRequest, *service.Upload, func(), error) {
	var req dto.MaterialRequest
	noop := func() {}
	if err := c.ShouldBind(&req); err != nil {
		return req, nil, noop, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid material payload")
	}
	header, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return req, nil, noop, nil
		}
		return req, nil, noop, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file upload")
	}
	file, err := header.Open()
	if err != nil {
		return req, nil, noop, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable file")
	}
	return req, uploadFrom(header, file), func() { _ = file.Close() }, nil
}

func uploadFrom(header *multipart.FileHeader, r io.Reader) *service.Upload {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &service.Upload{Filename: header.Filename, ContentType: contentType, Size: header.Size, Reader: r}
}
