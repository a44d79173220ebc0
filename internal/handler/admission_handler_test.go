package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type admissionServiceMock struct {
	created     *dto.CreateAdmissionRequest
	createErr   error
	lastFilter  models.AdmissionFilter
	updateID    string
	updateReq   dto.UpdateAdmissionRequest
	updateMeta  service.AuditMeta
	updateErr   error
	purged      string
	photoName   string
	photoType   string
	photoData   []byte
	pdfFilename string
}

func (m *admissionServiceMock) Create(ctx context.Context, req dto.CreateAdmissionRequest) (*models.AdmissionInquiry, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = &req
	return &models.AdmissionInquiry{ID: "inq-1", StudentName: req.StudentName, Status: models.AdmissionStatusPending}, nil
}

func (m *admissionServiceMock) UploadPhoto(ctx context.Context, filename, contentType string, size int64, r io.Reader) (*dto.PhotoUploadResponse, error) {
	m.photoName, m.photoType = filename, contentType
	m.photoData, _ = io.ReadAll(r)
	return &dto.PhotoUploadResponse{PhotoKey: "admissions/photos/" + filename, PhotoURL: "https://files.example.com/p"}, nil
}

func (m *admissionServiceMock) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.AdmissionInquiry{{ID: "inq-1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *admissionServiceMock) Get(ctx context.Context, id string) (*models.AdmissionInquiry, error) {
	if id != "inq-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "inquiry not found")
	}
	return &models.AdmissionInquiry{ID: id}, nil
}

func (m *admissionServiceMock) Update(ctx context.Context, id string, req dto.UpdateAdmissionRequest, meta service.AuditMeta) (*models.AdmissionInquiry, error) {
	m.updateID, m.updateReq, m.updateMeta = id, req, meta
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.AdmissionInquiry{ID: id}, nil
}

func (m *admissionServiceMock) Purge(ctx context.Context, id string, meta service.AuditMeta) error {
	m.purged = id
	return nil
}

func (m *admissionServiceMock) FormPDF(ctx context.Context, id string) ([]byte, string, error) {
	m.pdfFilename = "admission_asha_singh.pdf"
	return []byte("%PDF-1.3"), m.pdfFilename, nil
}

func TestAdmissionHandlerCreate(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodPost, "/admissions", jsonBody(t, map[string]interface{}{
		"student_name":   "Asha Singh",
		"dob":            "2011-07-21",
		"contact_number": "9876543210",
		"class":          "Class 9",
	}))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Asha Singh", svc.created.StudentName)
}

func TestAdmissionHandlerCreateMalformedBody(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodPost, "/admissions", strings.NewReader(`{"student_name":`))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
}

func TestAdmissionHandlerCreateServiceValidation(t *testing.T) {
	svc := &admissionServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "contact number must have 10 digits")}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodPost, "/admissions", jsonBody(t, map[string]string{"student_name": "A"}))
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmissionHandlerUploadPhoto(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("photo", "asha.jpg")
	require.NoError(t, err)
	_, _ = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, writer.Close())

	c, w := newTestContext(http.MethodPost, "/admissions/photo", &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	h.UploadPhoto(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "asha.jpg", svc.photoName)
	assert.Equal(t, []byte("jpeg-bytes"), svc.photoData)
}

func TestAdmissionHandlerUploadPhotoMissingFile(t *testing.T) {
	h := NewAdmissionHandler(&admissionServiceMock{})

	c, w := newTestContext(http.MethodPost, "/admissions/photo", jsonBody(t, map[string]string{}))
	h.UploadPhoto(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmissionHandlerListParsesQuery(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodGet, "/admissions?status=PENDING&search=%20asha%20&page=2&limit=5", nil)
	asAdmin(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AdmissionStatusPending, svc.lastFilter.Status)
	assert.Equal(t, "asha", svc.lastFilter.Search)
	assert.Equal(t, 2, svc.lastFilter.Page)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
}

func TestAdmissionHandlerGetNotFound(t *testing.T) {
	h := NewAdmissionHandler(&admissionServiceMock{})

	c, w := newTestContext(http.MethodGet, "/admissions/missing", nil)
	c.Params = append(c.Params, ginParam("id", "missing"))
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmissionHandlerUpdateCarriesAuditMeta(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodPatch, "/admissions/inq-1", jsonBody(t, map[string]string{"class": "Class 10"}))
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	asAdmin(c)
	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inq-1", svc.updateID)
	require.NotNil(t, svc.updateReq.Class)
	assert.Equal(t, "Class 10", *svc.updateReq.Class)
	assert.Equal(t, "admin-1", svc.updateMeta.UserID)
}

func TestAdmissionHandlerUpdateConflict(t *testing.T) {
	svc := &admissionServiceMock{updateErr: appErrors.Clone(appErrors.ErrConflict, "login id still held by an active student")}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodPatch, "/admissions/inq-1", jsonBody(t, map[string]string{"status": "pending"}))
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	asAdmin(c)
	h.Update(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdmissionHandlerPurgeAndPDF(t *testing.T) {
	svc := &admissionServiceMock{}
	h := NewAdmissionHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/admissions/inq-1", nil)
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	asAdmin(c)
	h.Purge(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "inq-1", svc.purged)

	c, w = newTestContext(http.MethodGet, "/admissions/inq-1/pdf", nil)
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	h.FormPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admission_asha_singh.pdf")
}
