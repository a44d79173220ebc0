package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/service"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type enrollmentServiceMock struct {
	enrollErr   error
	lastMeta    service.AuditMeta
	unenrolled  string
	unenrollErr error
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, inquiryID string, meta service.AuditMeta) (*models.EnrollResult, error) {
	m.lastMeta = meta
	if m.enrollErr != nil {
		return nil, m.enrollErr
	}
	return &models.EnrollResult{InquiryID: inquiryID, StudentID: "stu-1", Name: "Asha Singh", LoginID: "PP2509101", Password: "21072011", Serial: 101}, nil
}

func (m *enrollmentServiceMock) EnrollAll(ctx context.Context, meta service.AuditMeta) (*models.BatchEnrollResult, error) {
	m.lastMeta = meta
	return &models.BatchEnrollResult{Processed: 2, SuccessCount: 1, Failed: []models.EnrollFailure{{InquiryID: "inq-2", Code: "VALIDATION_ERROR"}}}, nil
}

func (m *enrollmentServiceMock) Unenroll(ctx context.Context, studentID string, meta service.AuditMeta) (*models.ActiveStudent, error) {
	m.unenrolled = studentID
	if m.unenrollErr != nil {
		return nil, m.unenrollErr
	}
	return &models.ActiveStudent{ID: studentID}, nil
}

type slipRendererMock struct {
	rendered *models.EnrollResult
}

func (m *slipRendererMock) CredentialSlipPDF(result *models.EnrollResult) ([]byte, string, error) {
	m.rendered = result
	return []byte("%PDF-1.3 slip"), "credentials_" + result.LoginID + ".pdf", nil
}

func TestEnrollmentHandlerEnrollJSON(t *testing.T) {
	svc := &enrollmentServiceMock{}
	slips := &slipRendererMock{}
	h := NewEnrollmentHandler(svc, slips)

	c, w := newTestContext(http.MethodPost, "/admissions/inq-1/enroll", nil)
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	asAdmin(c)
	h.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"login_id":"PP2509101"`)
	assert.Contains(t, w.Body.String(), `"password":"21072011"`)
	assert.Equal(t, "admin-1", svc.lastMeta.UserID)
	assert.Nil(t, slips.rendered)
}

func TestEnrollmentHandlerEnrollPDFSlip(t *testing.T) {
	slips := &slipRendererMock{}
	h := NewEnrollmentHandler(&enrollmentServiceMock{}, slips)

	c, w := newTestContext(http.MethodPost, "/admissions/inq-1/enroll?format=pdf", nil)
	c.Params = append(c.Params, ginParam("id", "inq-1"))
	asAdmin(c)
	h.Enroll(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, slips.rendered)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "credentials_PP2509101.pdf")
}

func TestEnrollmentHandlerEnrollErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"already enrolled", appErrors.Clone(appErrors.ErrAlreadyEnrolled, "inquiry already enrolled as PP2509101"), http.StatusConflict},
		{"missing", appErrors.Clone(appErrors.ErrNotFound, "inquiry not found"), http.StatusNotFound},
		{"store down", appErrors.ErrStoreUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewEnrollmentHandler(&enrollmentServiceMock{enrollErr: tc.err}, nil)
			c, w := newTestContext(http.MethodPost, "/admissions/inq-1/enroll", nil)
			c.Params = append(c.Params, ginParam("id", "inq-1"))
			h.Enroll(c)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestEnrollmentHandlerEnrollAllReportsFailures(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{}, nil)

	c, w := newTestContext(http.MethodPost, "/admissions/enroll-all", nil)
	asAdmin(c)
	h.EnrollAll(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_count":1`)
	assert.Contains(t, w.Body.String(), `"inquiry_id":"inq-2"`)
}

func TestEnrollmentHandlerUnenroll(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc, nil)

	c, w := newTestContext(http.MethodDelete, "/students/stu-1", nil)
	c.Params = append(c.Params, ginParam("id", "stu-1"))
	asAdmin(c)
	h.Unenroll(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "stu-1", svc.unenrolled)

	svc.unenrollErr = appErrors.Clone(appErrors.ErrNotFound, "student not found")
	c, w = newTestContext(http.MethodDelete, "/students/nope", nil)
	c.Params = append(c.Params, ginParam("id", "nope"))
	h.Unenroll(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
