package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/repository"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type mockAdmissionRepo struct {
	inquiries    map[string]*models.AdmissionInquiry
	lastFilter   models.AdmissionFilter
	updated      int
	deleted      []string
	err          error
	beforeUpdate func()
}

func newMockAdmissionRepo(items ...models.AdmissionInquiry) *mockAdmissionRepo {
	repo := &mockAdmissionRepo{inquiries: map[string]*models.AdmissionInquiry{}}
	for i := range items {
		item := items[i]
		repo.inquiries[item.ID] = &item
	}
	return repo
}

func (m *mockAdmissionRepo) List(ctx context.Context, filter models.AdmissionFilter) ([]models.AdmissionInquiry, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.AdmissionInquiry, 0, len(m.inquiries))
	for _, inquiry := range m.inquiries {
		out = append(out, *inquiry)
	}
	return out, len(out), nil
}

func (m *mockAdmissionRepo) FindByID(ctx context.Context, id string) (*models.AdmissionInquiry, error) {
	if m.err != nil {
		return nil, m.err
	}
	inquiry, ok := m.inquiries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *inquiry
	return &copied, nil
}

func (m *mockAdmissionRepo) Create(ctx context.Context, inquiry *models.AdmissionInquiry) error {
	if m.err != nil {
		return m.err
	}
	inquiry.ID = "inq-new"
	inquiry.CreatedAt = time.Now()
	copied := *inquiry
	m.inquiries[inquiry.ID] = &copied
	return nil
}

func (m *mockAdmissionRepo) Update(ctx context.Context, inquiry *models.AdmissionInquiry, expected models.AdmissionStatus) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	stored, ok := m.inquiries[inquiry.ID]
	if !ok || stored.Status != expected {
		return repository.ErrStaleAdmission
	}
	m.updated++
	copied := *inquiry
	m.inquiries[inquiry.ID] = &copied
	return nil
}

func (m *mockAdmissionRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.inquiries, id)
	return nil
}

type fakeLoginLookup struct {
	held map[string]bool
}

func (f fakeLoginLookup) ExistsByLoginID(ctx context.Context, loginID string) (bool, error) {
	return f.held[loginID], nil
}

type memoryObjectStore struct {
	objects map[string][]byte
	deleted []string
}

func newMemoryObjectStore() *memoryObjectStore {
	return &memoryObjectStore{objects: map[string][]byte{}}
}

func (s *memoryObjectStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memoryObjectStore) URL(key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func (s *memoryObjectStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.objects, key)
	return nil
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func validAdmissionRequest() dto.CreateAdmissionRequest {
	return dto.CreateAdmissionRequest{
		StudentName:        "Asha Singh",
		DOB:                "2011-07-21",
		ContactNumber:      "9876543210",
		Email:              "Parent@Example.com",
		Class:              "Class 9",
		InterestedSubjects: []string{"Maths", "Science"},
		StudiedWithUs:      "no",
	}
}

func TestAdmissionServiceCreatePending(t *testing.T) {
	repo := newMockAdmissionRepo()
	files := newMemoryObjectStore()
	svc := NewAdmissionService(repo, fakeLoginLookup{}, nil, files, nil, nil, AdmissionConfig{})

	req := validAdmissionRequest()
	req.PhotoKey = "admissions/photos/abc_asha.jpg"
	inquiry, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusPending, inquiry.Status)
	assert.Nil(t, inquiry.LoginID)
	assert.Equal(t, "parent@example.com", inquiry.Email)
	assert.Equal(t, "https://files.example.com/admissions/photos/abc_asha.jpg", inquiry.PhotoURL)
	assert.Contains(t, repo.inquiries, "inq-new")
}

func TestAdmissionServiceCreateRejectsBadContact(t *testing.T) {
	svc := NewAdmissionService(newMockAdmissionRepo(), fakeLoginLookup{}, nil, nil, nil, nil, AdmissionConfig{})
	req := validAdmissionRequest()
	req.ContactNumber = "12345"
	_, err := svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAdmissionServiceCreateStoreFailure(t *testing.T) {
	repo := newMockAdmissionRepo()
	repo.err = sql.ErrConnDone
	_, err := NewAdmissionService(repo, fakeLoginLookup{}, nil, nil, nil, nil, AdmissionConfig{}).Create(context.Background(), validAdmissionRequest())
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
}

func TestAdmissionServiceUploadPhoto(t *testing.T) {
	files := newMemoryObjectStore()
	svc := NewAdmissionService(newMockAdmissionRepo(), fakeLoginLookup{}, nil, files, nil, nil, AdmissionConfig{MaxPhotoBytes: 16})

	res, err := svc.UploadPhoto(context.Background(), "my photo.jpg", "image/jpeg", 4, bytes.NewBufferString("jpeg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.PhotoKey, "admissions/photos/"))
	assert.True(t, strings.HasSuffix(res.PhotoKey, "_my_photo.jpg"))
	assert.Equal(t, []byte("jpeg"), files.objects[res.PhotoKey])

	_, err = svc.UploadPhoto(context.Background(), "notes.pdf", "application/pdf", 4, bytes.NewBufferString("%PDF"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UploadPhoto(context.Background(), "big.jpg", "image/jpeg", 64, bytes.NewBufferString("x"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAdmissionServiceListRejectsUnknownStatus(t *testing.T) {
	svc := NewAdmissionService(newMockAdmissionRepo(), fakeLoginLookup{}, nil, nil, nil, nil, AdmissionConfig{})
	_, _, err := svc.List(context.Background(), models.AdmissionFilter{Status: "archived"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	inquiries, pagination, err := svc.List(context.Background(), models.AdmissionFilter{Status: models.AdmissionStatusPending, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, inquiries)
	assert.Equal(t, 2, pagination.Page)
}

func TestAdmissionServiceUpdateFields(t *testing.T) {
	repo := newMockAdmissionRepo(models.AdmissionInquiry{ID: "inq-1", StudentName: "Asha", Class: "Class 9", Status: models.AdmissionStatusPending})
	audit := &recordingAudit{}
	svc := NewAdmissionService(repo, fakeLoginLookup{}, audit, nil, nil, nil, AdmissionConfig{})

	class := "Class 10"
	inquiry, err := svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Class: &class}, AuditMeta{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Class 10", inquiry.Class)
	assert.Equal(t, 1, repo.updated)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionAdmissionUpdate, audit.entries[0].Action)

	_, err = svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Class: &class}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updated)
}

func TestAdmissionServiceUpdateStatusRules(t *testing.T) {
	login := "PP2509101"
	repo := newMockAdmissionRepo(models.AdmissionInquiry{ID: "inq-1", StudentName: "Asha", Class: "Class 9", Status: models.AdmissionStatusEnrolled, LoginID: &login})
	lookup := fakeLoginLookup{held: map[string]bool{"PP2509101": true}}
	svc := NewAdmissionService(repo, lookup, nil, nil, nil, nil, AdmissionConfig{})

	enrolled := models.AdmissionStatusEnrolled
	pending := models.AdmissionStatusPending
	_, err := svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Status: &pending}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	lookup.held["PP2509101"] = false
	inquiry, err := svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Status: &pending}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.AdmissionStatusPending, inquiry.Status)
	assert.Nil(t, inquiry.LoginID)

	_, err = svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Status: &enrolled}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAdmissionServiceUpdateDoesNotUndoConcurrentEnrollment(t *testing.T) {
	repo := newMockAdmissionRepo(models.AdmissionInquiry{ID: "inq-1", StudentName: "Asha", Class: "Class 9", Status: models.AdmissionStatusPending})
	audit := &recordingAudit{}
	svc := NewAdmissionService(repo, fakeLoginLookup{}, audit, nil, nil, nil, AdmissionConfig{})

	login := "PP2509101"
	repo.beforeUpdate = func() {
		enrolled := *repo.inquiries["inq-1"]
		enrolled.Status = models.AdmissionStatusEnrolled
		enrolled.LoginID = &login
		repo.inquiries["inq-1"] = &enrolled
	}

	notes := "called back on Monday"
	_, err := svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Notes: &notes}, AuditMeta{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, audit.entries)

	stored := repo.inquiries["inq-1"]
	assert.Equal(t, models.AdmissionStatusEnrolled, stored.Status)
	require.NotNil(t, stored.LoginID)
	assert.Equal(t, login, *stored.LoginID)
	assert.Empty(t, stored.AdditionalNotes)

	repo.beforeUpdate = nil
	inquiry, err := svc.Update(context.Background(), "inq-1", dto.UpdateAdmissionRequest{Notes: &notes}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, notes, inquiry.AdditionalNotes)
	assert.Equal(t, models.AdmissionStatusEnrolled, repo.inquiries["inq-1"].Status)
	assert.Equal(t, login, *repo.inquiries["inq-1"].LoginID)
}

func TestAdmissionServicePurge(t *testing.T) {
	repo := newMockAdmissionRepo(models.AdmissionInquiry{ID: "inq-1", StudentName: "Asha", PhotoKey: "admissions/photos/a.jpg"})
	files := newMemoryObjectStore()
	audit := &recordingAudit{}
	svc := NewAdmissionService(repo, fakeLoginLookup{}, audit, files, nil, nil, AdmissionConfig{})

	require.NoError(t, svc.Purge(context.Background(), "inq-1", AuditMeta{UserID: "u1"}))
	assert.Equal(t, []string{"inq-1"}, repo.deleted)
	assert.Equal(t, []string{"admissions/photos/a.jpg"}, files.deleted)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionAdmissionPurge, audit.entries[0].Action)

	err := svc.Purge(context.Background(), "inq-1", AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAdmissionServicePDFs(t *testing.T) {
	repo := newMockAdmissionRepo(models.AdmissionInquiry{ID: "inq-1", StudentName: "Asha Singh", Class: "Class 9", DOB: "2011-07-21", CreatedAt: time.Now()})
	svc := NewAdmissionService(repo, fakeLoginLookup{}, nil, nil, nil, nil, AdmissionConfig{})

	form, name, err := svc.FormPDF(context.Background(), "inq-1")
	require.NoError(t, err)
	assert.Equal(t, "admission_asha_singh.pdf", name)
	assert.True(t, bytes.HasPrefix(form, []byte("%PDF")))

	slip, name, err := svc.CredentialSlipPDF(&models.EnrollResult{Name: "Asha Singh", Class: "Class 9", LoginID: "PP2509101", Password: "21072011"})
	require.NoError(t, err)
	assert.Equal(t, "credentials_PP2509101.pdf", name)
	assert.True(t, bytes.HasPrefix(slip, []byte("%PDF")))
}
