package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/dto"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/repository"
	"github.com/pp-coaching/coaching-api/internal/session"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type mockStudentRepo struct {
	students   []models.ActiveStudent
	lastFilter models.ActiveStudentFilter
	err        error
	created    []*models.ActiveStudent
	claims     []repository.SerialClaim
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.ActiveStudentFilter) ([]models.ActiveStudent, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.students, len(m.students), nil
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]models.ActiveStudent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.students, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.ActiveStudent, error) {
	for i := range m.students {
		if m.students[i].ID == id {
			return &m.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByCredentials(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.students {
		if m.students[i].LoginID == loginID && m.students[i].DOB == dob {
			return &m.students[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.ActiveStudent, claim *repository.SerialClaim) error {
	for _, existing := range m.students {
		if existing.LoginID == student.LoginID {
			return repository.ErrDuplicateLogin
		}
	}
	student.ID = "generated"
	m.students = append(m.students, *student)
	m.created = append(m.created, student)
	if claim != nil {
		m.claims = append(m.claims, *claim)
	}
	return nil
}

func studentRoster() *mockStudentRepo {
	return &mockStudentRepo{students: []models.ActiveStudent{
		{ID: "s1", Name: "Asha Singh", Class: "Class 9", ContactNumber: "9876543210", DOB: "2011-07-21", LoginID: "PP2509101", CreatedAt: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "s2", Name: "Ravi, Kumar", Class: "Class 10", DOB: "2010-05-03", LoginID: "PP2510101", CreatedAt: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
	}}
}

func TestStudentServiceListDefaultsPagination(t *testing.T) {
	repo := studentRoster()
	svc := NewStudentService(repo, nil, nil, nil, nil)

	students, pagination, err := svc.List(context.Background(), models.ActiveStudentFilter{Class: "Class 9"})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, "Class 9", repo.lastFilter.Class)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	_, err := NewStudentService(studentRoster(), nil, nil, nil, nil).Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceCreate(t *testing.T) {
	repo := studentRoster()
	svc := NewStudentService(repo, nil, nil, nil, nil)

	student, err := svc.Create(context.Background(), dto.CreateStudentRequest{Name: " Meera ", Class: "Class 8", DOB: "2012-01-15", LoginID: "pp2508101"}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, "PP2508101", student.LoginID)
	assert.Equal(t, "Meera", student.Name)
	assert.Equal(t, []repository.SerialClaim{{Prefix: "PP2508", Serial: 101}}, repo.claims)

	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{Name: "Walk-in", Class: "Class 8", DOB: "2012-02-11", LoginID: "WALKIN01"}, AuditMeta{})
	require.NoError(t, err)
	assert.Len(t, repo.claims, 1)

	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{Name: "Dup", Class: "Class 9", DOB: "2011-01-01", LoginID: "PP2509101"}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(context.Background(), dto.CreateStudentRequest{Name: "Bad", Class: "Class 9", DOB: "21-07-2011", LoginID: "PP2509199"}, AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceExportCSV(t *testing.T) {
	out, err := NewStudentService(studentRoster(), nil, nil, nil, nil).ExportCSV(context.Background())
	require.NoError(t, err)

	body := strings.TrimPrefix(string(out), "\ufeff")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Login ID,Name,Class,Contact Number,Date of Birth,Enrolled At", lines[0])
	assert.Equal(t, "PP2509101,Asha Singh,Class 9,9876543210,2011-07-21,2025-04-02", lines[1])
	assert.Contains(t, lines[2], `"Ravi, Kumar"`)
}

func TestStudentServiceVerifyStudent(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewStudentService(studentRoster(), nil, metrics, nil, nil)

	student, err := svc.VerifyStudent(context.Background(), "pp2509101", "2011-07-21")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)

	_, err = svc.VerifyStudent(context.Background(), "PP2509101", "2000-01-01")
	assert.True(t, errors.Is(err, session.ErrNoMatch))

	_, err = svc.VerifyStudent(context.Background(), "", "2011-07-21")
	assert.True(t, errors.Is(err, session.ErrNoMatch))
}

func TestStudentServiceVerifyStudentStoreFailurePassesThrough(t *testing.T) {
	repo := studentRoster()
	repo.err = sql.ErrConnDone
	_, err := NewStudentService(repo, nil, nil, nil, nil).VerifyStudent(context.Background(), "PP2509101", "2011-07-21")
	require.Error(t, err)
	assert.False(t, errors.Is(err, session.ErrNoMatch))
}
