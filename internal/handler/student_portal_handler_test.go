package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/middleware"
	"github.com/pp-coaching/coaching-api/internal/models"
	"github.com/pp-coaching/coaching-api/internal/session"
)

type rosterVerifier struct {
	student models.ActiveStudent
}

func (v rosterVerifier) VerifyStudent(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	if loginID == v.student.LoginID && dob == v.student.DOB {
		s := v.student
		return &s, nil
	}
	return nil, session.ErrNoMatch
}

type portalMaterialsMock struct {
	student *models.ActiveStudent
	subject string
}

func (m *portalMaterialsMock) ForStudent(ctx context.Context, student *models.ActiveStudent, subject string) ([]models.StudyMaterial, error) {
	m.student, m.subject = student, subject
	return []models.StudyMaterial{{ID: "mat-1", Class: "Class 9"}}, nil
}

func portalStudent() models.ActiveStudent {
	return models.ActiveStudent{ID: "stu-1", Name: "Asha Singh", Class: "Class 9", DOB: "2011-07-21", LoginID: "PP2509101"}
}

func newPortalResolver() (*session.Resolver, *session.MemoryStore) {
	store := session.NewMemoryStore()
	resolver := session.NewResolver(session.Options{Store: store, Verifier: rosterVerifier{student: portalStudent()}})
	resolver.Start()
	return resolver, store
}

func TestStudentPortalLogin(t *testing.T) {
	resolver, store := newPortalResolver()
	defer resolver.Close()
	h := NewStudentPortalHandler(&markServiceMock{}, &portalMaterialsMock{})

	c, w := newTestContext(http.MethodPost, "/student/login", jsonBody(t, models.StudentLoginRequest{LoginID: " PP2509101 ", Password: "21072011"}))
	c.Set(middleware.ContextResolverKey, resolver)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"login_id":"PP2509101"`)
	assert.NotContains(t, w.Body.String(), "2011-07-21")
	_, ok := store.Get(session.StorageKey)
	assert.True(t, ok)
	state, _ := resolver.StudentBranch()
	assert.Equal(t, session.Student, state)
}

func TestStudentPortalLoginWrongPassword(t *testing.T) {
	resolver, store := newPortalResolver()
	defer resolver.Close()
	h := NewStudentPortalHandler(&markServiceMock{}, &portalMaterialsMock{})

	c, w := newTestContext(http.MethodPost, "/student/login", jsonBody(t, models.StudentLoginRequest{LoginID: "PP2509101", Password: "01012011"}))
	c.Set(middleware.ContextResolverKey, resolver)
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, ok := store.Get(session.StorageKey)
	assert.False(t, ok)
}

func TestStudentPortalLogout(t *testing.T) {
	resolver, store := newPortalResolver()
	defer resolver.Close()
	_, err := resolver.StudentLogin(context.Background(), "PP2509101", "2011-07-21")
	require.NoError(t, err)
	h := NewStudentPortalHandler(&markServiceMock{}, &portalMaterialsMock{})

	c, w := newTestContext(http.MethodPost, "/student/logout", nil)
	c.Set(middleware.ContextResolverKey, resolver)
	h.Logout(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	_, ok := store.Get(session.StorageKey)
	assert.False(t, ok)
}

func TestStudentPortalRequiresStudent(t *testing.T) {
	h := NewStudentPortalHandler(&markServiceMock{}, &portalMaterialsMock{})

	for _, handle := range []gin.HandlerFunc{h.Me, h.Marks, h.Materials} {
		c, w := newTestContext(http.MethodGet, "/student/me", nil)
		handle(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestStudentPortalOwnData(t *testing.T) {
	marks := &markServiceMock{}
	materials := &portalMaterialsMock{}
	h := NewStudentPortalHandler(marks, materials)
	student := portalStudent()

	c, w := newTestContext(http.MethodGet, "/student/marks", nil)
	c.Set(middleware.ContextStudentKey, &student)
	h.Marks(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", marks.listedFor)

	c, w = newTestContext(http.MethodGet, "/student/materials?subject=maths", nil)
	c.Set(middleware.ContextStudentKey, &student)
	h.Materials(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, materials.student)
	assert.Equal(t, "Class 9", materials.student.Class)
	assert.Equal(t, "maths", materials.subject)
}
