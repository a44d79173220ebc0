package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

type fakeAuth struct {
	mu        sync.Mutex
	listeners []func(*AdminPrincipal)
	signedOut []string
	signInErr error
}

func (f *fakeAuth) Subscribe(fn func(*AdminPrincipal)) func() {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeAuth) emit(p *AdminPrincipal) {
	f.mu.Lock()
	listeners := append([]func(*AdminPrincipal){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*AdminPrincipal, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &AdminPrincipal{UserID: "admin-1", Email: email, Role: models.RoleAdmin}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, p AdminPrincipal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, p.UserID)
	return nil
}

type fakeVerifier struct {
	calls    int32
	failures int32
	err      error
	students map[string]models.ActiveStudent
}

func (f *fakeVerifier) VerifyStudent(_ context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, f.err
	}
	s, ok := f.students[loginID]
	if !ok || s.DOB != dob {
		return nil, ErrNoMatch
	}
	return &s, nil
}

func asha() models.ActiveStudent {
	return models.ActiveStudent{ID: "s-1", Name: "Asha Singh", Class: "Class 9", DOB: "2011-07-21", LoginID: "PP2509101"}
}

func TestMalformedBlobResolvesAnonymous(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, "{not-json"))

	r := NewResolver(Options{Auth: NoAdminProvider{}, Store: store})
	require.NotPanics(t, r.Start)

	state, student := r.StudentBranch()
	assert.Equal(t, Anonymous, state)
	assert.Nil(t, student)
	_, ok := store.Get(StorageKey)
	assert.False(t, ok)
	assert.Equal(t, Redirect, Decide(RouteStudent, r))
}

func TestStudentRouteRendersFromLocalBlob(t *testing.T) {
	store := NewMemoryStore()
	blob, _ := json.Marshal(asha())
	require.NoError(t, store.Set(StorageKey, string(blob)))
	verifier := &fakeVerifier{}

	r := NewResolver(Options{Auth: &fakeAuth{}, Store: store, Verifier: verifier})
	r.Start()

	assert.Equal(t, Render, Decide(RouteStudent, r))
	assert.Equal(t, int32(0), atomic.LoadInt32(&verifier.calls))
	identity, ok := r.Identity().(StudentIdentity)
	require.True(t, ok)
	assert.Equal(t, "PP2509101", identity.Student.LoginID)
}

func TestAdminRouteWithoutPrincipalNeverRenders(t *testing.T) {
	auth := &fakeAuth{}
	r := NewResolver(Options{Auth: auth})
	r.Start()

	assert.Equal(t, Loading, Decide(RouteAdmin, r))
	assert.Equal(t, Render, Decide(RoutePublic, r))

	auth.emit(nil)
	require.NoError(t, r.Wait(context.Background(), RouteAdmin))
	assert.Equal(t, Redirect, Decide(RouteAdmin, r))
	assert.Equal(t, AnonymousIdentity{}, r.Identity())
}

func TestAdminRouteRendersAfterSubscription(t *testing.T) {
	auth := &fakeAuth{}
	r := NewResolver(Options{Auth: auth})
	r.Start()

	go auth.emit(&AdminPrincipal{UserID: "admin-1", Role: models.RoleOwner})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx, RouteAdmin))

	assert.Equal(t, Render, Decide(RouteAdmin, r))
	assert.Equal(t, Redirect, Decide(RouteStudent, r))
	identity, ok := r.Identity().(AdminIdentity)
	require.True(t, ok)
	assert.Equal(t, "admin-1", identity.Principal.UserID)
}

func TestStudentWaitDoesNotBlockOnAdminBranch(t *testing.T) {
	r := NewResolver(Options{Auth: &fakeAuth{}})
	r.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Wait(ctx, RouteStudent))
	assert.ErrorIs(t, r.Wait(ctx, RouteAdmin), context.DeadlineExceeded)
}

func TestStudentLoginPersistsBlob(t *testing.T) {
	store := NewMemoryStore()
	verifier := &fakeVerifier{students: map[string]models.ActiveStudent{"PP2509101": asha()}}
	r := NewResolver(Options{Store: store, Verifier: verifier})
	r.Start()

	student, err := r.StudentLogin(context.Background(), "PP2509101", "21072011")
	require.NoError(t, err)
	assert.Equal(t, "Asha Singh", student.Name)

	raw, ok := store.Get(StorageKey)
	require.True(t, ok)
	var persisted models.ActiveStudent
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Equal(t, "PP2509101", persisted.LoginID)

	fresh := NewResolver(Options{Store: store, Verifier: verifier})
	fresh.Start()
	assert.Equal(t, Render, Decide(RouteStudent, fresh))

	require.NoError(t, r.StudentLogout())
	_, ok = store.Get(StorageKey)
	assert.False(t, ok)
	assert.Equal(t, Redirect, Decide(RouteStudent, r))
}

func TestStudentLoginNoMatchIsNotRetried(t *testing.T) {
	verifier := &fakeVerifier{students: map[string]models.ActiveStudent{"PP2509101": asha()}}
	r := NewResolver(Options{Verifier: verifier, Retries: 3})

	_, err := r.StudentLogin(context.Background(), "PP2509101", "01012011")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.False(t, appErrors.IsRetryable(err))
	assert.Equal(t, int32(1), verifier.calls)
}

func TestStudentLoginRetriesTransientErrors(t *testing.T) {
	verifier := &fakeVerifier{
		failures: 2,
		err:      errors.New("connection reset"),
		students: map[string]models.ActiveStudent{"PP2509101": asha()},
	}
	r := NewResolver(Options{Verifier: verifier, Retries: 2, RetryDelay: time.Millisecond})

	student, err := r.StudentLogin(context.Background(), "PP2509101", "2011-07-21")
	require.NoError(t, err)
	assert.Equal(t, "s-1", student.ID)
	assert.Equal(t, int32(3), verifier.calls)
}

func TestStudentLoginSurfacesStoreUnavailable(t *testing.T) {
	verifier := &fakeVerifier{failures: 10, err: errors.New("timeout")}
	r := NewResolver(Options{Verifier: verifier, Retries: 1, RetryDelay: time.Millisecond})

	_, err := r.StudentLogin(context.Background(), "PP2509101", "21072011")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStoreUnavailable))
	assert.True(t, appErrors.IsRetryable(err))
}

func TestStudentLoginRejectsMalformedPassword(t *testing.T) {
	verifier := &fakeVerifier{}
	r := NewResolver(Options{Verifier: verifier})

	_, err := r.StudentLogin(context.Background(), "PP2509101", "abcdefgh")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, int32(0), verifier.calls)
}

func TestAdminLoginAndLogout(t *testing.T) {
	auth := &fakeAuth{}
	r := NewResolver(Options{Auth: auth})
	r.Start()

	_, err := r.AdminLogin(context.Background(), "owner@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, Render, Decide(RouteAdmin, r))

	require.NoError(t, r.AdminLogout(context.Background()))
	assert.Equal(t, []string{"admin-1"}, auth.signedOut)
	assert.Equal(t, Redirect, Decide(RouteAdmin, r))
	assert.True(t, errors.Is(r.AdminLogout(context.Background()), appErrors.ErrUnauthorized))
}

func TestConcurrentGuardChecks(t *testing.T) {
	auth := &fakeAuth{}
	store := NewMemoryStore()
	blob, _ := json.Marshal(asha())
	require.NoError(t, store.Set(StorageKey, string(blob)))
	r := NewResolver(Options{Auth: auth, Store: store})
	r.Start()

	var wg sync.WaitGroup
	var adminRenders int32
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if r.Wait(ctx, RouteAdmin) == nil && Decide(RouteAdmin, r) == Render {
				atomic.AddInt32(&adminRenders, 1)
			}
		}()
		go func() {
			defer wg.Done()
			assert.Equal(t, Render, Decide(RouteStudent, r))
		}()
	}
	auth.emit(nil)
	wg.Wait()
	assert.Equal(t, int32(0), adminRenders)
}
