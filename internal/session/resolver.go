package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/credential"
	"github.com/pp-coaching/coaching-api/internal/models"
	appErrors "github.com/pp-coaching/coaching-api/pkg/errors"
)

const invalidStudentCredentials = "invalid username or date of birth"

// Options configures a Resolver.
type Options struct {
	Auth       AuthProvider
	Store      LocalStore
	Verifier   StudentVerifier
	Logger     *zap.Logger
	Retries    int
	RetryDelay time.Duration
}

type branch struct {
	state State
	done  chan struct{}
}

func newBranch() branch {
	return branch{state: Unresolved, done: make(chan struct{})}
}

func (b *branch) settle(state State) {
	if b.state == Unresolved {
		close(b.done)
	}
	b.state = state
}

// Resolver tracks the admin and student branches of one client session.
type Resolver struct {
	auth       AuthProvider
	store      LocalStore
	verifier   StudentVerifier
	logger     *zap.Logger
	retries    int
	retryDelay time.Duration

	mu          sync.RWMutex
	admin       branch
	principal   *AdminPrincipal
	student     branch
	record      *models.ActiveStudent
	started     bool
	unsubscribe func()
}

// NewResolver constructs a Resolver. Call Start to begin resolution.
func NewResolver(opts Options) *Resolver {
	auth := opts.Auth
	if auth == nil {
		auth = NoAdminProvider{}
	}
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Resolver{
		auth:       auth,
		store:      store,
		verifier:   opts.Verifier,
		logger:     zapLogger(opts.Logger),
		retries:    opts.Retries,
		retryDelay: opts.RetryDelay,
		admin:      newBranch(),
		student:    newBranch(),
	}
}

// Start subscribes to the auth provider and reads the local student blob. The two checks are
// independent: the subscription may settle later without holding back the student branch.
func (r *Resolver) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	unsubscribe := r.auth.Subscribe(r.onPrincipal)
	r.mu.Lock()
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	r.restoreStudent()
}

// Close drops the auth subscription.
func (r *Resolver) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (r *Resolver) onPrincipal(p *AdminPrincipal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		r.principal = nil
		r.admin.settle(Anonymous)
		return
	}
	copied := *p
	r.principal = &copied
	r.admin.settle(Admin)
}

func (r *Resolver) restoreStudent() {
	student, ok := r.readBlob()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		r.record = nil
		r.student.settle(Anonymous)
		return
	}
	r.record = student
	r.student.settle(Student)
}

func (r *Resolver) readBlob() (*models.ActiveStudent, bool) {
	raw, ok := r.store.Get(StorageKey)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false
	}
	var student models.ActiveStudent
	if err := json.Unmarshal([]byte(raw), &student); err != nil {
		r.logger.Warn("discarding malformed student session", zap.Error(err))
		_ = r.store.Remove(StorageKey)
		return nil, false
	}
	if student.LoginID == "" {
		r.logger.Warn("discarding student session without login id")
		_ = r.store.Remove(StorageKey)
		return nil, false
	}
	return &student, true
}

// AdminBranch returns the admin branch state and principal.
func (r *Resolver) AdminBranch() (State, *AdminPrincipal) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.admin.state, r.principal
}

// StudentBranch returns the student branch state and record.
func (r *Resolver) StudentBranch() (State, *models.ActiveStudent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.student.state, r.record
}

// Identity collapses both branches into one value. An administrator wins when both are present;
// route decisions never rely on this and consult their own branch instead.
func (r *Resolver) Identity() Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.admin.state == Admin && r.principal != nil:
		return AdminIdentity{Principal: *r.principal}
	case r.student.state == Student && r.record != nil:
		return StudentIdentity{Student: *r.record}
	case r.admin.state == Unresolved || r.student.state == Unresolved:
		return UnresolvedIdentity{}
	default:
		return AnonymousIdentity{}
	}
}

// Wait blocks until the branch relevant to class has settled or ctx is done.
func (r *Resolver) Wait(ctx context.Context, class RouteClass) error {
	var done chan struct{}
	r.mu.RLock()
	switch class {
	case RouteAdmin:
		done = r.admin.done
	case RouteStudent:
		done = r.student.done
	}
	r.mu.RUnlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StudentLogin verifies the credentials and persists the matched record locally. The password
// is the date of birth as DDMMYYYY or YYYY-MM-DD.
func (r *Resolver) StudentLogin(ctx context.Context, loginID, password string) (*models.ActiveStudent, error) {
	if r.verifier == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "student verifier not configured")
	}
	loginID = strings.TrimSpace(loginID)
	dob, ok := credential.ParsePassword(password)
	if loginID == "" || !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidStudentCredentials)
	}

	student, err := r.verifyWithRetry(ctx, loginID, dob)
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode student session")
	}
	if err := r.store.Set(StorageKey, string(blob)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist student session")
	}

	r.mu.Lock()
	copied := *student
	r.record = &copied
	r.student.settle(Student)
	r.mu.Unlock()

	r.logger.Info("student signed in", zap.String("login_id", student.LoginID))
	return student, nil
}

func (r *Resolver) verifyWithRetry(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.retryDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, appErrors.WrapAs(ctx.Err(), appErrors.ErrStoreUnavailable, "student lookup cancelled")
			case <-timer.C:
			}
		}

		student, err := r.verifier.VerifyStudent(ctx, loginID, dob)
		if err == nil {
			return student, nil
		}
		if errors.Is(err, ErrNoMatch) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidStudentCredentials)
		}
		lastErr = err
		r.logger.Warn("student lookup failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, appErrors.WrapAs(lastErr, appErrors.ErrStoreUnavailable, "student lookup failed, try again")
}

// StudentLogout removes the local student blob.
func (r *Resolver) StudentLogout() error {
	if err := r.store.Remove(StorageKey); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear student session")
	}
	r.mu.Lock()
	r.record = nil
	r.student.settle(Anonymous)
	r.mu.Unlock()
	return nil
}

// AdminLogin signs an administrator in through the auth provider.
func (r *Resolver) AdminLogin(ctx context.Context, email, password string) (*AdminPrincipal, error) {
	principal, err := r.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	r.onPrincipal(principal)
	return principal, nil
}

// AdminLogout signs the current administrator out through the auth provider.
func (r *Resolver) AdminLogout(ctx context.Context) error {
	r.mu.RLock()
	principal := r.principal
	r.mu.RUnlock()
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if err := r.auth.SignOut(ctx, *principal); err != nil {
		return err
	}
	r.onPrincipal(nil)
	return nil
}
