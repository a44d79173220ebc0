package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/pp-coaching/coaching-api/internal/models"
)

// ErrNoMatch reports that no active student matches the submitted credentials.
var ErrNoMatch = errors.New("no matching student")

// AuthProvider authenticates administrators.
type AuthProvider interface {
	// Subscribe registers fn for principal changes. fn receives nil when no administrator is
	// signed in. The first invocation may arrive asynchronously.
	Subscribe(fn func(*AdminPrincipal)) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*AdminPrincipal, error)
	SignOut(ctx context.Context, principal AdminPrincipal) error
}

// LocalStore persists the student blob on the client side.
type LocalStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// StudentVerifier matches a login identifier and date of birth against active students.
// Implementations return ErrNoMatch when nothing matches and any other error for store failures.
type StudentVerifier interface {
	VerifyStudent(ctx context.Context, loginID, dob string) (*models.ActiveStudent, error)
}

// MemoryStore is an in-process LocalStore.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implements LocalStore.
func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set implements LocalStore.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Remove implements LocalStore.
func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// NoAdminProvider never reports an administrator. It backs student-only surfaces.
type NoAdminProvider struct{}

// Subscribe implements AuthProvider.
func (NoAdminProvider) Subscribe(fn func(*AdminPrincipal)) func() {
	fn(nil)
	return func() {}
}

// SignIn implements AuthProvider.
func (NoAdminProvider) SignIn(context.Context, string, string) (*AdminPrincipal, error) {
	return nil, errors.New("admin sign-in unavailable")
}

// SignOut implements AuthProvider.
func (NoAdminProvider) SignOut(context.Context, AdminPrincipal) error { return nil }

func zapLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
