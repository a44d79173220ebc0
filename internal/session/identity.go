// Package session resolves which of the two identity domains, administrator or student, a client
// holds and decides whether a route may render.
package session

import "github.com/pp-coaching/coaching-api/internal/models"

// StorageKey is the local persistence key holding the student blob.
const StorageKey = "studentUser"

// State is the resolution state of one identity branch or of the overall session.
type State int

const (
	Unresolved State = iota
	Anonymous
	Admin
	Student
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Admin:
		return "admin"
	case Student:
		return "student"
	default:
		return "unresolved"
	}
}

// AdminPrincipal is the administrator reported by the auth provider.
type AdminPrincipal struct {
	UserID   string
	Email    string
	FullName string
	Role     models.UserRole
	// Issued is set only by SignIn and carries the freshly minted tokens.
	Issued *models.LoginResponse
}

// Identity is one of AnonymousIdentity, AdminIdentity, StudentIdentity or UnresolvedIdentity.
type Identity interface {
	State() State
	isIdentity()
}

// UnresolvedIdentity is reported while neither branch has settled.
type UnresolvedIdentity struct{}

// AnonymousIdentity holds no principal.
type AnonymousIdentity struct{}

// AdminIdentity wraps an administrator principal.
type AdminIdentity struct {
	Principal AdminPrincipal
}

// StudentIdentity wraps the persisted active student record.
type StudentIdentity struct {
	Student models.ActiveStudent
}

func (UnresolvedIdentity) State() State { return Unresolved }
func (AnonymousIdentity) State() State  { return Anonymous }
func (AdminIdentity) State() State      { return Admin }
func (StudentIdentity) State() State    { return Student }

func (UnresolvedIdentity) isIdentity() {}
func (AnonymousIdentity) isIdentity()  {}
func (AdminIdentity) isIdentity()      {}
func (StudentIdentity) isIdentity()    {}
