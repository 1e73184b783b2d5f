// Package admin holds the privileged-caller model: accounts, credential
// verification, and the role checks the rest of the API relies on.
package admin

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Sentinel errors for admin operations.
var (
	ErrNotFound           = errors.New("admin not found")
	ErrAlreadyExists      = errors.New("admin already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDeactivated        = errors.New("account is deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSelfDeletion       = errors.New("cannot delete your own account")
)

// Role grants a set of admin capabilities.
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEditor:
		return true
	}
	return false
}

// Admin is a privileged account. PasswordHash is a bcrypt hash and is never
// serialized into responses.
type Admin struct {
	ID           bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Username     string        `json:"username" bson:"username"`
	Email        string        `json:"email" bson:"email"`
	PasswordHash string        `json:"-" bson:"password"`
	Name         string        `json:"name" bson:"name"`
	Role         Role          `json:"role" bson:"role"`
	Active       bool          `json:"active" bson:"active"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
	CreatedAt    time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// HasRole reports whether the admin holds one of the allowed roles.
func (a *Admin) HasRole(allowed ...Role) bool {
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Update carries the mutable admin fields; nil fields are left unchanged.
// Passwords are not updatable through this path.
type Update struct {
	Email  *string
	Name   *string
	Role   *Role
	Active *bool
}

// Repository defines persistence operations for admin accounts.
type Repository interface {
	GetByID(ctx context.Context, id bson.ObjectID) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	// ExistsByUsernameOrEmail guards against duplicate accounts at creation.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, a *Admin) error
	List(ctx context.Context) ([]Admin, error)
	Update(ctx context.Context, id bson.ObjectID, u Update) (*Admin, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	TouchLastLogin(ctx context.Context, id bson.ObjectID, at time.Time) error
}
