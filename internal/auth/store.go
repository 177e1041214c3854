package auth

import (
	"context"
	"time"
)

// Store aggregates the persistence surface of the service. Both the
// Postgres implementation and the in-memory one used in tests and dev
// mode satisfy it.
type Store interface {
	Users() UserStore
	Tenants() TenantStore
	Sessions() SessionStore
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) (*User, error)
	Find(ctx context.Context, id int64) (*User, error)
	// FindByEmail returns the user including the password hash; it is
	// the only lookup that does.
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id int64) error
}

// TenantStore persists tenants.
type TenantStore interface {
	Create(ctx context.Context, t *Tenant) (*Tenant, error)
	Find(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, t *Tenant) (*Tenant, error)
	Delete(ctx context.Context, id int64) error
}

// SessionStore persists refresh sessions. Sessions are insert-only:
// rotation creates a new row and deletes the old one, never updates.
type SessionStore interface {
	Create(ctx context.Context, id string, userID int64, expiresAt time.Time) (*Session, error)
	// Find is keyed on both the session id and the owning user so a
	// token whose claims disagree with the row never resolves.
	Find(ctx context.Context, id string, userID int64) (*Session, error)
	// Delete is idempotent: deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}
