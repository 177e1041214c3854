package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the access level assigned to a user. The set is fixed; there
// is no dynamic role catalog.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCustomer:
		return true
	}
	return false
}

// User is an account able to authenticate against the service.
// PasswordHash never leaves the process: it is excluded from JSON and
// only the credential verifier reads it.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TenantID     *int64    `json:"tenantId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Tenant is an organization whose users are scoped by tenant id.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is the server-side record backing one refresh token. A row
// exists exactly as long as the token is honoured: deleting the row is
// the sole revocation mechanism, and rows are never updated in place.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Principal is the authenticated identity for the current request.
// TenantID is empty for roles without a tenant; SessionID is set only
// when the principal was derived from a refresh token.
type Principal struct {
	SubjectID string
	Role      Role
	TenantID  string
	SessionID string
}

// UserID parses the string-encoded subject back into a user id.
func (p Principal) UserID() (int64, error) {
	return strconv.ParseInt(p.SubjectID, 10, 64)
}

// PrincipalForUser builds the claims-bearing identity for a user.
func PrincipalForUser(u *User) Principal {
	tenant := ""
	if u.TenantID != nil {
		tenant = strconv.FormatInt(*u.TenantID, 10)
	}
	return Principal{
		SubjectID: strconv.FormatInt(u.ID, 10),
		Role:      u.Role,
		TenantID:  tenant,
	}
}

// AccessClaims is the typed payload of an access token.
type AccessClaims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// RefreshClaims is the typed payload of a refresh token. The
// registered ID claim (jti) carries the session id.
type RefreshClaims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// TokenPair bundles freshly minted access and refresh tokens.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionID        string
}
