package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenauth.org/internal/ids"
)

const (
	defaultIssuer     = "auth-service"
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 365 * 24 * time.Hour
)

// Service implements the authentication and account-management
// operations on top of a Store and a key source.
type Service struct {
	store Store
	now   func() time.Time

	keychain      *Keychain
	keySource     KeySource
	refreshSecret []byte

	issuer       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	newSessionID func() string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithKeychain installs the local signing keys. Required for issuing
// access tokens; also used for verification unless WithKeySource
// overrides it.
func WithKeychain(kc *Keychain) ServiceOption {
	return func(s *Service) error {
		s.keychain = kc
		return nil
	}
}

// WithKeySource overrides where verification keys come from, e.g. a
// JWKSClient pointed at another issuer.
func WithKeySource(src KeySource) ServiceOption {
	return func(s *Service) error {
		if src != nil {
			s.keySource = src
		}
		return nil
	}
}

// WithRefreshSecret sets the HS256 secret for refresh tokens.
func WithRefreshSecret(secret string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(secret) == "" {
			return errors.New("auth: refresh secret is empty")
		}
		s.refreshSecret = []byte(secret)
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = issuer
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs Service with optional configuration.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	svc := &Service{
		store:        store,
		now:          time.Now,
		issuer:       defaultIssuer,
		accessTTL:    defaultAccessTTL,
		refreshTTL:   defaultRefreshTTL,
		newSessionID: ids.New,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if svc.keySource == nil && svc.keychain != nil {
		svc.keySource = svc.keychain
	}
	if len(svc.refreshSecret) == 0 {
		return nil, errors.New("auth: refresh secret is required")
	}
	return svc, nil
}

// JWKS exposes the public half of the local keychain, for serving at
// the well-known endpoint. Empty when verification is delegated.
func (s *Service) JWKS() JWKS {
	if s.keychain == nil {
		return JWKS{}
	}
	return s.keychain.Document()
}

// RegisterInput is the payload for account creation. Role defaults to
// customer when empty.
type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	TenantID  *int64 `json:"tenantId"`
}

func (in *RegisterInput) validate() error {
	in.Email = strings.TrimSpace(in.Email)
	if in.FirstName == "" {
		return fmt.Errorf("%w: firstName is required", ErrInvalidInput)
	}
	if in.LastName == "" {
		return fmt.Errorf("%w: lastName is required", ErrInvalidInput)
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if in.Role == "" {
		in.Role = RoleCustomer
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	}
	return nil
}

// Register creates a customer account and immediately starts a session
// for it. The caller cannot pick a role or tenant here; elevated
// accounts are provisioned through CreateUser.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, *TokenPair, error) {
	in.Role = RoleCustomer
	in.TenantID = nil
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.store.Users().Create(ctx, &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	})
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login verifies credentials and starts a new session. A missing
// account and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, nil, err
	}
	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates a session: it verifies the presented refresh token,
// issues a fresh pair bound to a new session, and only then revokes
// the old session. A crash in between leaves both sessions live, never
// the client stranded with zero.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*User, *TokenPair, error) {
	principal, err := s.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	userID, err := principal.UserID()
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if err := s.revokeSession(ctx, principal.SessionID); err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout revokes the session behind the presented refresh token. A
// token whose session is already gone fails verification, so a second
// logout with the same token reports an invalid token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	principal, err := s.VerifyRefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.revokeSession(ctx, principal.SessionID)
}

// Self returns the account behind the authenticated principal.
func (s *Service) Self(ctx context.Context, principal Principal) (*User, error) {
	userID, err := principal.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.store.Users().Find(ctx, userID)
}

// Tenant management --------------------------------------------------------

func validateTenant(t *Tenant) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateTenant(ctx context.Context, t *Tenant) (*Tenant, error) {
	if err := validateTenant(t); err != nil {
		return nil, err
	}
	return s.store.Tenants().Create(ctx, t)
}

func (s *Service) GetTenant(ctx context.Context, id int64) (*Tenant, error) {
	return s.store.Tenants().Find(ctx, id)
}

func (s *Service) ListTenants(ctx context.Context) ([]*Tenant, error) {
	return s.store.Tenants().List(ctx)
}

func (s *Service) UpdateTenant(ctx context.Context, t *Tenant) (*Tenant, error) {
	if err := validateTenant(t); err != nil {
		return nil, err
	}
	return s.store.Tenants().Update(ctx, t)
}

func (s *Service) DeleteTenant(ctx context.Context, id int64) error {
	return s.store.Tenants().Delete(ctx, id)
}

// User management ----------------------------------------------------------

// CreateUser provisions an account without starting a session.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return s.store.Users().Create(ctx, &User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	})
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.store.Users().Find(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.store.Users().List(ctx)
}

// UpdateUserInput carries a partial user update. Nil fields keep the
// stored value; Password, when set, is re-hashed.
type UpdateUserInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *Role   `json:"role"`
	TenantID  *int64  `json:"tenantId"`
}

func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*User, error) {
	user, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
		}
		user.Email = email
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *in.Role)
		}
		user.Role = *in.Role
	}
	if in.TenantID != nil {
		user.TenantID = in.TenantID
	}
	if in.Password != nil {
		if len(*in.Password) < 8 {
			return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
		}
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	return s.store.Users().Update(ctx, user)
}

// DeleteUser removes the account and revokes every session it owns.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Sessions().DeleteByUser(ctx, id)
}
