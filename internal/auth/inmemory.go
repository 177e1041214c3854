package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemory is a Store backed by process memory. It powers tests and
// the dev-mode fallback when no database is configured. All methods
// are safe for concurrent use.
type InMemory struct {
	mu       sync.RWMutex
	users    map[int64]*User
	tenants  map[int64]*Tenant
	sessions map[string]*Session

	nextUserID   int64
	nextTenantID int64

	now func() time.Time
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:        make(map[int64]*User),
		tenants:      make(map[int64]*Tenant),
		sessions:     make(map[string]*Session),
		nextUserID:   1,
		nextTenantID: 1,
		now:          time.Now,
	}
}

func (m *InMemory) Users() UserStore       { return (*memUsers)(m) }
func (m *InMemory) Tenants() TenantStore   { return (*memTenants)(m) }
func (m *InMemory) Sessions() SessionStore { return (*memSessions)(m) }

type memUsers InMemory

func (s *memUsers) Create(ctx context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return nil, ErrEmailExists
		}
	}
	now := s.now()
	clone := *u
	clone.ID = s.nextUserID
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.nextUserID++
	s.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *memUsers) Find(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUsers) List(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		clone := *u
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memUsers) Update(ctx context.Context, u *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return nil, ErrNotFound
	}
	email := strings.ToLower(u.Email)
	for id, other := range s.users {
		if id != u.ID && strings.ToLower(other.Email) == email {
			return nil, ErrEmailExists
		}
	}
	clone := *u
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = s.now()
	if clone.PasswordHash == "" {
		clone.PasswordHash = existing.PasswordHash
	}
	s.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *memUsers) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type memTenants InMemory

func (s *memTenants) Create(ctx context.Context, t *Tenant) (*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	clone := *t
	clone.ID = s.nextTenantID
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.nextTenantID++
	s.tenants[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *memTenants) Find(ctx context.Context, id int64) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *memTenants) List(ctx context.Context) ([]*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memTenants) Update(ctx context.Context, t *Tenant) (*Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[t.ID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *t
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = s.now()
	s.tenants[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *memTenants) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[id]; !ok {
		return ErrNotFound
	}
	delete(s.tenants, id)
	return nil
}

type memSessions InMemory

func (s *memSessions) Create(ctx context.Context, id string, userID int64, expiresAt time.Time) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	s.sessions[id] = sess
	out := *sess
	return &out, nil
}

func (s *memSessions) Find(ctx context.Context, id string, userID int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID {
		return nil, ErrNotFound
	}
	out := *sess
	return &out, nil
}

func (s *memSessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memSessions) DeleteByUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

// SessionCount reports the number of live sessions. Test helper.
func (m *InMemory) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
