package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore       { return &pgUsers{db: s.db} }
func (s *PGStore) Tenants() TenantStore   { return &pgTenants{db: s.db} }
func (s *PGStore) Sessions() SessionStore { return &pgSessions{db: s.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// User store ---------------------------------------------------------------

type pgUsers struct{ db *sql.DB }

const userColumns = `id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.Role, &u.TenantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *pgUsers) Create(ctx context.Context, u *User) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into users(first_name, last_name, email, password_hash, role, tenant_id)
		 values($1,$2,$3,$4,$5,$6)
		 returning `+userColumns,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role, u.TenantID,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return created, nil
}

func (s *pgUsers) Find(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *pgUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email)=lower($1)`, email)
	return scanUser(row)
}

func (s *pgUsers) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *pgUsers) Update(ctx context.Context, u *User) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`update users
		 set first_name=$2, last_name=$3, email=$4,
		     password_hash=coalesce(nullif($5,''), password_hash),
		     role=$6, tenant_id=$7, updated_at=now()
		 where id=$1
		 returning `+userColumns,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role, u.TenantID,
	)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return updated, nil
}

func (s *pgUsers) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Tenant store -------------------------------------------------------------

type pgTenants struct{ db *sql.DB }

const tenantColumns = `id, name, address, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *pgTenants) Create(ctx context.Context, t *Tenant) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into tenants(name, address) values($1,$2) returning `+tenantColumns,
		t.Name, t.Address,
	)
	return scanTenant(row)
}

func (s *pgTenants) Find(ctx context.Context, id int64) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tenantColumns+` from tenants where id=$1`, id)
	return scanTenant(row)
}

func (s *pgTenants) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+tenantColumns+` from tenants order by id asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (s *pgTenants) Update(ctx context.Context, t *Tenant) (*Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`update tenants set name=$2, address=$3, updated_at=now()
		 where id=$1 returning `+tenantColumns,
		t.ID, t.Name, t.Address,
	)
	return scanTenant(row)
}

func (s *pgTenants) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from tenants where id=$1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Session store ------------------------------------------------------------

type pgSessions struct{ db *sql.DB }

func (s *pgSessions) Create(ctx context.Context, id string, userID int64, expiresAt time.Time) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`insert into sessions(id, user_id, expires_at) values($1,$2,$3)
		 returning id, user_id, expires_at, created_at`,
		id, userID, expiresAt,
	)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *pgSessions) Find(ctx context.Context, id string, userID int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, expires_at, created_at from sessions where id=$1 and user_id=$2`,
		id, userID,
	)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (s *pgSessions) Delete(ctx context.Context, id string) error {
	// Deleting an already-revoked session is a no-op on purpose.
	_, err := s.db.ExecContext(ctx, `delete from sessions where id=$1`, id)
	return err
}

func (s *pgSessions) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where user_id=$1`, userID)
	return err
}
