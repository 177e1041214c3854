package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPGStore(db), mock
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "password_hash",
		"role", "tenant_id", "created_at", "updated_at",
	})
}

func TestPGFindByEmailReturnsHash(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery("select (.+) from users where lower\\(email\\)=lower").
		WithArgs("ada@example.com").
		WillReturnRows(userRows().AddRow(
			int64(1), "Ada", "Lovelace", "ada@example.com", "$2a$10$hash",
			"customer", nil, now, now,
		))

	u, err := store.Users().FindByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.PasswordHash != "$2a$10$hash" {
		t.Fatalf("password hash not loaded: %q", u.PasswordHash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select (.+) from users where id=").
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Users().Find(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := store.Users().Create(context.Background(), &User{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "dup@example.com", PasswordHash: "h", Role: RoleCustomer,
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestPGSessionFindIsDoubleKeyed(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	mock.ExpectQuery("select id, user_id, expires_at, created_at from sessions where id=(.+) and user_id=").
		WithArgs("sess-1", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).
			AddRow("sess-1", int64(1), now.Add(time.Hour), now))

	sess, err := store.Sessions().Find(context.Background(), "sess-1", 1)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if sess.UserID != 1 {
		t.Fatalf("wrong session: %+v", sess)
	}

	// Same session id with a different owner resolves nothing.
	mock.ExpectQuery("select id, user_id, expires_at, created_at from sessions where id=(.+) and user_id=").
		WithArgs("sess-1", int64(2)).
		WillReturnError(sql.ErrNoRows)
	if _, err := store.Sessions().Find(context.Background(), "sess-1", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGSessionDeleteIdempotent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from sessions where id=").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Sessions().Delete(context.Background(), "gone"); err != nil {
		t.Fatalf("deleting an absent session must not fail: %v", err)
	}
}

func TestPGDeleteUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from users where id=").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Users().Delete(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGListUsers(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	tenant := int64(3)
	mock.ExpectQuery("select (.+) from users order by id asc").
		WillReturnRows(userRows().
			AddRow(int64(1), "Ada", "Lovelace", "ada@example.com", "h1", "admin", nil, now, now).
			AddRow(int64(2), "Grace", "Hopper", "grace@example.com", "h2", "manager", tenant, now, now))

	users, err := store.Users().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[1].TenantID == nil || *users[1].TenantID != 3 {
		t.Fatalf("tenant id not scanned: %+v", users[1])
	}
}
