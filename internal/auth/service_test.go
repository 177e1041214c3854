package auth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterCreatesUserAndSession(t *testing.T) {
	store := NewInMemory()
	svc := newTestService(t, store)

	user, pair := registerUser(t, svc, "reg@example.com")
	if user.ID == 0 {
		t.Fatalf("user id not assigned")
	}
	if user.Role != RoleCustomer {
		t.Fatalf("empty role must default to customer, got %q", user.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", pair)
	}
	if store.SessionCount() != 1 {
		t.Fatalf("expected 1 session, got %d", store.SessionCount())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	registerUser(t, svc, "dup@example.com")

	_, _, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "dup@example.com",
		Password:  "different-pass",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	cases := []RegisterInput{
		{LastName: "L", Email: "a@b.c", Password: "longenough"},
		{FirstName: "F", Email: "a@b.c", Password: "longenough"},
		{FirstName: "F", LastName: "L", Email: "not-an-email", Password: "longenough"},
		{FirstName: "F", LastName: "L", Email: "a@b.c", Password: "short"},
	}
	for i, in := range cases {
		if _, _, err := svc.Register(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestRegisterForcesCustomerRole(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	ctx := context.Background()

	tenantID := int64(7)
	user, pair, err := svc.Register(ctx, RegisterInput{
		FirstName: "Eve",
		LastName:  "Mallory",
		Email:     "eve@example.com",
		Password:  "correct-horse",
		Role:      RoleAdmin,
		TenantID:  &tenantID,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != RoleCustomer {
		t.Fatalf("self-registration must not grant roles, got %q", user.Role)
	}
	if user.TenantID != nil {
		t.Fatalf("self-registration must not assign a tenant, got %v", *user.TenantID)
	}

	principal, err := svc.VerifyAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if principal.Role != RoleCustomer {
		t.Fatalf("issued claims must carry customer, got %q", principal.Role)
	}
	if principal.TenantID != "" {
		t.Fatalf("issued claims must carry no tenant, got %q", principal.TenantID)
	}
}

func TestCreateUserRoleValidation(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, RegisterInput{
		FirstName: "F", LastName: "L", Email: "a@b.c",
		Password: "longenough", Role: "superuser",
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}

	admin, err := svc.CreateUser(ctx, RegisterInput{
		FirstName: "F", LastName: "L", Email: "ops@example.com",
		Password: "longenough", Role: RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Fatalf("admin provisioning must keep the requested role, got %q", admin.Role)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	registerUser(t, svc, "known@example.com")
	ctx := context.Background()

	_, _, errUnknown := svc.Login(ctx, "unknown@example.com", "whatever-pass")
	_, _, errWrongPass := svc.Login(ctx, "known@example.com", "wrong-password")

	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", errUnknown)
	}
	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", errWrongPass)
	}
	if errUnknown.Error() != errWrongPass.Error() {
		t.Fatalf("failure modes must be indistinguishable: %q vs %q", errUnknown, errWrongPass)
	}
}

func TestLoginStartsNewSession(t *testing.T) {
	store := NewInMemory()
	svc := newTestService(t, store)
	_, first := registerUser(t, svc, "multi@example.com")

	_, second, err := svc.Login(context.Background(), "multi@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("each login must mint a distinct session")
	}
	if store.SessionCount() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", store.SessionCount())
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	store := NewInMemory()
	svc := newTestService(t, store)
	ctx := context.Background()
	user, pair := registerUser(t, svc, "rot@example.com")

	refreshed, next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.ID != user.ID {
		t.Fatalf("refresh changed the user: %d vs %d", refreshed.ID, user.ID)
	}
	if next.SessionID == pair.SessionID {
		t.Fatalf("rotation must mint a new session")
	}
	if store.SessionCount() != 1 {
		t.Fatalf("old session must be gone, got %d sessions", store.SessionCount())
	}

	// The rotated-out token is dead immediately.
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for rotated-out token, got %v", err)
	}
	// The fresh one works.
	if _, _, err := svc.Refresh(ctx, next.RefreshToken); err != nil {
		t.Fatalf("fresh refresh token rejected: %v", err)
	}
}

func TestLogoutRevokesOnce(t *testing.T) {
	store := NewInMemory()
	svc := newTestService(t, store)
	ctx := context.Background()
	_, pair := registerUser(t, svc, "out@example.com")

	if err := svc.Logout(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.SessionCount() != 0 {
		t.Fatalf("session must be revoked")
	}
	if err := svc.Logout(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second logout: expected ErrInvalidToken, got %v", err)
	}
}

func TestSelf(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	user, pair := registerUser(t, svc, "self@example.com")
	ctx := context.Background()

	principal, err := svc.VerifyAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	got, err := svc.Self(ctx, principal)
	if err != nil {
		t.Fatalf("Self: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Fatalf("Self returned wrong user: %+v", got)
	}
}

func TestDeleteUserRevokesSessions(t *testing.T) {
	store := NewInMemory()
	svc := newTestService(t, store)
	ctx := context.Background()
	user, pair := registerUser(t, svc, "gone@example.com")

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if store.SessionCount() != 0 {
		t.Fatalf("sessions must die with the user")
	}
	if _, _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after user deletion, got %v", err)
	}
}

func TestUpdateUserPartial(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	ctx := context.Background()
	user, _ := registerUser(t, svc, "part@example.com")

	newFirst := "Grace"
	updated, err := svc.UpdateUser(ctx, user.ID, UpdateUserInput{FirstName: &newFirst})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.FirstName != "Grace" {
		t.Fatalf("first name not updated: %q", updated.FirstName)
	}
	if updated.LastName != user.LastName || updated.Email != user.Email {
		t.Fatalf("untouched fields changed: %+v", updated)
	}

	// Old password still valid after a non-password update.
	if _, _, err := svc.Login(ctx, "part@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login after update: %v", err)
	}

	badRole := Role("root")
	if _, err := svc.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &badRole}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad role, got %v", err)
	}
}

func TestTenantCRUD(t *testing.T) {
	svc := newTestService(t, NewInMemory())
	ctx := context.Background()

	tenant, err := svc.CreateTenant(ctx, &Tenant{Name: "Acme", Address: "1 Main St"})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	if tenant.ID == 0 {
		t.Fatalf("tenant id not assigned")
	}

	if _, err := svc.CreateTenant(ctx, &Tenant{Name: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}

	tenant.Name = "Acme Corp"
	updated, err := svc.UpdateTenant(ctx, tenant)
	if err != nil {
		t.Fatalf("UpdateTenant: %v", err)
	}
	if updated.Name != "Acme Corp" {
		t.Fatalf("name not updated: %q", updated.Name)
	}

	all, err := svc.ListTenants(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListTenants: %v, %d items", err, len(all))
	}

	if err := svc.DeleteTenant(ctx, tenant.ID); err != nil {
		t.Fatalf("DeleteTenant: %v", err)
	}
	if _, err := svc.GetTenant(ctx, tenant.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
