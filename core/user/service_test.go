package user

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/madrasa-app/madrasa/core"
	memstore "github.com/madrasa-app/madrasa/storage/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	backend := memstore.New()
	t.Cleanup(func() { _ = backend.Close() })
	return NewService(NewStoreRepository(backend, nil))
}

func createTestUser(t *testing.T, svc *Service, uname, role string, perms []string) User {
	t.Helper()
	usr, err := svc.Create(NewUser{
		Name:            "Test " + uname,
		Username:        uname,
		Role:            role,
		Password:        "password123",
		PasswordConfirm: "password123",
		Permissions:     perms,
	})
	if err != nil {
		t.Fatalf("createTestUser() failed: %v", err)
	}
	return usr
}

func TestService_Create(t *testing.T) {
	svc := newTestService(t)

	usr := createTestUser(t, svc, "rafiq", RoleStudent, []string{"view_marks"})
	if usr.ID == "" {
		t.Error("Create() did not assign an id")
	}
	if !usr.IsActive {
		t.Error("new accounts should start active")
	}
	if usr.CreatedAt.IsZero() || usr.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if err := usr.CheckPassword("password123"); err != nil {
		t.Error("password does not verify")
	}

	// username must stay unique
	if _, err := svc.Create(NewUser{
		Name: "Clone", Username: "rafiq", Role: RoleTeacher,
		Password: "password123", PasswordConfirm: "password123",
	}); errors.Cause(err) != ErrUsernameExists {
		t.Errorf("Create() duplicate username error = %v", err)
	}
}

func TestService_CheckUniqueness(t *testing.T) {
	svc := newTestService(t)
	usr := createTestUser(t, svc, "rafiq", RoleStudent, nil)

	if err := svc.CheckUniqueness("someone"); err != nil {
		t.Errorf("CheckUniqueness() on free username = %v", err)
	}

	err := svc.CheckUniqueness("rafiq")
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CheckUniqueness() error = %v, want ValidationError", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "username" {
		t.Errorf("ValidationError fields = %+v", vErr.Fields)
	}

	// the owner may keep their own name
	if err := svc.CheckUniqueness("rafiq", usr); err != nil {
		t.Errorf("CheckUniqueness() with exclusion = %v", err)
	}
}

func TestService_GetByUsernameAndRole(t *testing.T) {
	svc := newTestService(t)
	createTestUser(t, svc, "rafiq", RoleStudent, nil)

	if _, err := svc.GetByUsernameAndRole("rafiq", RoleStudent); err != nil {
		t.Errorf("GetByUsernameAndRole() = %v", err)
	}
	// the lookup normalizes case and whitespace
	if _, err := svc.GetByUsernameAndRole("  Rafiq ", RoleStudent); err != nil {
		t.Errorf("GetByUsernameAndRole() with messy input = %v", err)
	}
	if _, err := svc.GetByUsernameAndRole("rafiq", RoleTeacher); errors.Cause(err) != ErrNotFound {
		t.Errorf("GetByUsernameAndRole() wrong role error = %v", err)
	}
	if _, err := svc.GetByUsernameAndRole("ghost", RoleStudent); errors.Cause(err) != ErrNotFound {
		t.Errorf("GetByUsernameAndRole() unknown error = %v", err)
	}
}

func TestService_Update(t *testing.T) {
	svc := newTestService(t)
	usr := createTestUser(t, svc, "rafiq", RoleStudent, nil)

	inactive := false
	updated, err := svc.Update(usr.ID, UpdateUser{
		Name:        "Rafiqul Islam",
		IsActive:    &inactive,
		Permissions: []string{"view_notices"},
		Phone:       "+8801700000000",
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Name != "Rafiqul Islam" || updated.IsActive || updated.Phone != "+8801700000000" {
		t.Errorf("Update() result = %+v", updated)
	}
	if len(updated.Permissions) != 1 || updated.Permissions[0] != "view_notices" {
		t.Errorf("permissions = %v", updated.Permissions)
	}
	// untouched fields survive
	if updated.Username != "rafiq" || updated.Role != RoleStudent {
		t.Errorf("unrelated fields changed: %+v", updated)
	}

	if _, err := svc.Update("nope", UpdateUser{Name: "X"}); errors.Cause(err) != ErrNotFound {
		t.Errorf("Update() unknown id error = %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	svc := newTestService(t)
	usr := createTestUser(t, svc, "rafiq", RoleStudent, nil)

	if err := svc.Delete(usr.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := svc.GetByID(usr.ID); errors.Cause(err) != ErrNotFound {
		t.Errorf("GetByID() after delete = %v", err)
	}
}

func TestSeed(t *testing.T) {
	svc := newTestService(t)

	if err := Seed(svc, DefaultAccounts()); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	usr, err := svc.GetByUsername("admin001")
	if err != nil {
		t.Fatalf("admin001 not seeded: %v", err)
	}
	if !usr.IsAdmin() {
		t.Error("admin001 is not an admin")
	}
	if err := usr.CheckPassword("password123"); err != nil {
		t.Error("seeded password does not verify")
	}

	// seeding again skips existing accounts
	if err := Seed(svc, DefaultAccounts()); err != nil {
		t.Fatalf("second Seed() failed: %v", err)
	}
	all, err := svc.QueryAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(DefaultAccounts()) {
		t.Errorf("QueryAll() len = %d, want %d", len(all), len(DefaultAccounts()))
	}
}
