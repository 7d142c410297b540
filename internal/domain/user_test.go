package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"taskboard/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func mustEmail(t *testing.T, raw string) domain.EmailAddress {
	t.Helper()
	email, err := domain.NewEmailAddress(raw)
	if err != nil {
		t.Fatalf("email %q: %v", raw, err)
	}
	return email
}

func newUser(t *testing.T, name, email string, role domain.UserRole) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name, mustEmail(t, email), role, domain.UserID{}, fixedNow)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	return u
}

func TestNewUserValidation(t *testing.T) {
	if _, err := domain.NewUser("", mustEmail(t, "a@b.co"), domain.RoleDeveloper, domain.UserID{}, fixedNow); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := domain.NewUser(strings.Repeat("x", 101), mustEmail(t, "a@b.co"), domain.RoleDeveloper, domain.UserID{}, fixedNow); err == nil {
		t.Fatalf("expected error for long name")
	}
	if _, err := domain.NewUser("Ada", mustEmail(t, "a@b.co"), domain.UserRole("boss"), domain.UserID{}, fixedNow); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	u := newUser(t, "Ada", "ada@example.com", domain.RoleDeveloper)
	if u.Status != domain.UserActive {
		t.Fatalf("expected active status, got %s", u.Status)
	}
	events := u.PendingEvents()
	if len(events) != 1 || events[0].EventName() != "user.created" {
		t.Fatalf("expected single user.created event, got %v", events)
	}
}

func TestActivateIsIdempotent(t *testing.T) {
	u := newUser(t, "Ada", "ada@example.com", domain.RoleDeveloper)
	u.ClearEvents()
	if err := u.Activate(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if len(u.PendingEvents()) != 0 {
		t.Fatalf("re-activating an active user must not raise events")
	}
	if err := u.Deactivate(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if u.Status != domain.UserInactive {
		t.Fatalf("expected inactive, got %s", u.Status)
	}
	if len(u.PendingEvents()) != 1 {
		t.Fatalf("expected one status event, got %d", len(u.PendingEvents()))
	}
	u.ClearEvents()
	if err := u.Deactivate(domain.NewUserID(), fixedNow); err != nil {
		t.Fatalf("second deactivate: %v", err)
	}
	if len(u.PendingEvents()) != 0 {
		t.Fatalf("re-deactivating must not raise events")
	}
}

func TestUpdateProfileRaisesOnlyOnChange(t *testing.T) {
	u := newUser(t, "Ada", "ada@example.com", domain.RoleDeveloper)
	u.ClearEvents()
	if err := u.UpdateProfile("Ada", mustEmail(t, "ada@example.com"), fixedNow); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	if len(u.PendingEvents()) != 0 {
		t.Fatalf("unchanged profile must not raise events")
	}
	if err := u.UpdateProfile("Ada Lovelace", mustEmail(t, "ada@example.com"), fixedNow); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(u.PendingEvents()) != 1 || u.PendingEvents()[0].EventName() != "user.profile_updated" {
		t.Fatalf("expected profile_updated event")
	}
}

func TestUpdateRoleUnrestricted(t *testing.T) {
	u := newUser(t, "Ada", "ada@example.com", domain.RoleViewer)
	for _, role := range []domain.UserRole{domain.RoleAdmin, domain.RoleDeveloper, domain.RoleProjectManager, domain.RoleViewer} {
		if err := u.UpdateRole(role, domain.NewUserID(), fixedNow); err != nil {
			t.Fatalf("role %s: %v", role, err)
		}
		if u.Role != role {
			t.Fatalf("expected role %s, got %s", role, u.Role)
		}
	}
	if err := u.UpdateRole(domain.UserRole("root"), domain.NewUserID(), fixedNow); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestCanManageTeams(t *testing.T) {
	cases := map[domain.UserRole]bool{
		domain.RoleAdmin:          true,
		domain.RoleProjectManager: true,
		domain.RoleDeveloper:      false,
		domain.RoleViewer:         false,
	}
	for role, want := range cases {
		u := newUser(t, "Ada", "ada@example.com", role)
		if got := u.CanManageTeams(); got != want {
			t.Errorf("role %s: CanManageTeams = %v, want %v", role, got, want)
		}
	}
}

func TestErrorKindsDistinguishable(t *testing.T) {
	u := newUser(t, "Ada", "ada@example.com", domain.RoleDeveloper)
	err := u.UpdateRole(domain.UserRole("root"), domain.NewUserID(), fixedNow)
	var argErr *domain.ArgumentError
	if !errors.As(err, &argErr) {
		t.Fatalf("expected ArgumentError, got %T", err)
	}
}
