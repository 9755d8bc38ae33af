package store

import (
	"testing"

	"github.com/pmfcarvalho/extrato/internal/database"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreate(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("ana@example.com", "Ana", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("email = %q, want %q", u.Email, "ana@example.com")
	}
	if u.Name != "Ana" {
		t.Errorf("name = %q, want %q", u.Name, "Ana")
	}
	if u.ID == "" {
		t.Error("expected generated id")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("ana@example.com", "Ana", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := us.Create("ana@example.com", "Other", "hash"); err == nil {
		t.Error("expected unique constraint error for duplicate email")
	}
}

func TestUserGetByEmail(t *testing.T) {
	us := setupUserTestDB(t)

	created, _ := us.Create("ana@example.com", "Ana", "hash")

	u, err := us.GetByEmail("ana@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %q, want %q", u.ID, created.ID)
	}

	missing, err := us.GetByEmail("nobody@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown email")
	}
}
