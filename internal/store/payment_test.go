package store

import (
	"testing"

	"github.com/pmfcarvalho/extrato/internal/database"
)

func setupPaymentTestDB(t *testing.T) (*PaymentStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPaymentStore(db), NewUserStore(db)
}

func TestPaymentCreateAndGet(t *testing.T) {
	ps, us := setupPaymentTestDB(t)

	u, _ := us.Create("ana@example.com", "Ana", "hash")
	p, err := ps.Create(u.ID, "cs_test_123", "starter", 3000, "eur")
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if p.PaymentStatus != "pending" {
		t.Errorf("payment_status = %q, want %q", p.PaymentStatus, "pending")
	}
	if p.Status != "initiated" {
		t.Errorf("status = %q, want %q", p.Status, "initiated")
	}

	got, err := ps.GetBySessionID("cs_test_123", u.ID)
	if err != nil {
		t.Fatalf("get by session id: %v", err)
	}
	if got == nil || got.ID != p.ID {
		t.Fatalf("expected transaction %q back", p.ID)
	}
}

func TestPaymentGetScopedToOwner(t *testing.T) {
	ps, us := setupPaymentTestDB(t)

	ana, _ := us.Create("ana@example.com", "Ana", "hash")
	rui, _ := us.Create("rui@example.com", "Rui", "hash")
	ps.Create(ana.ID, "cs_test_123", "starter", 3000, "eur")

	got, err := ps.GetBySessionID("cs_test_123", rui.ID)
	if err != nil {
		t.Fatalf("get by session id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for another user's session")
	}
}

func TestPaymentMarkPaidIdempotent(t *testing.T) {
	ps, us := setupPaymentTestDB(t)

	u, _ := us.Create("ana@example.com", "Ana", "hash")
	ps.Create(u.ID, "cs_test_123", "starter", 3000, "eur")

	first, err := ps.MarkPaid("cs_test_123")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !first {
		t.Error("first MarkPaid should report the transition")
	}

	second, err := ps.MarkPaid("cs_test_123")
	if err != nil {
		t.Fatalf("mark paid again: %v", err)
	}
	if second {
		t.Error("second MarkPaid should be a no-op")
	}

	got, _ := ps.GetBySessionID("cs_test_123", u.ID)
	if got.PaymentStatus != "paid" || got.Status != "completed" {
		t.Errorf("transaction = %q/%q, want paid/completed", got.PaymentStatus, got.Status)
	}
}
