package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmfcarvalho/extrato/internal/model"
)

type PaymentStore struct {
	db *sql.DB
}

func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func scanPayment(scanner interface{ Scan(...any) error }) (*model.PaymentTransaction, error) {
	var p model.PaymentTransaction
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.SessionID, &p.PlanType,
		&p.Amount, &p.Currency, &p.PaymentStatus, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const paymentCols = `id, user_id, session_id, plan_type, amount, currency, payment_status, status, created_at`

// Create records an initiated checkout session.
func (s *PaymentStore) Create(userID, sessionID, planType string, amount int64, currency string) (*model.PaymentTransaction, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO payment_transactions (id, user_id, session_id, plan_type, amount, currency, payment_status, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending', 'initiated', ?)`,
		id, userID, sessionID, planType, amount, currency, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment transaction: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+paymentCols+` FROM payment_transactions WHERE id = ?`, id)
	return scanPayment(row)
}

// GetBySessionID returns the transaction scoped to its owner, or nil.
func (s *PaymentStore) GetBySessionID(sessionID, userID string) (*model.PaymentTransaction, error) {
	row := s.db.QueryRow(
		`SELECT `+paymentCols+` FROM payment_transactions WHERE session_id = ? AND user_id = ?`,
		sessionID, userID,
	)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by session id: %w", err)
	}
	return p, nil
}

// GetAnyBySessionID looks the transaction up without an owner scope, for
// webhook delivery where only the session id is known.
func (s *PaymentStore) GetAnyBySessionID(sessionID string) (*model.PaymentTransaction, error) {
	row := s.db.QueryRow(
		`SELECT `+paymentCols+` FROM payment_transactions WHERE session_id = ?`,
		sessionID,
	)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment by session id: %w", err)
	}
	return p, nil
}

// MarkPaid settles the transaction. Returns true if this call performed the
// transition, false if it was already paid — callers use that to keep the
// subscription upgrade idempotent across the status poll and the webhook.
func (s *PaymentStore) MarkPaid(sessionID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE payment_transactions SET payment_status = 'paid', status = 'completed'
		 WHERE session_id = ? AND payment_status != 'paid'`,
		sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("mark payment paid: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
