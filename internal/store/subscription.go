package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
)

type SubscriptionStore struct {
	db *sql.DB
}

func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.Subscription, error) {
	var sub model.Subscription
	var convLimit sql.NullInt64
	err := scanner.Scan(
		&sub.ID, &sub.UserID, &sub.PlanType, &sub.Status,
		&sub.PagesLimit, &sub.PagesUsedThisMonth,
		&convLimit, &sub.ConversionsUsedThisMonth,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
	)
	if err != nil {
		return nil, err
	}
	if convLimit.Valid {
		v := int(convLimit.Int64)
		sub.ConversionsLimit = &v
	}
	return &sub, nil
}

const subscriptionCols = `id, user_id, plan_type, status, pages_limit, pages_used_this_month, conversions_limit, conversions_used_this_month, current_period_start, current_period_end`

// Create opens a fresh 30-day billing period on the given plan with zeroed
// usage counters. Free plans get a conversions limit, paid plans do not.
func (s *SubscriptionStore) Create(userID string, p plan.Plan) (*model.Subscription, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	var convLimit any
	if p.ConversionsLimit > 0 {
		convLimit = p.ConversionsLimit
	}

	_, err := s.db.Exec(
		`INSERT INTO subscriptions (id, user_id, plan_type, status, pages_limit, conversions_limit, current_period_start, current_period_end)
		 VALUES (?, ?, ?, 'active', ?, ?, ?, ?)`,
		id, userID, p.Type, p.PagesLimit, convLimit, now, now.Add(30*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return s.GetByID(id)
}

func (s *SubscriptionStore) GetByID(id string) (*model.Subscription, error) {
	row := s.db.QueryRow(`SELECT `+subscriptionCols+` FROM subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// GetActiveByUserID returns the user's active subscription, or nil if none.
func (s *SubscriptionStore) GetActiveByUserID(userID string) (*model.Subscription, error) {
	row := s.db.QueryRow(
		`SELECT `+subscriptionCols+` FROM subscriptions WHERE user_id = ? AND status = 'active' ORDER BY current_period_start DESC LIMIT 1`,
		userID,
	)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	return sub, nil
}

// AddUsage records one completed conversion of the given page count.
func (s *SubscriptionStore) AddUsage(id string, pages int) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions
		 SET pages_used_this_month = pages_used_this_month + ?,
		     conversions_used_this_month = conversions_used_this_month + 1
		 WHERE id = ?`,
		pages, id,
	)
	if err != nil {
		return fmt.Errorf("add subscription usage: %w", err)
	}
	return nil
}

// CancelActive marks every active subscription of the user as cancelled.
// Called right before inserting the upgraded subscription.
func (s *SubscriptionStore) CancelActive(userID string) error {
	_, err := s.db.Exec(
		`UPDATE subscriptions SET status = 'cancelled' WHERE user_id = ? AND status = 'active'`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("cancel active subscriptions: %w", err)
	}
	return nil
}
