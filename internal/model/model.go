package model

import "time"

// ConversionStatus is the lifecycle state of a conversion job. Transitions
// only move forward: processing -> completed or processing -> failed, and
// both completed and failed are terminal.
type ConversionStatus string

const (
	ConversionProcessing ConversionStatus = "processing"
	ConversionCompleted  ConversionStatus = "completed"
	ConversionFailed     ConversionStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s ConversionStatus) Terminal() bool {
	return s == ConversionCompleted || s == ConversionFailed
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscription carries both quota units. Free plans meter discrete
// conversions, paid plans meter pages; the projection rule lives in the
// client, the server just reports both counters.
type Subscription struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"user_id"`
	PlanType                 string    `json:"plan_type"`
	Status                   string    `json:"status"`
	PagesLimit               int       `json:"pages_limit"`
	PagesUsedThisMonth       int       `json:"pages_used_this_month"`
	ConversionsLimit         *int      `json:"conversions_limit,omitempty"`
	ConversionsUsedThisMonth int       `json:"conversions_used_this_month"`
	CurrentPeriodStart       time.Time `json:"current_period_start"`
	CurrentPeriodEnd         time.Time `json:"current_period_end"`
}

type Conversion struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	OriginalFilename string           `json:"original_filename"`
	BankName         string           `json:"bank_name"`
	PagesCount       int              `json:"pages_count"`
	Status           ConversionStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
}

type PaymentTransaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	PlanType      string    `json:"plan_type"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CheckoutSession is the slice of the payment provider's session record the
// client consumes when reconciling a checkout redirect.
type CheckoutSession struct {
	SessionID     string `json:"session_id"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
}
