package client

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pmfcarvalho/extrato/internal/model"
)

// PollState is the poller's terminal determination for a checkout session.
type PollState string

const (
	PollSuccess PollState = "success"
	PollFailed  PollState = "failed"
	PollTimeout PollState = "timeout"
)

const (
	defaultPollAttempts = 5
	defaultPollInterval = 2 * time.Second
)

// Poller reconciles a checkout session with the account's entitlement by
// querying payment status a bounded number of times. Retrying is reserved
// for the ambiguous "not yet paid" answer; an explicit expiry or a hard
// query failure settles immediately in failed, and an exhausted attempt
// budget settles in timeout so the user is never left waiting indefinitely.
type Poller struct {
	client   *Client
	attempts int
	interval time.Duration
}

type PollerOption func(*Poller)

// WithPollInterval overrides the fixed inter-attempt delay.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithPollAttempts overrides the attempt budget.
func WithPollAttempts(n int) PollerOption {
	return func(p *Poller) { p.attempts = n }
}

func NewPoller(c *Client, opts ...PollerOption) *Poller {
	p := &Poller{
		client:   c,
		attempts: defaultPollAttempts,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	return p
}

// PollResult carries the terminal state, how many status queries were
// issued, and the last session snapshot observed (nil when the very first
// query failed hard).
type PollResult struct {
	State    PollState
	Attempts int
	Session  *model.CheckoutSession
}

var (
	errPending = errors.New("payment pending")
	errExpired = errors.New("checkout session expired")
)

// Confirm runs the state machine to a terminal state. An empty session id
// is refused without issuing a single query — the caller should redirect
// away instead. Cancelling the context stops polling between attempts and
// returns the context error with no terminal state.
func (p *Poller) Confirm(ctx context.Context, sessionID string) (*PollResult, error) {
	if sessionID == "" {
		return nil, &ValidationError{Reason: "missing checkout session id"}
	}

	result := &PollResult{}
	backoff := retry.WithMaxRetries(uint64(p.attempts-1), retry.NewConstant(p.interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++
		sess, err := p.checkoutStatus(ctx, sessionID)
		if err != nil {
			// Hard failure: infrastructure trouble is not "not yet
			// paid", so it does not earn another attempt.
			return err
		}
		result.Session = sess

		switch {
		case sess.PaymentStatus == "paid":
			return nil
		case sess.Status == "expired":
			return errExpired
		default:
			return retry.RetryableError(errPending)
		}
	})

	switch {
	case err == nil:
		result.State = PollSuccess
	case errors.Is(err, errPending):
		result.State = PollTimeout
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil, err
	default:
		result.State = PollFailed
	}
	return result, nil
}

func (p *Poller) checkoutStatus(ctx context.Context, sessionID string) (*model.CheckoutSession, error) {
	var sess model.CheckoutSession
	path := "/api/payments/checkout/status/" + url.PathEscape(sessionID)
	if err := p.client.getJSON(ctx, path, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// CheckoutRedirect is the handoff returned when a checkout is started: the
// provider URL to send the user to, and the session id to poll afterwards.
type CheckoutRedirect struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// StartCheckout opens a checkout session for a paid plan.
func (c *Client) StartCheckout(ctx context.Context, planType, originURL string) (*CheckoutRedirect, error) {
	var redirect CheckoutRedirect
	err := c.postJSON(ctx, "/api/payments/checkout/session", map[string]string{
		"plan_type":  planType,
		"origin_url": originURL,
	}, &redirect)
	if err != nil {
		return nil, err
	}
	return &redirect, nil
}
