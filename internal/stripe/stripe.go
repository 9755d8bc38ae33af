package stripe

import (
	"fmt"

	stripe "github.com/stripe/stripe-go/v84"
	checksession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CheckoutSession is the created session the handler hands back to the
// frontend: the redirect URL plus the id used for status polling.
type CheckoutSession struct {
	ID  string
	URL string
}

// CreateCheckoutSession creates a one-time payment checkout session for the
// given plan. The success URL carries the session id placeholder so the
// confirmation page can poll the payment status after the redirect.
func (c *Client) CreateCheckoutSession(p plan.Plan, originURL, userID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(p.PriceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Extrato - Plano " + p.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(originURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(originURL + "/pricing"),
		Metadata: map[string]string{
			"user_id":   userID,
			"plan_type": p.Type,
		},
	}
	sess, err := checksession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// GetCheckoutStatus queries the checkout session and maps it onto the
// status record the client contract consumes.
func (c *Client) GetCheckoutStatus(sessionID string) (*model.CheckoutSession, error) {
	sess, err := checksession.Get(sessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return &model.CheckoutSession{
		SessionID:     sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Status:        string(sess.Status),
	}, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
