package client

import (
	"context"

	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
)

// Identity is the authenticated account record.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, email, password, name string) (*Identity, error) {
	var resp authResponse
	err := c.postJSON(ctx, "/api/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp.User, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	var resp authResponse
	err := c.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp.User, nil
}

// Me verifies the stored token against the identity endpoint. An AuthError
// here means the token is dead and has already been cleared.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.getJSON(ctx, "/api/auth/me", &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Plans fetches the plan catalog. No authentication required.
func (c *Client) Plans(ctx context.Context) ([]plan.Plan, error) {
	var plans []plan.Plan
	if err := c.getJSON(ctx, "/api/subscriptions/plans", &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// CurrentSubscription fetches the active subscription snapshot. The result
// is read-only; server-side actions (uploads, checkouts) mutate it
// out-of-band and the next fetch observes the change.
func (c *Client) CurrentSubscription(ctx context.Context) (*model.Subscription, error) {
	var sub model.Subscription
	if err := c.getJSON(ctx, "/api/subscriptions/current", &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}
