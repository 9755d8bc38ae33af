package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/pmfcarvalho/extrato/internal/model"
)

func TestLoginStoresToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "ana@example.com" {
			t.Errorf("email = %q", req["email"])
		}
		json.NewEncoder(w).Encode(authResponse{
			Token: "fresh-token",
			User:  Identity{ID: "u1", Email: "ana@example.com", Name: "Ana"},
		})
	}))
	c.Logout()

	id, err := c.Login(context.Background(), "ana@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.ID != "u1" {
		t.Fatalf("identity id = %q", id.ID)
	}
	if c.Token() != "fresh-token" {
		t.Fatalf("token = %q, want fresh-token", c.Token())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Email ou senha inválidos"})
	}))

	_, err := c.Login(context.Background(), "ana@example.com", "wrong")

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
}

func TestCurrentSubscription(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token")
		}
		json.NewEncoder(w).Encode(model.Subscription{PlanType: "starter", PagesLimit: 400})
	}))

	sub, err := c.CurrentSubscription(context.Background())
	if err != nil {
		t.Fatalf("current subscription: %v", err)
	}
	if sub.PlanType != "starter" || sub.PagesLimit != 400 {
		t.Fatalf("subscription = %+v", sub)
	}
}

func TestTransientErrorOnServerFault(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.CurrentSubscription(context.Background())

	var terr *TransientNetworkError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransientNetworkError", err)
	}
}
