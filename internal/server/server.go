package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/converter"
	"github.com/pmfcarvalho/extrato/internal/handler"
	"github.com/pmfcarvalho/extrato/internal/middleware"
	"github.com/pmfcarvalho/extrato/internal/storage"
	"github.com/pmfcarvalho/extrato/internal/store"
	"github.com/pmfcarvalho/extrato/internal/stripe"
)

// Server owns the HTTP surface: stores, the extraction engine, artifact
// storage, and the payment gateway client.
type Server struct {
	logger  *slog.Logger
	tokens  *auth.Tokens
	limiter *middleware.RateLimiter

	users         *store.UserStore
	subscriptions *store.SubscriptionStore
	conversions   *store.ConversionStore
	payments      *store.PaymentStore

	authHandler         *handler.AuthHandler
	subscriptionHandler *handler.SubscriptionHandler
	conversionHandler   *handler.ConversionHandler
	paymentHandler      *handler.PaymentHandler
}

func New(
	db *sql.DB,
	tokens *auth.Tokens,
	engine converter.Engine,
	artifacts storage.Store,
	stripeClient *stripe.Client,
	logger *slog.Logger,
) *Server {
	users := store.NewUserStore(db)
	subscriptions := store.NewSubscriptionStore(db)
	conversions := store.NewConversionStore(db)
	payments := store.NewPaymentStore(db)

	return &Server{
		logger:        logger,
		tokens:        tokens,
		limiter:       middleware.NewRateLimiter(),
		users:         users,
		subscriptions: subscriptions,
		conversions:   conversions,
		payments:      payments,

		authHandler:         handler.NewAuthHandler(users, subscriptions, tokens, logger),
		subscriptionHandler: handler.NewSubscriptionHandler(subscriptions, logger),
		conversionHandler:   handler.NewConversionHandler(conversions, subscriptions, engine, artifacts, logger),
		paymentHandler:      handler.NewPaymentHandler(payments, subscriptions, stripeClient, logger),
	}
}

// Router builds the full route table. Everything under /api requires a
// bearer token except registration, login, and the plan catalog; the
// payment webhook authenticates by signature instead.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(s.tokens, s.users)
	credentialLimit := middleware.RateLimit(s.limiter, middleware.RealIP, 10, time.Minute)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("POST /api/auth/register", credentialLimit(http.HandlerFunc(s.authHandler.Register)))
	mux.Handle("POST /api/auth/login", credentialLimit(http.HandlerFunc(s.authHandler.Login)))
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(s.authHandler.Me)))

	mux.HandleFunc("GET /api/subscriptions/plans", s.subscriptionHandler.Plans)
	mux.Handle("GET /api/subscriptions/current", requireAuth(http.HandlerFunc(s.subscriptionHandler.Current)))

	mux.Handle("POST /api/conversions/upload", requireAuth(http.HandlerFunc(s.conversionHandler.Upload)))
	mux.Handle("GET /api/conversions", requireAuth(http.HandlerFunc(s.conversionHandler.List)))
	mux.Handle("GET /api/conversions/{id}", requireAuth(http.HandlerFunc(s.conversionHandler.Get)))
	mux.Handle("GET /api/conversions/{id}/download/{format}", requireAuth(http.HandlerFunc(s.conversionHandler.Download)))

	mux.Handle("POST /api/payments/checkout/session", requireAuth(http.HandlerFunc(s.paymentHandler.CreateCheckout)))
	mux.Handle("GET /api/payments/checkout/status/{session_id}", requireAuth(http.HandlerFunc(s.paymentHandler.Status)))
	mux.HandleFunc("POST /webhook/stripe", s.paymentHandler.Webhook)

	return middleware.RequestLogger(s.logger)(mux)
}

// CleanupLoop periodically evicts expired rate-limit windows. Runs until
// the stop channel closes.
func (s *Server) CleanupLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.Cleanup()
		case <-stop:
			return
		}
	}
}
