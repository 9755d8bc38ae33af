package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/metrics"
	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
	"github.com/pmfcarvalho/extrato/internal/store"
	"github.com/pmfcarvalho/extrato/internal/stripe"
)

// checkoutProvider is the slice of the Stripe client the handler needs,
// kept as an interface so tests can stub the payment gateway.
type checkoutProvider interface {
	CreateCheckoutSession(p plan.Plan, originURL, userID string) (*stripe.CheckoutSession, error)
	GetCheckoutStatus(sessionID string) (*model.CheckoutSession, error)
	ConstructWebhookEvent(payload []byte, sigHeader string) (stripeapi.Event, error)
}

type PaymentHandler struct {
	payments *store.PaymentStore
	subs     *store.SubscriptionStore
	provider checkoutProvider
	logger   *slog.Logger
}

func NewPaymentHandler(ps *store.PaymentStore, ss *store.SubscriptionStore, provider checkoutProvider, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: ps,
		subs:     ss,
		provider: provider,
		logger:   logger,
	}
}

// CreateCheckout starts a checkout session for a paid plan and records the
// pending transaction so the status poll can find it later.
func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		PlanType  string `json:"plan_type"`
		OriginURL string `json:"origin_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Pedido inválido")
		return
	}

	p, ok := plan.Get(req.PlanType)
	if !ok {
		writeDetail(w, http.StatusBadRequest, "Plano inválido")
		return
	}
	if !p.Paid() {
		writeDetail(w, http.StatusBadRequest, "Plano gratuito não requer pagamento")
		return
	}
	if req.OriginURL == "" {
		writeDetail(w, http.StatusBadRequest, "Origem em falta")
		return
	}

	sess, err := h.provider.CreateCheckoutSession(p, req.OriginURL, userID)
	if err != nil {
		h.logger.Error("create checkout session", "plan", p.Type, "error", err)
		writeDetail(w, http.StatusBadGateway, "Erro ao criar sessão de pagamento")
		return
	}

	if _, err := h.payments.Create(userID, sess.ID, p.Type, p.PriceCents, p.Currency); err != nil {
		h.logger.Error("record payment transaction", "session", sess.ID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(p.Type, "created").Inc()
	writeJSON(w, http.StatusOK, map[string]string{
		"url":        sess.URL,
		"session_id": sess.ID,
	})
}

// Status reports the payment state of a checkout session. When the gateway
// says the session is paid, this is also where the subscription upgrade is
// reconciled, so a lost webhook never strands a paying user.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	sessionID := r.PathValue("session_id")

	txn, err := h.payments.GetBySessionID(sessionID, userID)
	if err != nil {
		h.logger.Error("get payment transaction", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if txn == nil {
		writeDetail(w, http.StatusNotFound, "Transação não encontrada")
		return
	}

	if txn.PaymentStatus == "paid" {
		writeJSON(w, http.StatusOK, model.CheckoutSession{
			SessionID:     sessionID,
			PaymentStatus: "paid",
			Status:        "complete",
		})
		return
	}

	status, err := h.provider.GetCheckoutStatus(sessionID)
	if err != nil {
		h.logger.Error("get checkout status", "session", sessionID, "error", err)
		writeDetail(w, http.StatusBadGateway, "Erro ao consultar estado do pagamento")
		return
	}

	if status.PaymentStatus == "paid" {
		h.applyPaid(txn)
	}

	writeJSON(w, http.StatusOK, status)
}

// Webhook handles checkout.session.completed deliveries from the gateway.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Pedido inválido")
		return
	}

	event, err := h.provider.ConstructWebhookEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		writeDetail(w, http.StatusBadRequest, "Assinatura inválida")
		return
	}

	if event.Type == "checkout.session.completed" {
		var sess stripeapi.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			h.logger.Error("decode webhook session", "error", err)
			writeDetail(w, http.StatusBadRequest, "Pedido inválido")
			return
		}

		txn, err := h.payments.GetAnyBySessionID(sess.ID)
		if err != nil {
			h.logger.Error("get payment transaction", "session", sess.ID, "error", err)
			writeDetail(w, http.StatusInternalServerError, "Erro interno")
			return
		}
		if txn != nil {
			h.applyPaid(txn)
		} else {
			h.logger.Warn("webhook for unknown session", "session", sess.ID)
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// applyPaid settles the transaction and swaps the user onto the purchased
// plan with fresh usage counters. MarkPaid transitions at most once, so
// concurrent delivery via poll and webhook upgrades a single time.
func (h *PaymentHandler) applyPaid(txn *model.PaymentTransaction) {
	transitioned, err := h.payments.MarkPaid(txn.SessionID)
	if err != nil {
		h.logger.Error("mark payment paid", "session", txn.SessionID, "error", err)
		return
	}
	if !transitioned {
		return
	}

	p, ok := plan.Get(txn.PlanType)
	if !ok {
		h.logger.Error("paid transaction references unknown plan", "session", txn.SessionID, "plan", txn.PlanType)
		return
	}

	if err := h.subs.CancelActive(txn.UserID); err != nil {
		h.logger.Error("cancel active subscriptions", "user", txn.UserID, "error", err)
		return
	}
	if _, err := h.subs.Create(txn.UserID, p); err != nil {
		h.logger.Error("create upgraded subscription", "user", txn.UserID, "plan", p.Type, "error", err)
		return
	}

	metrics.CheckoutSessionsTotal.WithLabelValues(p.Type, "paid").Inc()
	h.logger.Info("subscription upgraded", "user", txn.UserID, "plan", p.Type)
}
