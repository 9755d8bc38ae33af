package handler

import (
	"log/slog"
	"net/http"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/plan"
	"github.com/pmfcarvalho/extrato/internal/store"
)

type SubscriptionHandler struct {
	subs   *store.SubscriptionStore
	logger *slog.Logger
}

func NewSubscriptionHandler(ss *store.SubscriptionStore, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: ss, logger: logger}
}

// Plans returns the plan catalog.
func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, plan.All())
}

// Current returns the user's active subscription, creating the free one on
// demand for accounts that predate subscription records.
func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	sub, err := h.subs.GetActiveByUserID(userID)
	if err != nil {
		h.logger.Error("get active subscription", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if sub == nil {
		free, _ := plan.Get(plan.Free)
		sub, err = h.subs.Create(userID, free)
		if err != nil {
			h.logger.Error("create free subscription", "error", err)
			writeDetail(w, http.StatusInternalServerError, "Erro interno")
			return
		}
	}

	writeJSON(w, http.StatusOK, sub)
}
