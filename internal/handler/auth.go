package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pmfcarvalho/extrato/internal/auth"
	"github.com/pmfcarvalho/extrato/internal/model"
	"github.com/pmfcarvalho/extrato/internal/plan"
	"github.com/pmfcarvalho/extrato/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	subs   *store.SubscriptionStore
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SubscriptionStore, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  us,
		subs:   ss,
		tokens: tokens,
		logger: logger,
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Register creates a user with a fresh free subscription and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Pedido inválido")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeDetail(w, http.StatusBadRequest, "Email inválido")
		return
	}
	if len(req.Password) < 8 {
		writeDetail(w, http.StatusBadRequest, "A senha deve ter pelo menos 8 caracteres")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDetail(w, http.StatusBadRequest, "Nome é obrigatório")
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("get user by email", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if existing != nil {
		writeDetail(w, http.StatusBadRequest, "Email já registrado")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	user, err := h.users.Create(req.Email, strings.TrimSpace(req.Name), string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	free, _ := plan.Get(plan.Free)
	if _, err := h.subs.Create(user.ID, free); err != nil {
		h.logger.Error("create free subscription", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	h.respondWithToken(w, user)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Pedido inválido")
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("get user by email", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Email ou senha inválidos")
		return
	}

	h.respondWithToken(w, user)
}

// Me returns the authenticated identity record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeDetail(w, http.StatusUnauthorized, "Utilizador não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, user *model.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userResponse{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}
