package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/metrics"
	"github.com/alecgard/huddle/internal/user"
)

// UserStore is the identity surface used by the auth and user handlers.
type UserStore interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	List(ctx context.Context) ([]*user.User, error)
	CreateSession(ctx context.Context, userID string) (string, *user.Session, error)
	DeleteSession(ctx context.Context, plaintext string) error
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	store   UserStore
	metrics *metrics.Metrics
}

func newAuthHandler(store UserStore, m *metrics.Metrics) *authHandler {
	return &authHandler{store: store, metrics: m}
}

func userJSON(id, username, email, name string) map[string]any {
	return map[string]any{
		"id":       id,
		"username": username,
		"email":    email,
		"name":     name,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in user.CreateUserInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if err := user.ValidateCreate(in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	u, err := h.store.Create(r.Context(), in)
	if errors.Is(err, user.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "conflict", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	auditLog(r, auditEntry{Action: "register", Resource: "user", ID: u.ID}, "username", u.Username)
	writeJSON(w, http.StatusCreated, userJSON(u.ID, u.Username, u.Email, u.Name))
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "username and password are required")
		return
	}

	u, err := h.store.GetByUsername(r.Context(), req.Username)
	if err != nil || !user.CheckPassword(u, req.Password) {
		if h.metrics != nil {
			h.metrics.IncAuthFailure("password")
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	token, sess, err := h.store.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}
	if h.metrics != nil {
		h.metrics.IncAuthSuccess("password")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"user":       userJSON(u.ID, u.Username, u.Email, u.Name),
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u.ID, u.Username, u.Email, u.Name))
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.store.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}
