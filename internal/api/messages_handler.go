package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/message"
)

// MessageStore is the mailbox surface used by the message handlers.
type MessageStore interface {
	Inbox(ctx context.Context, userID string) ([]*message.Message, error)
	Sent(ctx context.Context, userID string) ([]*message.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) (*message.Message, error)
}

// messagesHandler groups mailbox HTTP handlers.
type messagesHandler struct {
	store MessageStore
}

func newMessagesHandler(store MessageStore) *messagesHandler {
	return &messagesHandler{store: store}
}

func (h *messagesHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) ([]*message.Message, error)) {
	msgs, err := fetch(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*message.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// Inbox handles GET /api/v1/messages/inbox.
func (h *messagesHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.Inbox)
}

// Sent handles GET /api/v1/messages/sent.
func (h *messagesHandler) Sent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.Sent)
}

// UnreadCount handles GET /api/v1/messages/unread-count.
func (h *messagesHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.UnreadCount(r.Context(), auth.UserFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": n})
}

// MarkRead handles POST /api/v1/messages/{id}/read. Only the recipient may
// mark a message read.
func (h *messagesHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "message not found")
		return
	}

	m, err := h.store.MarkRead(r.Context(), auth.UserFromContext(r.Context()).ID, id)
	if errors.Is(err, message.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "message not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update message")
		return
	}
	writeJSON(w, http.StatusOK, m)
}
