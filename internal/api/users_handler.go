package api

import (
	"net/http"
	"strings"
)

// usersHandler serves the user directory used to pick new contacts.
type usersHandler struct {
	store UserStore
}

func newUsersHandler(store UserStore) *usersHandler {
	return &usersHandler{store: store}
}

type directoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// ListUsers handles GET /api/v1/users?q=. Only public profile fields are
// returned.
func (h *usersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	entries := make([]directoryEntry, 0, len(users))
	for _, u := range users {
		if q != "" && !strings.Contains(strings.ToLower(u.Username), q) && !strings.Contains(strings.ToLower(u.Name), q) {
			continue
		}
		entries = append(entries, directoryEntry{ID: u.ID, Username: u.Username, Name: u.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": entries})
}
