package api

import (
	"log/slog"
	"net/http"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/ratelimit"
)

// auditEntry describes one mutation made through the API. ProjectID ties
// join requests, tasks and membership changes to their project; for a
// project itself it defaults to ID.
type auditEntry struct {
	Action    string
	Resource  string
	ID        string
	ProjectID string
}

func (e auditEntry) attrs() []any {
	projectID := e.ProjectID
	if projectID == "" && e.Resource == "project" {
		projectID = e.ID
	}
	attrs := []any{
		"action", e.Action,
		"resource", e.Resource,
		"resource_id", e.ID,
	}
	if projectID != "" {
		attrs = append(attrs, "project_id", projectID)
	}
	return attrs
}

// auditLog writes an "audit" line with the acting user and the client
// address. detail is appended as extra key/value pairs.
func auditLog(r *http.Request, e auditEntry, detail ...any) {
	attrs := e.attrs()
	if u := auth.UserFromContext(r.Context()); u != nil {
		attrs = append(attrs, "actor_id", u.ID, "actor", u.Username)
	}
	attrs = append(attrs,
		"client", ratelimit.ClientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	)
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		attrs = append(attrs, "forwarded_for", fwd)
	}
	attrs = append(attrs, detail...)
	slog.InfoContext(r.Context(), "audit", attrs...)
}
