package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alecgard/huddle/internal/auth"
)

// captureLog redirects the default logger to a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestAuditLog(t *testing.T) {
	tests := []struct {
		name          string
		entry         auditEntry
		detail        []any
		wantProjectID string
	}{
		{"project defaults project_id", auditEntry{Action: "delete", Resource: "project", ID: "p1"}, nil, "p1"},
		{"task carries its project", auditEntry{Action: "create", Resource: "task", ID: "t1", ProjectID: "p2"}, nil, "p2"},
		{"contact has no project", auditEntry{Action: "create", Resource: "contact", ID: "c1"}, []any{"contact_user_id", "u9"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)
			r := httptest.NewRequest(http.MethodPost, "/api/v1/x", nil)
			r.RemoteAddr = "192.0.2.7:5555"
			r.Header.Set("X-Forwarded-For", "203.0.113.9")
			r = r.WithContext(auth.ContextWithUser(r.Context(), &auth.User{ID: "u1", Username: "alice"}))

			auditLog(r, tt.entry, tt.detail...)

			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("decoding log line %q: %v", buf.String(), err)
			}
			want := map[string]any{
				"msg":           "audit",
				"action":        tt.entry.Action,
				"resource":      tt.entry.Resource,
				"resource_id":   tt.entry.ID,
				"actor_id":      "u1",
				"actor":         "alice",
				"client":        "192.0.2.7",
				"forwarded_for": "203.0.113.9",
			}
			for k, v := range want {
				if line[k] != v {
					t.Errorf("%s: got %v, want %v", k, line[k], v)
				}
			}
			got, has := line["project_id"]
			if tt.wantProjectID == "" && has {
				t.Errorf("unexpected project_id %v", got)
			}
			if tt.wantProjectID != "" && got != tt.wantProjectID {
				t.Errorf("project_id: got %v, want %s", got, tt.wantProjectID)
			}
			if tt.detail != nil && line["contact_user_id"] != "u9" {
				t.Errorf("detail not appended: %v", line)
			}
		})
	}
}

func TestAuditLogAnonymous(t *testing.T) {
	buf := captureLog(t)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)

	auditLog(r, auditEntry{Action: "register", Resource: "user", ID: "u1"})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatal(err)
	}
	if _, ok := line["actor_id"]; ok {
		t.Errorf("anonymous request should carry no actor: %v", line)
	}
	if _, ok := line["forwarded_for"]; ok {
		t.Errorf("forwarded_for should be omitted without the header: %v", line)
	}
}
