package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alecgard/huddle/internal/project"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape. Workflow endpoints
// add a redirect hint; validation failures add per-field messages.
type errorEnvelope struct {
	Error    errorDetail       `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v any) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// flash messages shown for refusals that have a user-facing explanation.
var refusalMessages = []struct {
	err error
	msg string
}{
	{project.ErrConfirmMismatch, "Deletion canceled: typed name does not match the project."},
	{project.ErrAlreadyResolved, "This join request has already been handled."},
	{project.ErrOwnProject, "You own this project."},
	{project.ErrAlreadyStakeholder, "You are already a stakeholder in this project."},
	{project.ErrOwnerCannotLeave, "Project owners cannot leave their own project."},
}

// writeServiceError maps a project workflow error onto the HTTP envelope.
// Unexpected errors are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, redirect string) {
	env := errorEnvelope{Redirect: redirect}
	status := http.StatusInternalServerError

	var verr *project.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		env.Error = errorDetail{Code: "validation_error", Message: "please correct the highlighted fields"}
		env.Fields = verr.Fields
	case errors.Is(err, project.ErrNotFound):
		status = http.StatusNotFound
		env.Error = errorDetail{Code: "not_found", Message: "not found"}
		env.Redirect = ""
	case errors.Is(err, project.ErrForbidden):
		status = http.StatusForbidden
		env.Error = errorDetail{Code: "forbidden", Message: "You do not have permission to perform this action."}
	case errors.Is(err, project.ErrConflict):
		status = http.StatusConflict
		env.Error = errorDetail{Code: "conflict", Message: err.Error()}
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		env.Error = errorDetail{Code: "internal_error", Message: "internal server error"}
		env.Redirect = ""
	}

	for _, rm := range refusalMessages {
		if errors.Is(err, rm.err) {
			env.Error.Message = rm.msg
			break
		}
	}
	writeJSON(w, status, env)
}
