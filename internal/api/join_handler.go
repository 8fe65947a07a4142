package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/project"
)

// RequestJoin handles POST /api/v1/projects/{id}/join. A new request is
// answered with 201; repeating an existing one returns it with 200.
func (h *projectsHandler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	res, err := h.svc.RequestJoin(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}

	status := http.StatusOK
	var msg string
	switch {
	case res.Created:
		status = http.StatusCreated
		msg = "Join request sent! The project owner will be notified."
		auditLog(r, auditEntry{Action: "request_join", Resource: "join_request", ID: res.Request.ID, ProjectID: id})
	case res.Request.Status == project.JoinPending:
		msg = "A join request is already pending."
	default:
		msg = fmt.Sprintf("You previously had a %s request.", res.Request.Status)
	}

	writeJSON(w, status, map[string]any{
		"join_request": res.Request,
		"created":      res.Created,
		"message":      msg,
		"redirect":     projectPath(id),
	})
}

// ListJoinRequests handles GET /api/v1/projects/{id}/join-requests?status=.
func (h *projectsHandler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	status := project.JoinRequestStatus(strings.ToUpper(r.URL.Query().Get("status")))
	requests, err := h.svc.ListJoinRequests(r.Context(), auth.UserFromContext(r.Context()), id, status)
	if err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"join_requests": requests})
}

// AcceptJoinRequest handles POST /api/v1/join-request/{id}/accept.
func (h *projectsHandler) AcceptJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "join request not found")
		return
	}

	jr, err := h.svc.AcceptJoinRequest(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, projectsPath)
		return
	}

	auditLog(r, auditEntry{Action: "accept", Resource: "join_request", ID: jr.ID, ProjectID: jr.ProjectID}, "requester", jr.RequestingUsername)
	writeJSON(w, http.StatusOK, map[string]any{
		"join_request": jr,
		"message":      fmt.Sprintf("You accepted %s to the project.", jr.RequestingUsername),
		"redirect":     projectPath(jr.ProjectID),
	})
}

// RejectJoinRequest handles POST /api/v1/join-request/{id}/reject.
func (h *projectsHandler) RejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "join request not found")
		return
	}

	jr, err := h.svc.RejectJoinRequest(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, projectsPath)
		return
	}

	auditLog(r, auditEntry{Action: "reject", Resource: "join_request", ID: jr.ID, ProjectID: jr.ProjectID}, "requester", jr.RequestingUsername)
	writeJSON(w, http.StatusOK, map[string]any{
		"join_request": jr,
		"message":      fmt.Sprintf("You rejected %s. A notification has been sent to them.", jr.RequestingUsername),
		"redirect":     projectPath(jr.ProjectID),
	})
}

// LeaveProject handles POST /api/v1/projects/{id}/leave.
func (h *projectsHandler) LeaveProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	res, err := h.svc.LeaveProject(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}

	msg := "You are not a stakeholder in this project."
	if res.Left {
		msg = "You have left the project. The project owner has been notified."
		auditLog(r, auditEntry{Action: "leave", Resource: "project", ID: id})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"left":     res.Left,
		"message":  msg,
		"redirect": projectPath(id),
	})
}
