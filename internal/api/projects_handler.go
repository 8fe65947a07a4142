package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/project"
)

const projectsPath = "/projects"

func projectPath(id string) string {
	return projectsPath + "/" + id
}

// projectsHandler groups the project workflow HTTP handlers.
type projectsHandler struct {
	svc *project.Service
}

func newProjectsHandler(svc *project.Service) *projectsHandler {
	return &projectsHandler{svc: svc}
}

// ListProjects handles GET /api/v1/projects?view=&q=&status=&page=.
func (h *projectsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := project.ListFilter{
		View:   q.Get("view"),
		Query:  q.Get("q"),
		Status: project.Status(strings.ToUpper(q.Get("status"))),
	}
	// Unparseable pages fall back to the first page.
	f.Page, _ = strconv.Atoi(q.Get("page"))

	page, err := h.svc.List(r.Context(), auth.UserFromContext(r.Context()), f)
	var verr *project.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorEnvelope{
			Error:  errorDetail{Code: "invalid_filter", Message: verr.Error()},
			Fields: verr.Fields,
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetProject handles GET /api/v1/projects/{id}.
func (h *projectsHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	d, err := h.svc.Detail(r.Context(), auth.UserFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err, projectsPath)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateProject handles POST /api/v1/projects/create.
func (h *projectsHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var in project.CreateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	p, err := h.svc.Create(r.Context(), auth.UserFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err, "")
		return
	}

	auditLog(r, auditEntry{Action: "create", Resource: "project", ID: p.ID}, "name", p.Name)
	writeJSON(w, http.StatusCreated, map[string]any{
		"project":  p,
		"redirect": projectsPath,
	})
}

// UpdateProject handles POST /api/v1/projects/{id}/edit.
func (h *projectsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	var in project.UpdateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	p, err := h.svc.Update(r.Context(), auth.UserFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}

	auditLog(r, auditEntry{Action: "update", Resource: "project", ID: p.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"project":  p,
		"redirect": projectsPath,
	})
}

// DeleteProject handles POST /api/v1/projects/{id}/delete. The body must
// repeat the project name exactly.
func (h *projectsHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	var req struct {
		ConfirmName string `json:"confirmName"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := h.svc.Delete(r.Context(), auth.UserFromContext(r.Context()), id, req.ConfirmName); err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}

	auditLog(r, auditEntry{Action: "delete", Resource: "project", ID: id})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Project successfully deleted.",
		"redirect": projectsPath,
	})
}

// CreateTask handles POST /api/v1/projects/{id}/tasks/create.
func (h *projectsHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "project not found")
		return
	}

	var in project.CreateTaskInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.svc.CreateTask(r.Context(), auth.UserFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err, projectPath(id))
		return
	}

	auditLog(r, auditEntry{Action: "create", Resource: "task", ID: t.ID, ProjectID: id})
	writeJSON(w, http.StatusCreated, map[string]any{
		"task":     t,
		"message":  "Task created successfully.",
		"redirect": projectPath(id),
	})
}

// UpdateTask handles POST /api/v1/tasks/{id}/edit.
func (h *projectsHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	var in project.UpdateTaskInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.svc.UpdateTask(r.Context(), auth.UserFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, err, projectsPath)
		return
	}

	auditLog(r, auditEntry{Action: "update", Resource: "task", ID: t.ID, ProjectID: t.ProjectID})
	writeJSON(w, http.StatusOK, map[string]any{
		"task":     t,
		"message":  "Task updated successfully.",
		"redirect": projectPath(t.ProjectID),
	})
}
