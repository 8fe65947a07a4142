package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/contact"
)

// ContactStore is the owner-scoped address book used by the contact
// handlers.
type ContactStore interface {
	Create(ctx context.Context, ownerID string, in contact.CreateContactInput) (*contact.Contact, error)
	Get(ctx context.Context, ownerID, id string) (*contact.Contact, error)
	List(ctx context.Context, ownerID string) ([]*contact.Contact, error)
	Update(ctx context.Context, ownerID, id string, in contact.UpdateContactInput) (*contact.Contact, error)
}

// contactsHandler groups address book HTTP handlers.
type contactsHandler struct {
	store ContactStore
}

func newContactsHandler(store ContactStore) *contactsHandler {
	return &contactsHandler{store: store}
}

func writeContactError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contact.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "contact not found")
	case errors.Is(err, contact.ErrDuplicate):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, contact.ErrInvalidUser), errors.Is(err, contact.ErrSelfContact), errors.Is(err, contact.ErrPhoneLength):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "contact operation failed")
	}
}

// ListContacts handles GET /api/v1/contacts.
func (h *contactsHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	contacts, err := h.store.List(r.Context(), u.ID)
	if err != nil {
		writeContactError(w, err)
		return
	}
	if contacts == nil {
		contacts = []*contact.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"contacts": contacts})
}

// CreateContact handles POST /api/v1/contacts/create.
func (h *contactsHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var in contact.CreateContactInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.ContactUserID == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "contact_user_id is required")
		return
	}
	if err := in.Validate(u.ID); err != nil {
		writeContactError(w, err)
		return
	}

	c, err := h.store.Create(r.Context(), u.ID, in)
	if err != nil {
		writeContactError(w, err)
		return
	}

	auditLog(r, auditEntry{Action: "create", Resource: "contact", ID: c.ID}, "contact_user_id", c.ContactUserID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"contact":  c,
		"redirect": "/contacts",
	})
}

// GetContact handles GET /api/v1/contacts/{id}.
func (h *contactsHandler) GetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeContactError(w, contact.ErrNotFound)
		return
	}

	c, err := h.store.Get(r.Context(), auth.UserFromContext(r.Context()).ID, id)
	if err != nil {
		writeContactError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateContact handles POST /api/v1/contacts/{id}/edit.
func (h *contactsHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeContactError(w, contact.ErrNotFound)
		return
	}

	var in contact.UpdateContactInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if in.Phone != nil && len(*in.Phone) > 20 {
		writeContactError(w, contact.ErrPhoneLength)
		return
	}

	c, err := h.store.Update(r.Context(), auth.UserFromContext(r.Context()).ID, id, in)
	if err != nil {
		writeContactError(w, err)
		return
	}

	auditLog(r, auditEntry{Action: "update", Resource: "contact", ID: c.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"contact":  c,
		"redirect": "/contacts/" + c.ID,
	})
}
