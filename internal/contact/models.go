package contact

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("contact not found")
	ErrInvalidUser = errors.New("contact_user_id must be a valid user id")
	ErrDuplicate   = errors.New("contact already exists")
	ErrSelfContact = errors.New("cannot add yourself as a contact")
	ErrPhoneLength = errors.New("phone must be at most 20 characters")
)

// Contact is a directed "owner knows contact user" edge in an owner's
// address book. ContactUsername and ContactName are joined from users.
type Contact struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	ContactUserID   string    `json:"contact_user_id"`
	ContactUsername string    `json:"contact_username"`
	ContactName     string    `json:"contact_name"`
	Phone           string    `json:"phone"`
	Note            string    `json:"note"`
	CreatedAt       time.Time `json:"created_at"`
}

// DisplayName is the contact user's full name, falling back to username.
func (c *Contact) DisplayName() string {
	if c.ContactName != "" {
		return c.ContactName
	}
	return c.ContactUsername
}

// CreateContactInput holds the fields for a new address-book entry.
type CreateContactInput struct {
	ContactUserID string `json:"contact_user_id"`
	Phone         string `json:"phone"`
	Note          string `json:"note"`
}

// UpdateContactInput holds optional fields for a partial contact update.
type UpdateContactInput struct {
	Phone *string `json:"phone,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// Validate checks create input for the given owner.
func (in CreateContactInput) Validate(ownerID string) error {
	u, err := uuid.Parse(in.ContactUserID)
	if err != nil {
		return ErrInvalidUser
	}
	if u.String() == ownerID {
		return ErrSelfContact
	}
	if len(in.Phone) > 20 {
		return ErrPhoneLength
	}
	return nil
}
