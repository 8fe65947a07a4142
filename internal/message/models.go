package message

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("message not found")
	ErrSubjectTooLong = errors.New("subject must be at most 255 characters")
)

// Message is a point-to-point note between two users.
type Message struct {
	ID                string    `json:"id"`
	SenderID          string    `json:"sender_id"`
	SenderUsername    string    `json:"sender_username"`
	RecipientID       string    `json:"recipient_id"`
	RecipientUsername string    `json:"recipient_username"`
	Subject           string    `json:"subject"`
	Body              string    `json:"body"`
	Timestamp         time.Time `json:"timestamp"`
	IsRead            bool      `json:"is_read"`
	IsArchived        bool      `json:"is_archived"`
}

// SendInput holds the fields of a new message.
type SendInput struct {
	SenderID    string
	RecipientID string
	Subject     string
	Body        string
}

// Validate checks the subject length limit.
func (in SendInput) Validate() error {
	if len(in.Subject) > 255 {
		return ErrSubjectTooLong
	}
	return nil
}
