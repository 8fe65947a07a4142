package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecgard/huddle/internal/database"
	"github.com/jackc/pgx/v5"
)

const selectMessage = `SELECT m.id, m.sender_id, s.username, m.recipient_id, r.username,
	m.subject, m.body, m.timestamp, m.is_read, m.is_archived
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.recipient_id`

// Store provides database operations for messages.
type Store struct {
	db database.DBTX
}

// NewStore creates a message store over a pool or a transaction.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func scanMessage(row pgx.Row) (*Message, error) {
	m := &Message{}
	err := row.Scan(&m.ID, &m.SenderID, &m.SenderUsername, &m.RecipientID, &m.RecipientUsername,
		&m.Subject, &m.Body, &m.Timestamp, &m.IsRead, &m.IsArchived)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) list(ctx context.Context, where string, userID string) ([]*Message, error) {
	rows, err := s.db.Query(ctx, selectMessage+` WHERE `+where+` ORDER BY m.timestamp DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []*Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Send stores a new unread message.
func (s *Store) Send(ctx context.Context, in SendInput) (*Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO messages (sender_id, recipient_id, subject, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		in.SenderID, in.RecipientID, in.Subject, in.Body,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	m, err := scanMessage(s.db.QueryRow(ctx, selectMessage+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("reading sent message: %w", err)
	}
	return m, nil
}

// Inbox returns the user's non-archived received messages, newest first.
func (s *Store) Inbox(ctx context.Context, userID string) ([]*Message, error) {
	msgs, err := s.list(ctx, `m.recipient_id = $1 AND NOT m.is_archived`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing inbox: %w", err)
	}
	return msgs, nil
}

// Sent returns messages the user has sent, newest first.
func (s *Store) Sent(ctx context.Context, userID string) ([]*Message, error) {
	msgs, err := s.list(ctx, `m.sender_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sent messages: %w", err)
	}
	return msgs, nil
}

// UnreadCount returns the number of unread, non-archived inbox messages.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM messages WHERE recipient_id = $1 AND NOT is_read AND NOT is_archived`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return n, nil
}

// MarkRead flags a message as read. Only the recipient may do so; any other
// caller sees ErrNotFound.
func (s *Store) MarkRead(ctx context.Context, userID, id string) (*Message, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE messages SET is_read = true WHERE id = $1 AND recipient_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("marking message read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	m, err := scanMessage(s.db.QueryRow(ctx, selectMessage+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}
	return m, nil
}
