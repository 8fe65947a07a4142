package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alecgard/huddle/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Select reads contact rows joined with the contact user. Other packages
// extend it with joins and a WHERE clause and scan with CollectRows.
const Select = `SELECT c.id, c.owner_id, c.contact_user_id, u.username, u.name, c.phone, c.note, c.created_at
	FROM contacts c JOIN users u ON u.id = c.contact_user_id`

// Store provides database operations for contacts.
type Store struct {
	db database.DBTX
}

// NewStore creates a contact store over a pool or a transaction.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

func scanContact(row pgx.Row) (*Contact, error) {
	c := &Contact{}
	err := row.Scan(&c.ID, &c.OwnerID, &c.ContactUserID, &c.ContactUsername, &c.ContactName, &c.Phone, &c.Note, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CollectRows scans every row produced by a Select query and closes rows.
func CollectRows(rows pgx.Rows) ([]*Contact, error) {
	defer rows.Close()

	contacts := []*Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Create adds contactUserID to owner's address book. A second entry for the
// same pair is rejected with ErrDuplicate.
func (s *Store) Create(ctx context.Context, ownerID string, in CreateContactInput) (*Contact, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`INSERT INTO contacts (owner_id, contact_user_id, phone, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		ownerID, in.ContactUserID, in.Phone, in.Note,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return nil, ErrDuplicate
			case "23503":
				return nil, fmt.Errorf("creating contact: unknown user: %w", ErrNotFound)
			}
		}
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

// GetOrCreate returns the owner's contact for contactUserID, inserting an
// empty entry when none exists.
func (s *Store) GetOrCreate(ctx context.Context, ownerID, contactUserID string) (*Contact, error) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO contacts (owner_id, contact_user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (owner_id, contact_user_id) DO NOTHING`,
		ownerID, contactUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("get-or-create contact: %w", err)
	}
	return s.Find(ctx, ownerID, contactUserID)
}

// Find returns the owner's contact for contactUserID or ErrNotFound.
func (s *Store) Find(ctx context.Context, ownerID, contactUserID string) (*Contact, error) {
	c, err := scanContact(s.db.QueryRow(ctx,
		Select+` WHERE c.owner_id = $1 AND c.contact_user_id = $2`,
		ownerID, contactUserID,
	))
	if err != nil {
		return nil, fmt.Errorf("finding contact: %w", err)
	}
	return c, nil
}

// Exists reports whether owner has an address-book entry for contactUserID.
func (s *Store) Exists(ctx context.Context, ownerID, contactUserID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE owner_id = $1 AND contact_user_id = $2)`,
		ownerID, contactUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking contact: %w", err)
	}
	return exists, nil
}

// Get returns one of owner's contacts. Contacts of other owners are
// reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, ownerID, id string) (*Contact, error) {
	c, err := scanContact(s.db.QueryRow(ctx,
		Select+` WHERE c.id = $1 AND c.owner_id = $2`, id, ownerID))
	if err != nil {
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return c, nil
}

// List returns owner's contacts ordered by contact username.
func (s *Store) List(ctx context.Context, ownerID string) ([]*Contact, error) {
	rows, err := s.db.Query(ctx,
		Select+` WHERE c.owner_id = $1 ORDER BY u.username`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return CollectRows(rows)
}

// ListByIDs returns those of ids that are owned by ownerID. Callers compare
// lengths to detect foreign or unknown ids.
func (s *Store) ListByIDs(ctx context.Context, ownerID string, ids []string) ([]*Contact, error) {
	if len(ids) == 0 {
		return []*Contact{}, nil
	}
	rows, err := s.db.Query(ctx,
		Select+` WHERE c.owner_id = $1 AND c.id = ANY($2::uuid[]) ORDER BY u.username`,
		ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("listing contacts by id: %w", err)
	}
	return CollectRows(rows)
}

// Update performs a partial update on one of owner's contacts.
func (s *Store) Update(ctx context.Context, ownerID, id string, in UpdateContactInput) (*Contact, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Phone != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone = $%d", argIdx))
		args = append(args, *in.Phone)
		argIdx++
	}
	if in.Note != nil {
		setClauses = append(setClauses, fmt.Sprintf("note = $%d", argIdx))
		args = append(args, *in.Note)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.Get(ctx, ownerID, id)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(
		`UPDATE contacts SET %s WHERE id = $%d AND owner_id = $%d`,
		strings.Join(setClauses, ", "), argIdx, argIdx+1,
	)

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, ownerID, id)
}
