package projecttest

import (
	"context"
	"fmt"
	"sort"

	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/message"
	"github.com/google/uuid"
)

// --- contacts ---

// castUUID fails the way a Postgres uuid cast does on malformed input.
func castUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid input syntax for type uuid: %q", id)
	}
	return nil
}

func (st *state) fillContact(stored *contact.Contact) *contact.Contact {
	c := *stored
	if u := st.users[c.ContactUserID]; u != nil {
		c.ContactUsername = u.Username
		c.ContactName = u.Name
	}
	return &c
}

func (st *state) contactList(ids []string) []*contact.Contact {
	out := make([]*contact.Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := st.contacts[id]; ok {
			out = append(out, st.fillContact(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactUsername < out[j].ContactUsername })
	return out
}

type contacts struct {
	st *state
}

func (c *contacts) Create(_ context.Context, ownerID string, in contact.CreateContactInput) (*contact.Contact, error) {
	if err := castUUID(in.ContactUserID); err != nil {
		return nil, err
	}
	if _, ok := c.st.users[in.ContactUserID]; !ok {
		return nil, contact.ErrNotFound
	}
	if _, err := c.Find(context.Background(), ownerID, in.ContactUserID); err == nil {
		return nil, contact.ErrDuplicate
	}
	ct := &contact.Contact{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		ContactUserID: in.ContactUserID,
		Phone:         in.Phone,
		Note:          in.Note,
		CreatedAt:     c.st.tick(),
	}
	c.st.contacts[ct.ID] = ct
	return c.st.fillContact(ct), nil
}

func (c *contacts) GetOrCreate(ctx context.Context, ownerID, contactUserID string) (*contact.Contact, error) {
	if ct, err := c.Find(ctx, ownerID, contactUserID); err == nil {
		return ct, nil
	}
	return c.Create(ctx, ownerID, contact.CreateContactInput{ContactUserID: contactUserID})
}

func (c *contacts) Find(_ context.Context, ownerID, contactUserID string) (*contact.Contact, error) {
	for _, ct := range c.st.contacts {
		if ct.OwnerID == ownerID && ct.ContactUserID == contactUserID {
			return c.st.fillContact(ct), nil
		}
	}
	return nil, contact.ErrNotFound
}

func (c *contacts) Get(_ context.Context, ownerID, id string) (*contact.Contact, error) {
	ct, ok := c.st.contacts[id]
	if !ok || ct.OwnerID != ownerID {
		return nil, contact.ErrNotFound
	}
	return c.st.fillContact(ct), nil
}

func (c *contacts) List(_ context.Context, ownerID string) ([]*contact.Contact, error) {
	var ids []string
	for id, ct := range c.st.contacts {
		if ct.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	return c.st.contactList(ids), nil
}

func (c *contacts) ListByIDs(_ context.Context, ownerID string, ids []string) ([]*contact.Contact, error) {
	var owned []string
	for _, id := range ids {
		if err := castUUID(id); err != nil {
			return nil, err
		}
		if ct, ok := c.st.contacts[id]; ok && ct.OwnerID == ownerID {
			owned = append(owned, id)
		}
	}
	return c.st.contactList(owned), nil
}

func (c *contacts) Update(_ context.Context, ownerID, id string, in contact.UpdateContactInput) (*contact.Contact, error) {
	ct, ok := c.st.contacts[id]
	if !ok || ct.OwnerID != ownerID {
		return nil, contact.ErrNotFound
	}
	if in.Phone != nil {
		ct.Phone = *in.Phone
	}
	if in.Note != nil {
		ct.Note = *in.Note
	}
	return c.st.fillContact(ct), nil
}

// --- messages ---

type messages struct {
	st   *state
	fail error
}

func (m *messages) Send(_ context.Context, in message.SendInput) (*message.Message, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	msg := &message.Message{
		ID:          uuid.NewString(),
		SenderID:    in.SenderID,
		RecipientID: in.RecipientID,
		Subject:     in.Subject,
		Body:        in.Body,
		Timestamp:   m.st.tick(),
	}
	m.st.messages = append(m.st.messages, msg)
	return m.st.fillMessage(msg), nil
}

func (st *state) fillMessage(stored *message.Message) *message.Message {
	msg := *stored
	if u := st.users[msg.SenderID]; u != nil {
		msg.SenderUsername = u.Username
	}
	if u := st.users[msg.RecipientID]; u != nil {
		msg.RecipientUsername = u.Username
	}
	return &msg
}

func (m *messages) filter(keep func(*message.Message) bool) []*message.Message {
	out := []*message.Message{}
	for i := len(m.st.messages) - 1; i >= 0; i-- {
		if msg := m.st.messages[i]; keep(msg) {
			out = append(out, m.st.fillMessage(msg))
		}
	}
	return out
}

// --- locked adapters for callers outside a transaction ---

// Contacts is the address book surface of the store, safe for concurrent use.
type Contacts struct {
	s *Store
}

// ContactStore returns the store's address book.
func (s *Store) ContactStore() *Contacts {
	return &Contacts{s: s}
}

func (c *Contacts) view() (*contacts, func()) {
	c.s.mu.Lock()
	return &contacts{st: c.s.state}, c.s.mu.Unlock
}

func (c *Contacts) Create(ctx context.Context, ownerID string, in contact.CreateContactInput) (*contact.Contact, error) {
	v, unlock := c.view()
	defer unlock()
	return v.Create(ctx, ownerID, in)
}

func (c *Contacts) Get(ctx context.Context, ownerID, id string) (*contact.Contact, error) {
	v, unlock := c.view()
	defer unlock()
	return v.Get(ctx, ownerID, id)
}

func (c *Contacts) List(ctx context.Context, ownerID string) ([]*contact.Contact, error) {
	v, unlock := c.view()
	defer unlock()
	return v.List(ctx, ownerID)
}

func (c *Contacts) Update(ctx context.Context, ownerID, id string, in contact.UpdateContactInput) (*contact.Contact, error) {
	v, unlock := c.view()
	defer unlock()
	return v.Update(ctx, ownerID, id, in)
}

// Messages is the mailbox surface of the store, safe for concurrent use.
type Messages struct {
	s *Store
}

// MessageStore returns the store's mailbox.
func (s *Store) MessageStore() *Messages {
	return &Messages{s: s}
}

func (m *Messages) view() (*messages, func()) {
	m.s.mu.Lock()
	return &messages{st: m.s.state, fail: m.s.FailSend}, m.s.mu.Unlock
}

func (m *Messages) Send(ctx context.Context, in message.SendInput) (*message.Message, error) {
	v, unlock := m.view()
	defer unlock()
	return v.Send(ctx, in)
}

func (m *Messages) Inbox(_ context.Context, userID string) ([]*message.Message, error) {
	v, unlock := m.view()
	defer unlock()
	return v.filter(func(msg *message.Message) bool {
		return msg.RecipientID == userID && !msg.IsArchived
	}), nil
}

func (m *Messages) Sent(_ context.Context, userID string) ([]*message.Message, error) {
	v, unlock := m.view()
	defer unlock()
	return v.filter(func(msg *message.Message) bool { return msg.SenderID == userID }), nil
}

func (m *Messages) UnreadCount(_ context.Context, userID string) (int, error) {
	v, unlock := m.view()
	defer unlock()
	return len(v.filter(func(msg *message.Message) bool {
		return msg.RecipientID == userID && !msg.IsRead && !msg.IsArchived
	})), nil
}

func (m *Messages) MarkRead(_ context.Context, userID, id string) (*message.Message, error) {
	v, unlock := m.view()
	defer unlock()
	for _, msg := range v.st.messages {
		if msg.ID == id && msg.RecipientID == userID {
			msg.IsRead = true
			return v.st.fillMessage(msg), nil
		}
	}
	return nil, message.ErrNotFound
}
