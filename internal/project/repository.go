package project

import (
	"context"

	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/message"
)

// Repository is the persistence surface of projects and their dependent
// rows. Get returns ErrNotFound for unknown ids.
type Repository interface {
	Insert(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	Save(ctx context.Context, p *Project) error
	SetStakeholders(ctx context.Context, projectID string, contactIDs []string) error
	AddStakeholder(ctx context.Context, projectID, contactID string) error
	RemoveStakeholder(ctx context.Context, projectID, contactID string) (bool, error)
	List(ctx context.Context, actorID string, f ListFilter, limit, offset int) ([]*Project, error)
	Delete(ctx context.Context, projectID string) error

	GetOrCreateJoinRequest(ctx context.Context, projectID, userID string) (*JoinRequest, bool, error)
	GetJoinRequest(ctx context.Context, id string) (*JoinRequest, error)
	FindJoinRequest(ctx context.Context, projectID, userID string) (*JoinRequest, error)
	SetJoinRequestStatus(ctx context.Context, id string, status JoinRequestStatus) error
	ListJoinRequests(ctx context.Context, projectID string, status JoinRequestStatus) ([]*JoinRequest, error)

	InsertTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	SaveTask(ctx context.Context, t *Task) error
	SetTaskAssignees(ctx context.Context, taskID string, contactIDs []string) error
	ListTasks(ctx context.Context, projectID string) ([]*Task, error)

	AddActivity(ctx context.Context, a *Activity) error
	ListActivities(ctx context.Context, projectID string) ([]*Activity, error)
}

// ContactDirectory is the part of the address book the workflow mutates.
type ContactDirectory interface {
	GetOrCreate(ctx context.Context, ownerID, contactUserID string) (*contact.Contact, error)
	ListByIDs(ctx context.Context, ownerID string, ids []string) ([]*contact.Contact, error)
}

// Messenger sends notifications. Delivery is not confirmed.
type Messenger interface {
	Send(ctx context.Context, in message.SendInput) (*message.Message, error)
}

// Tx binds the collaborators to one database transaction.
type Tx interface {
	Projects() Repository
	Contacts() ContactDirectory
	Messages() Messenger
}

// TxRunner runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
