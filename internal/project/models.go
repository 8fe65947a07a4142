package project

import (
	"time"

	"github.com/alecgard/huddle/internal/contact"
)

// Status is the lifecycle state of a project.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusOnHold     Status = "ON_HOLD"
)

// Valid reports whether s is a known project status.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusOnHold:
		return true
	}
	return false
}

// JoinRequestStatus is the state of a join request. PENDING is the only
// non-terminal state.
type JoinRequestStatus string

const (
	JoinPending  JoinRequestStatus = "PENDING"
	JoinAccepted JoinRequestStatus = "ACCEPTED"
	JoinRejected JoinRequestStatus = "REJECTED"
)

// Project is a shared project owned by one user. Stakeholders are contacts
// owned by OwnerID.
type Project struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	IsPublic       bool               `json:"is_public"`
	Status         Status             `json:"status"`
	OwnerID        string             `json:"owner_id"`
	OwnerUsername  string             `json:"owner_username"`
	CreatedAt      time.Time          `json:"created_at"`
	Stakeholders   []*contact.Contact `json:"stakeholders"`
	TotalTasks     int                `json:"total_tasks"`
	CompletedTasks int                `json:"completed_tasks"`
}

// Progress is the floor percentage of completed tasks, 0 with no tasks.
func (p *Project) Progress() int {
	if p.TotalTasks == 0 {
		return 0
	}
	return 100 * p.CompletedTasks / p.TotalTasks
}

// StakeholderFor returns the stakeholder contact for userID, or nil.
func (p *Project) StakeholderFor(userID string) *contact.Contact {
	for _, c := range p.Stakeholders {
		if c.OwnerID == p.OwnerID && c.ContactUserID == userID {
			return c
		}
	}
	return nil
}

// StakeholderIDs returns the contact ids of the stakeholder set.
func (p *Project) StakeholderIDs() []string {
	ids := make([]string, 0, len(p.Stakeholders))
	for _, c := range p.Stakeholders {
		ids = append(ids, c.ID)
	}
	return ids
}

// JoinRequest is a user's petition to become a stakeholder of a public
// project.
type JoinRequest struct {
	ID                 string            `json:"id"`
	ProjectID          string            `json:"project_id"`
	RequestingUserID   string            `json:"requesting_user_id"`
	RequestingUsername string            `json:"requesting_username"`
	Status             JoinRequestStatus `json:"status"`
	CreatedAt          time.Time         `json:"created_at"`
}

// Task is a unit of work on a project, assignable to stakeholders.
type Task struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"project_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	DueDate     time.Time          `json:"due_date"`
	IsComplete  bool               `json:"is_complete"`
	AssignedTo  []*contact.Contact `json:"assigned_to"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Activity is an immutable audit entry on a project.
type Activity struct {
	ID                string    `json:"id"`
	ProjectID         string    `json:"project_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	CreatedBy         string    `json:"created_by,omitempty"`
	CreatedByUsername string    `json:"created_by_username,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// CreateInput holds the form fields of a new project. Dates are YYYY-MM-DD.
type CreateInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	IsPublic       bool     `json:"is_public"`
	Status         string   `json:"status"`
	StakeholderIDs []string `json:"stakeholders"`
}

// UpdateInput holds optional fields for a partial project update.
type UpdateInput struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	StartDate      *string   `json:"start_date,omitempty"`
	EndDate        *string   `json:"end_date,omitempty"`
	IsPublic       *bool     `json:"is_public,omitempty"`
	Status         *string   `json:"status,omitempty"`
	StakeholderIDs *[]string `json:"stakeholders,omitempty"`
}

// CreateTaskInput holds the form fields of a new task.
type CreateTaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	AssignedTo  []string `json:"assigned_to"`
}

// UpdateTaskInput holds optional fields for a partial task update.
type UpdateTaskInput struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	IsComplete  *bool     `json:"is_complete,omitempty"`
	AssignedTo  *[]string `json:"assigned_to,omitempty"`
}

// List views.
const (
	ViewMine   = "mine"
	ViewPublic = "public"
	ViewAll    = "all"
)

// PageSize is the number of projects per list page.
const PageSize = 10

// ListFilter narrows a project listing.
type ListFilter struct {
	View   string
	Query  string
	Status Status
	Page   int
}

// ListPage is one page of a project listing.
type ListPage struct {
	Projects []*Project `json:"projects"`
	Page     int        `json:"page"`
	HasNext  bool       `json:"has_next"`
}

// Detail is a project as seen by one viewer.
type Detail struct {
	Project         *Project          `json:"project"`
	Progress        int               `json:"progress"`
	Tasks           []*Task           `json:"tasks"`
	Activities      []*Activity       `json:"activities"`
	IsOwner         bool              `json:"is_owner"`
	IsStakeholder   bool              `json:"is_stakeholder"`
	CanManage       bool              `json:"can_manage"`
	JoinStatus      JoinRequestStatus `json:"join_request_status,omitempty"`
	PendingRequests []*JoinRequest    `json:"pending_requests,omitempty"`
}

// JoinResult reports the outcome of RequestJoin. Created is false when a
// request already existed; Request then carries its current status.
type JoinResult struct {
	Request *JoinRequest `json:"join_request"`
	Created bool         `json:"created"`
}

// LeaveResult reports the outcome of LeaveProject. Left is false when the
// user was not a stakeholder.
type LeaveResult struct {
	Left bool `json:"left"`
}
