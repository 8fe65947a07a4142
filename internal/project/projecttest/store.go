// Package projecttest provides an in-memory, transactional implementation of
// the project collaborators for tests.
package projecttest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/contact"
	"github.com/alecgard/huddle/internal/message"
	"github.com/alecgard/huddle/internal/project"
	"github.com/google/uuid"
)

// Store holds users, contacts, messages and projects in memory. RunInTx
// serializes operations and restores the previous state when fn fails.
type Store struct {
	mu    sync.Mutex
	state *state

	// FailSend, when set, is returned by every message send.
	FailSend error
}

type state struct {
	clock        time.Time
	users        map[string]*auth.User
	contacts     map[string]*contact.Contact
	messages     []*message.Message
	projects     map[string]*project.Project
	stakeholders map[string][]string
	joinRequests map[string]*project.JoinRequest
	jrOrder      []string
	tasks        map[string]*project.Task
	assignees    map[string][]string
	activities   []*project.Activity
}

// New returns an empty store.
func New() *Store {
	return &Store{state: &state{
		clock:        time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		users:        make(map[string]*auth.User),
		contacts:     make(map[string]*contact.Contact),
		projects:     make(map[string]*project.Project),
		stakeholders: make(map[string][]string),
		joinRequests: make(map[string]*project.JoinRequest),
		tasks:        make(map[string]*project.Task),
		assignees:    make(map[string][]string),
	}}
}

func (st *state) clone() *state {
	c := &state{
		clock:        st.clock,
		users:        make(map[string]*auth.User, len(st.users)),
		contacts:     make(map[string]*contact.Contact, len(st.contacts)),
		messages:     make([]*message.Message, 0, len(st.messages)),
		projects:     make(map[string]*project.Project, len(st.projects)),
		stakeholders: make(map[string][]string, len(st.stakeholders)),
		joinRequests: make(map[string]*project.JoinRequest, len(st.joinRequests)),
		jrOrder:      append([]string(nil), st.jrOrder...),
		tasks:        make(map[string]*project.Task, len(st.tasks)),
		assignees:    make(map[string][]string, len(st.assignees)),
		activities:   make([]*project.Activity, 0, len(st.activities)),
	}
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.contacts {
		ct := *v
		c.contacts[k] = &ct
	}
	for _, v := range st.messages {
		m := *v
		c.messages = append(c.messages, &m)
	}
	for k, v := range st.projects {
		p := *v
		c.projects[k] = &p
	}
	for k, v := range st.stakeholders {
		c.stakeholders[k] = append([]string(nil), v...)
	}
	for k, v := range st.joinRequests {
		jr := *v
		c.joinRequests[k] = &jr
	}
	for k, v := range st.tasks {
		t := *v
		c.tasks[k] = &t
	}
	for k, v := range st.assignees {
		c.assignees[k] = append([]string(nil), v...)
	}
	for _, v := range st.activities {
		a := *v
		c.activities = append(c.activities, &a)
	}
	return c
}

func (st *state) tick() time.Time {
	st.clock = st.clock.Add(time.Second)
	return st.clock
}

// RunInTx runs fn against the store, rolling back on error.
func (s *Store) RunInTx(ctx context.Context, fn func(tx project.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&tx{st: s.state, failSend: s.FailSend}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// AddUser registers a user and returns it as an authenticated caller.
func (s *Store) AddUser(username string) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &auth.User{ID: uuid.NewString(), Username: username, Name: strings.ToUpper(username[:1]) + username[1:]}
	s.state.users[u.ID] = u
	cp := *u
	return &cp
}

// Messages returns a copy of every message sent so far, oldest first.
func (s *Store) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]message.Message, 0, len(s.state.messages))
	for _, m := range s.state.messages {
		out = append(out, *m)
	}
	return out
}

// Activities returns a copy of a project's activity log, oldest first.
func (s *Store) Activities(projectID string) []project.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []project.Activity
	for _, a := range s.state.activities {
		if a.ProjectID == projectID {
			out = append(out, *a)
		}
	}
	return out
}

// JoinRequests returns a copy of every join request on a project.
func (s *Store) JoinRequests(projectID string) []project.JoinRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []project.JoinRequest
	for _, id := range s.state.jrOrder {
		if jr := s.state.joinRequests[id]; jr.ProjectID == projectID {
			out = append(out, *s.state.fillJoinRequest(jr))
		}
	}
	return out
}

// Project returns the stored project with stakeholders, or nil.
func (s *Store) Project(id string) *project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.state.getProject(id)
	if err != nil {
		return nil
	}
	return p
}

// ContactCount returns the number of contacts owned by ownerID.
func (s *Store) ContactCount(ownerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.state.contacts {
		if c.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// TaskCount returns the number of tasks across all projects.
func (s *Store) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.tasks)
}

// --- transaction view ---

type tx struct {
	st       *state
	failSend error
}

func (t *tx) Projects() project.Repository       { return &repo{st: t.st} }
func (t *tx) Contacts() project.ContactDirectory { return &contacts{st: t.st} }
func (t *tx) Messages() project.Messenger        { return &messages{st: t.st, fail: t.failSend} }

// --- projects ---

type repo struct {
	st *state
}

func (st *state) getProject(id string) (*project.Project, error) {
	stored, ok := st.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	p := *stored
	if u := st.users[p.OwnerID]; u != nil {
		p.OwnerUsername = u.Username
	}
	p.Stakeholders = st.contactList(st.stakeholders[id])
	p.TotalTasks, p.CompletedTasks = 0, 0
	for _, t := range st.tasks {
		if t.ProjectID == id {
			p.TotalTasks++
			if t.IsComplete {
				p.CompletedTasks++
			}
		}
	}
	return &p, nil
}

func (r *repo) Insert(_ context.Context, p *project.Project) error {
	p.ID = uuid.NewString()
	p.CreatedAt = r.st.tick()
	stored := *p
	stored.Stakeholders = nil
	r.st.projects[p.ID] = &stored
	return nil
}

func (r *repo) Get(_ context.Context, id string) (*project.Project, error) {
	return r.st.getProject(id)
}

func (r *repo) Save(_ context.Context, p *project.Project) error {
	stored, ok := r.st.projects[p.ID]
	if !ok {
		return project.ErrNotFound
	}
	stored.Name = p.Name
	stored.Description = p.Description
	stored.StartDate = p.StartDate
	stored.EndDate = p.EndDate
	stored.IsPublic = p.IsPublic
	stored.Status = p.Status
	return nil
}

func (r *repo) SetStakeholders(_ context.Context, projectID string, contactIDs []string) error {
	r.st.stakeholders[projectID] = append([]string(nil), contactIDs...)
	return nil
}

func (r *repo) AddStakeholder(_ context.Context, projectID, contactID string) error {
	for _, id := range r.st.stakeholders[projectID] {
		if id == contactID {
			return nil
		}
	}
	r.st.stakeholders[projectID] = append(r.st.stakeholders[projectID], contactID)
	return nil
}

func (r *repo) RemoveStakeholder(_ context.Context, projectID, contactID string) (bool, error) {
	ids := r.st.stakeholders[projectID]
	for i, id := range ids {
		if id == contactID {
			r.st.stakeholders[projectID] = append(ids[:i:i], ids[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) List(_ context.Context, actorID string, f project.ListFilter, limit, offset int) ([]*project.Project, error) {
	actor := &auth.User{ID: actorID}
	var matched []*project.Project
	for id := range r.st.projects {
		p, _ := r.st.getProject(id)
		switch f.View {
		case project.ViewPublic:
			if !p.IsPublic {
				continue
			}
		case project.ViewAll:
			if !project.CanView(actor, p) {
				continue
			}
		default:
			if p.OwnerID != actorID {
				continue
			}
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		p.Stakeholders = nil
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartDate.Equal(matched[j].StartDate) {
			return matched[i].StartDate.After(matched[j].StartDate)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*project.Project{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *repo) Delete(_ context.Context, projectID string) error {
	if _, ok := r.st.projects[projectID]; !ok {
		return project.ErrNotFound
	}
	for id, t := range r.st.tasks {
		if t.ProjectID == projectID {
			delete(r.st.assignees, id)
			delete(r.st.tasks, id)
		}
	}
	order := r.st.jrOrder[:0:0]
	for _, id := range r.st.jrOrder {
		if r.st.joinRequests[id].ProjectID == projectID {
			delete(r.st.joinRequests, id)
			continue
		}
		order = append(order, id)
	}
	r.st.jrOrder = order
	delete(r.st.stakeholders, projectID)
	kept := r.st.activities[:0:0]
	for _, a := range r.st.activities {
		if a.ProjectID != projectID {
			kept = append(kept, a)
		}
	}
	r.st.activities = kept
	delete(r.st.projects, projectID)
	return nil
}

// --- join requests ---

func (st *state) fillJoinRequest(stored *project.JoinRequest) *project.JoinRequest {
	jr := *stored
	if u := st.users[jr.RequestingUserID]; u != nil {
		jr.RequestingUsername = u.Username
	}
	return &jr
}

func (r *repo) GetOrCreateJoinRequest(ctx context.Context, projectID, userID string) (*project.JoinRequest, bool, error) {
	if jr, err := r.FindJoinRequest(ctx, projectID, userID); err == nil {
		return jr, false, nil
	}
	jr := &project.JoinRequest{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		RequestingUserID: userID,
		Status:           project.JoinPending,
		CreatedAt:        r.st.tick(),
	}
	r.st.joinRequests[jr.ID] = jr
	r.st.jrOrder = append(r.st.jrOrder, jr.ID)
	return r.st.fillJoinRequest(jr), true, nil
}

func (r *repo) GetJoinRequest(_ context.Context, id string) (*project.JoinRequest, error) {
	jr, ok := r.st.joinRequests[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return r.st.fillJoinRequest(jr), nil
}

func (r *repo) FindJoinRequest(_ context.Context, projectID, userID string) (*project.JoinRequest, error) {
	for _, jr := range r.st.joinRequests {
		if jr.ProjectID == projectID && jr.RequestingUserID == userID {
			return r.st.fillJoinRequest(jr), nil
		}
	}
	return nil, project.ErrNotFound
}

func (r *repo) SetJoinRequestStatus(_ context.Context, id string, status project.JoinRequestStatus) error {
	jr, ok := r.st.joinRequests[id]
	if !ok {
		return project.ErrNotFound
	}
	jr.Status = status
	return nil
}

func (r *repo) ListJoinRequests(_ context.Context, projectID string, status project.JoinRequestStatus) ([]*project.JoinRequest, error) {
	out := []*project.JoinRequest{}
	for _, id := range r.st.jrOrder {
		jr := r.st.joinRequests[id]
		if jr.ProjectID != projectID || (status != "" && jr.Status != status) {
			continue
		}
		out = append(out, r.st.fillJoinRequest(jr))
	}
	return out, nil
}

// --- tasks ---

func (r *repo) InsertTask(_ context.Context, t *project.Task) error {
	t.ID = uuid.NewString()
	t.CreatedAt = r.st.tick()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.AssignedTo = nil
	r.st.tasks[t.ID] = &stored
	return nil
}

func (r *repo) GetTask(_ context.Context, id string) (*project.Task, error) {
	stored, ok := r.st.tasks[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	t := *stored
	t.AssignedTo = r.st.contactList(r.st.assignees[id])
	return &t, nil
}

func (r *repo) SaveTask(_ context.Context, t *project.Task) error {
	stored, ok := r.st.tasks[t.ID]
	if !ok {
		return project.ErrNotFound
	}
	t.UpdatedAt = r.st.tick()
	stored.Title = t.Title
	stored.Description = t.Description
	stored.DueDate = t.DueDate
	stored.IsComplete = t.IsComplete
	stored.UpdatedAt = t.UpdatedAt
	return nil
}

func (r *repo) SetTaskAssignees(_ context.Context, taskID string, contactIDs []string) error {
	r.st.assignees[taskID] = append([]string(nil), contactIDs...)
	return nil
}

func (r *repo) ListTasks(ctx context.Context, projectID string) ([]*project.Task, error) {
	out := []*project.Task{}
	for id, t := range r.st.tasks {
		if t.ProjectID == projectID {
			task, _ := r.GetTask(ctx, id)
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// --- activities ---

func (r *repo) AddActivity(_ context.Context, a *project.Activity) error {
	a.ID = uuid.NewString()
	a.Timestamp = r.st.tick()
	stored := *a
	r.st.activities = append(r.st.activities, &stored)
	return nil
}

func (r *repo) ListActivities(_ context.Context, projectID string) ([]*project.Activity, error) {
	out := []*project.Activity{}
	for i := len(r.st.activities) - 1; i >= 0; i-- {
		if a := r.st.activities[i]; a.ProjectID == projectID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
