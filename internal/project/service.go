package project

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/events"
	"github.com/alecgard/huddle/internal/message"
	"github.com/google/uuid"
)

// MetricsRecorder is an optional interface for recording workflow metrics.
type MetricsRecorder interface {
	IncProjectOperation(op, outcome string)
	IncJoinTransition(status string)
	IncNotification(kind string)
	IncEventPublished(outcome string)
}

// Service implements the project collaboration workflow. Every operation
// takes the acting user explicitly and runs in a single transaction;
// activity events are published only after that transaction commits.
type Service struct {
	tx        TxRunner
	events    events.Publisher
	metrics   MetricsRecorder
	publicURL string
}

// NewService creates a project service. A nil publisher disables event
// fan-out.
func NewService(tx TxRunner, publisher events.Publisher, publicURL string) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{tx: tx, events: publisher, publicURL: publicURL}
}

// SetMetrics sets the optional metrics recorder.
func (s *Service) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// journal collects the side effects of one operation that are reported
// after commit.
type journal struct {
	events        []events.Event
	notifications []string
	transitions   []JoinRequestStatus
}

func (j *journal) record(ctx context.Context, repo Repository, p *Project, actor *auth.User, title, description string) error {
	a := &Activity{
		ProjectID:         p.ID,
		Title:             title,
		Description:       description,
		CreatedBy:         actor.ID,
		CreatedByUsername: actor.Username,
	}
	if err := repo.AddActivity(ctx, a); err != nil {
		return err
	}
	j.events = append(j.events, events.Event{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Title:       a.Title,
		Description: a.Description,
		ActorID:     actor.ID,
		Timestamp:   a.Timestamp,
	})
	return nil
}

func (j *journal) notify(ctx context.Context, m Messenger, kind string, in message.SendInput) error {
	if _, err := m.Send(ctx, in); err != nil {
		return err
	}
	j.notifications = append(j.notifications, kind)
	return nil
}

// run executes fn in a transaction and, on commit, flushes the journal.
func (s *Service) run(ctx context.Context, op string, actor *auth.User, fn func(tx Tx, j *journal) error) error {
	if actor == nil {
		s.observe(op, ErrForbidden)
		return ErrForbidden
	}

	var j *journal
	err := s.tx.RunInTx(ctx, func(tx Tx) error {
		j = &journal{}
		return fn(tx, j)
	})
	s.observe(op, err)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		for _, kind := range j.notifications {
			s.metrics.IncNotification(kind)
		}
		for _, st := range j.transitions {
			s.metrics.IncJoinTransition(string(st))
		}
	}
	for _, ev := range j.events {
		outcome := "ok"
		if err := s.events.Publish(ctx, ev); err != nil {
			outcome = "error"
			slog.Warn("publishing activity event failed", "project_id", ev.ProjectID, "title", ev.Title, "error", err)
		}
		if s.metrics != nil {
			s.metrics.IncEventPublished(outcome)
		}
	}
	return nil
}

func (s *Service) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncProjectOperation(op, Outcome(err))
}

// Outcome classifies an operation error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "error"
}

// load fetches a project and applies the access check.
func load(ctx context.Context, repo Repository, actor *auth.User, id string, pred Predicate) (*Project, error) {
	p, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, p, pred).Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ownedContacts resolves ids to contacts of ownerID, rejecting any id that
// is malformed, unknown or belongs to another owner. The returned ids are in
// canonical uuid form.
func ownedContacts(ctx context.Context, dir ContactDirectory, ownerID string, ids []string, field string) ([]string, error) {
	invalid := func() error {
		v := &ValidationError{}
		v.add(field, "Select a valid choice. One or more contacts are not among the owner's contacts.")
		return v
	}
	canonical := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, invalid()
		}
		canonical = append(canonical, u.String())
	}
	ids = dedupe(canonical)
	if len(ids) == 0 {
		return ids, nil
	}
	found, err := dir.ListByIDs(ctx, ownerID, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, invalid()
	}
	return ids, nil
}

// Create stores a new project owned by actor.
func (s *Service) Create(ctx context.Context, actor *auth.User, in CreateInput) (*Project, error) {
	var created *Project
	err := s.run(ctx, "create", actor, func(tx Tx, j *journal) error {
		p, err := in.build(actor.ID)
		if err != nil {
			return err
		}
		ids, err := ownedContacts(ctx, tx.Contacts(), actor.ID, in.StakeholderIDs, "stakeholders")
		if err != nil {
			return err
		}

		repo := tx.Projects()
		if err := repo.Insert(ctx, p); err != nil {
			return err
		}
		if err := repo.SetStakeholders(ctx, p.ID, ids); err != nil {
			return err
		}
		if err := j.record(ctx, repo, p, actor, "Project Created", actor.Username+" created this project."); err != nil {
			return err
		}
		created, err = repo.Get(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update. Any manager may edit the project fields;
// only the owner may change the stakeholder set.
func (s *Service) Update(ctx context.Context, actor *auth.User, id string, in UpdateInput) (*Project, error) {
	var updated *Project
	err := s.run(ctx, "update", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		p, err := load(ctx, repo, actor, id, CanManage)
		if err != nil {
			return err
		}
		if in.StakeholderIDs != nil && !IsOwner(actor, p) {
			return ErrForbidden
		}
		if err := in.apply(p); err != nil {
			return err
		}

		var ids []string
		if in.StakeholderIDs != nil {
			if ids, err = ownedContacts(ctx, tx.Contacts(), p.OwnerID, *in.StakeholderIDs, "stakeholders"); err != nil {
				return err
			}
		}

		if err := repo.Save(ctx, p); err != nil {
			return err
		}
		if in.StakeholderIDs != nil {
			if err := repo.SetStakeholders(ctx, p.ID, ids); err != nil {
				return err
			}
		}
		if err := j.record(ctx, repo, p, actor, "Project Updated", actor.Username+" updated this project."); err != nil {
			return err
		}
		updated, err = repo.Get(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a project owned by actor once confirmName matches its name
// exactly. Projects actor does not own are reported as not found.
func (s *Service) Delete(ctx context.Context, actor *auth.User, id, confirmName string) error {
	return s.run(ctx, "delete", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		p, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !IsOwner(actor, p) {
			return ErrNotFound
		}
		if confirmName != p.Name {
			return ErrConfirmMismatch
		}
		if err := j.record(ctx, repo, p, actor, "Project Deleted", actor.Username+" deleted this project."); err != nil {
			return err
		}
		return repo.Delete(ctx, p.ID)
	})
}

// List returns one page of projects visible under f.
func (s *Service) List(ctx context.Context, actor *auth.User, f ListFilter) (*ListPage, error) {
	f, err := f.normalize()
	if err != nil {
		s.observe("list", err)
		return nil, err
	}

	page := &ListPage{Page: f.Page}
	err = s.run(ctx, "list", actor, func(tx Tx, _ *journal) error {
		projects, err := tx.Projects().List(ctx, actor.ID, f, PageSize+1, (f.Page-1)*PageSize)
		if err != nil {
			return err
		}
		if len(projects) > PageSize {
			page.HasNext = true
			projects = projects[:PageSize]
		}
		page.Projects = projects
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// Detail returns a project as seen by actor.
func (s *Service) Detail(ctx context.Context, actor *auth.User, id string) (*Detail, error) {
	var d *Detail
	err := s.run(ctx, "detail", actor, func(tx Tx, _ *journal) error {
		repo := tx.Projects()
		p, err := load(ctx, repo, actor, id, CanView)
		if err != nil {
			return err
		}

		d = &Detail{
			Project:       p,
			Progress:      p.Progress(),
			IsOwner:       IsOwner(actor, p),
			IsStakeholder: IsStakeholder(actor, p),
			CanManage:     CanManage(actor, p),
		}
		if d.Tasks, err = repo.ListTasks(ctx, p.ID); err != nil {
			return err
		}
		if d.Activities, err = repo.ListActivities(ctx, p.ID); err != nil {
			return err
		}

		if d.IsOwner {
			d.PendingRequests, err = repo.ListJoinRequests(ctx, p.ID, JoinPending)
			return err
		}
		jr, err := repo.FindJoinRequest(ctx, p.ID, actor.ID)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			d.JoinStatus = jr.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
