package project

import (
	"context"
	"strings"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/contact"
)

// stakeholderAssignees maps contact ids to p's stakeholders, rejecting any
// id outside the stakeholder set.
func stakeholderAssignees(p *Project, ids []string) ([]*contact.Contact, error) {
	byID := make(map[string]*contact.Contact, len(p.Stakeholders))
	for _, c := range p.Stakeholders {
		byID[c.ID] = c
	}
	out := make([]*contact.Contact, 0, len(ids))
	for _, id := range dedupe(ids) {
		c, ok := byID[id]
		if !ok {
			return nil, &ValidationError{Fields: map[string]string{
				"assigned_to": "Select a valid choice. Tasks can only be assigned to project stakeholders.",
			}}
		}
		out = append(out, c)
	}
	return out, nil
}

func contactIDs(cs []*contact.Contact) []string {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		ids = append(ids, c.ID)
	}
	return ids
}

func usernames(cs []*contact.Contact) string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		names = append(names, c.ContactUsername)
	}
	return strings.Join(names, ", ")
}

// CreateTask adds a task to a project actor can manage.
func (s *Service) CreateTask(ctx context.Context, actor *auth.User, projectID string, in CreateTaskInput) (*Task, error) {
	var created *Task
	err := s.run(ctx, "task_create", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		p, err := load(ctx, repo, actor, projectID, CanManage)
		if err != nil {
			return err
		}
		t, err := in.build(p.ID)
		if err != nil {
			return err
		}
		if t.AssignedTo, err = stakeholderAssignees(p, in.AssignedTo); err != nil {
			return err
		}

		if err := repo.InsertTask(ctx, t); err != nil {
			return err
		}
		if err := repo.SetTaskAssignees(ctx, t.ID, contactIDs(t.AssignedTo)); err != nil {
			return err
		}
		created = t
		return j.record(ctx, repo, p, actor, "Task Created: "+t.Title, "Assigned to: "+usernames(t.AssignedTo))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateTask applies a partial update to a task. Toggling completion is
// logged as completed or reopened; any other change as an edit.
func (s *Service) UpdateTask(ctx context.Context, actor *auth.User, taskID string, in UpdateTaskInput) (*Task, error) {
	var updated *Task
	err := s.run(ctx, "task_update", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		t, err := repo.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		p, err := load(ctx, repo, actor, t.ProjectID, CanManage)
		if err != nil {
			return err
		}

		wasComplete := t.IsComplete
		if err := in.apply(t); err != nil {
			return err
		}
		if in.AssignedTo != nil {
			if t.AssignedTo, err = stakeholderAssignees(p, *in.AssignedTo); err != nil {
				return err
			}
		}

		if err := repo.SaveTask(ctx, t); err != nil {
			return err
		}
		if in.AssignedTo != nil {
			if err := repo.SetTaskAssignees(ctx, t.ID, contactIDs(t.AssignedTo)); err != nil {
				return err
			}
		}
		updated = t

		if t.IsComplete != wasComplete {
			state := "reopened"
			if t.IsComplete {
				state = "completed"
			}
			return j.record(ctx, repo, p, actor, "Task "+state+": "+t.Title, "Task was marked "+state+" by "+actor.Username+".")
		}
		return j.record(ctx, repo, p, actor, "Task Updated: "+t.Title, "Edited by "+actor.Username+".")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
