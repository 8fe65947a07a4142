package project

import (
	"context"

	"github.com/alecgard/huddle/internal/auth"
)

// RequestJoin files actor's request to join a public project. Asking twice
// returns the existing request with Created false and has no side effects.
func (s *Service) RequestJoin(ctx context.Context, actor *auth.User, projectID string) (*JoinResult, error) {
	var res *JoinResult
	err := s.run(ctx, "join_request", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		p, err := repo.Get(ctx, projectID)
		if err != nil {
			return err
		}
		if !p.IsPublic {
			return ErrNotFound
		}
		if IsOwner(actor, p) {
			return ErrOwnProject
		}
		if IsStakeholder(actor, p) {
			return ErrAlreadyStakeholder
		}

		jr, created, err := repo.GetOrCreateJoinRequest(ctx, p.ID, actor.ID)
		if err != nil {
			return err
		}
		res = &JoinResult{Request: jr, Created: created}
		if !created {
			return nil
		}

		j.transitions = append(j.transitions, JoinPending)
		if err := j.record(ctx, repo, p, actor, "Join Request Submitted", actor.Username+" requested to join this project."); err != nil {
			return err
		}
		return j.notify(ctx, tx.Messages(), noticeJoinRequested, joinRequestedNotice(p, actor, s.publicURL))
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveJoinRequest loads a pending join request the actor owns the
// project of.
func resolveJoinRequest(ctx context.Context, repo Repository, actor *auth.User, id string) (*JoinRequest, *Project, error) {
	jr, err := repo.GetJoinRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	p, err := load(ctx, repo, actor, jr.ProjectID, IsOwner)
	if err != nil {
		return nil, nil, err
	}
	if jr.Status != JoinPending {
		return nil, nil, ErrAlreadyResolved
	}
	return jr, p, nil
}

// AcceptJoinRequest makes the requester a stakeholder. Both users gain each
// other as contacts; the owner's contact for the requester joins the
// stakeholder set.
func (s *Service) AcceptJoinRequest(ctx context.Context, actor *auth.User, id string) (*JoinRequest, error) {
	var accepted *JoinRequest
	err := s.run(ctx, "join_accept", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		jr, p, err := resolveJoinRequest(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if err := repo.SetJoinRequestStatus(ctx, jr.ID, JoinAccepted); err != nil {
			return err
		}
		jr.Status = JoinAccepted
		j.transitions = append(j.transitions, JoinAccepted)

		contacts := tx.Contacts()
		if _, err := contacts.GetOrCreate(ctx, jr.RequestingUserID, actor.ID); err != nil {
			return err
		}
		c, err := contacts.GetOrCreate(ctx, actor.ID, jr.RequestingUserID)
		if err != nil {
			return err
		}
		if err := repo.AddStakeholder(ctx, p.ID, c.ID); err != nil {
			return err
		}

		accepted = jr
		return j.record(ctx, repo, p, actor, "Join Request Accepted", jr.RequestingUsername+" was added to project stakeholders.")
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// RejectJoinRequest declines a pending request and tells the requester.
func (s *Service) RejectJoinRequest(ctx context.Context, actor *auth.User, id string) (*JoinRequest, error) {
	var rejected *JoinRequest
	err := s.run(ctx, "join_reject", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		jr, p, err := resolveJoinRequest(ctx, repo, actor, id)
		if err != nil {
			return err
		}
		if err := repo.SetJoinRequestStatus(ctx, jr.ID, JoinRejected); err != nil {
			return err
		}
		jr.Status = JoinRejected
		j.transitions = append(j.transitions, JoinRejected)

		if err := j.notify(ctx, tx.Messages(), noticeJoinRejected, joinRejectedNotice(p, actor, jr)); err != nil {
			return err
		}
		rejected = jr
		return j.record(ctx, repo, p, actor, "Join Request Rejected", jr.RequestingUsername+"'s join request was rejected.")
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// LeaveProject removes actor from the stakeholder set. Leaving a project
// actor is not a stakeholder of is a no-op reported as Left false.
func (s *Service) LeaveProject(ctx context.Context, actor *auth.User, projectID string) (*LeaveResult, error) {
	res := &LeaveResult{}
	err := s.run(ctx, "leave", actor, func(tx Tx, j *journal) error {
		repo := tx.Projects()
		p, err := load(ctx, repo, actor, projectID, CanView)
		if err != nil {
			return err
		}
		if IsOwner(actor, p) {
			return ErrOwnerCannotLeave
		}

		c := p.StakeholderFor(actor.ID)
		if c == nil {
			return nil
		}
		removed, err := repo.RemoveStakeholder(ctx, p.ID, c.ID)
		if err != nil || !removed {
			return err
		}
		res.Left = true

		if err := j.notify(ctx, tx.Messages(), noticeStakeholderLeft, stakeholderLeftNotice(p, actor)); err != nil {
			return err
		}
		return j.record(ctx, repo, p, actor, "Stakeholder Left", actor.Username+" left the project.")
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListJoinRequests returns a project's join requests to its owner. An empty
// status lists all of them.
func (s *Service) ListJoinRequests(ctx context.Context, actor *auth.User, projectID string, status JoinRequestStatus) ([]*JoinRequest, error) {
	switch status {
	case "", JoinPending, JoinAccepted, JoinRejected:
	default:
		err := &ValidationError{Fields: map[string]string{"status": "Unknown join request status " + string(status) + "."}}
		s.observe("join_list", err)
		return nil, err
	}

	var requests []*JoinRequest
	err := s.run(ctx, "join_list", actor, func(tx Tx, _ *journal) error {
		repo := tx.Projects()
		p, err := load(ctx, repo, actor, projectID, IsOwner)
		if err != nil {
			return err
		}
		requests, err = repo.ListJoinRequests(ctx, p.ID, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	return requests, nil
}
