package project

import "github.com/alecgard/huddle/internal/auth"

// Predicate is an access check of a user against a project. A nil user is
// anonymous and fails every predicate.
type Predicate func(u *auth.User, p *Project) bool

// IsOwner reports whether u owns p.
func IsOwner(u *auth.User, p *Project) bool {
	return u != nil && u.ID == p.OwnerID
}

// IsStakeholder reports whether one of p's stakeholder contacts points at u.
func IsStakeholder(u *auth.User, p *Project) bool {
	return u != nil && p.StakeholderFor(u.ID) != nil
}

// CanView reports whether u may see p at all.
func CanView(u *auth.User, p *Project) bool {
	if u == nil {
		return false
	}
	return p.IsPublic || IsOwner(u, p) || IsStakeholder(u, p)
}

// CanManage reports whether u may edit p and its tasks.
func CanManage(u *auth.User, p *Project) bool {
	return IsOwner(u, p) || IsStakeholder(u, p)
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Allow Decision = iota
	DenyNotFound
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotFound:
		return "not_found"
	case DenyForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Err converts a denial into ErrNotFound or ErrForbidden. Allow yields nil.
func (d Decision) Err() error {
	switch d {
	case DenyNotFound:
		return ErrNotFound
	case DenyForbidden:
		return ErrForbidden
	}
	return nil
}

// Authorize checks pred for u on p. Callers that cannot view p get
// DenyNotFound so that hidden projects are indistinguishable from missing
// ones; callers that can view it but fail pred get DenyForbidden.
func Authorize(u *auth.User, p *Project, pred Predicate) Decision {
	if !CanView(u, p) {
		return DenyNotFound
	}
	if !pred(u, p) {
		return DenyForbidden
	}
	return Allow
}
