package auth

import "context"

// User is the authenticated caller resolved from a session token. A nil
// *User is the anonymous caller.
type User struct {
	ID       string
	Username string
	Email    string
	Name     string
}

// SessionLookup is the interface for resolving session tokens to users.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*User, error)
}
