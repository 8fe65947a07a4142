package user

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username is already taken")
	ErrUsernameInvalid  = errors.New("username must be 3-150 characters of letters, digits and @.+-_")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]{3,150}$`)

// ValidateCreate checks registration input before it reaches the store.
func ValidateCreate(in CreateUserInput) error {
	if !usernamePattern.MatchString(strings.TrimSpace(in.Username)) {
		return ErrUsernameInvalid
	}
	if len(in.Password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
