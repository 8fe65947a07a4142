package contact

import (
	"errors"
	"strings"
	"testing"
)

func TestCreateContactInputValidate(t *testing.T) {
	const (
		owner = "6f1c1d3e-8b7a-4c55-9a0e-1f2d3c4b5a60"
		other = "0b8e7d6c-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
	)
	tests := []struct {
		name    string
		in      CreateContactInput
		wantErr error
	}{
		{"valid", CreateContactInput{ContactUserID: other, Phone: "+44 20 7946 0000"}, nil},
		{"self contact", CreateContactInput{ContactUserID: owner}, ErrSelfContact},
		{"self contact upper-case", CreateContactInput{ContactUserID: strings.ToUpper(owner)}, ErrSelfContact},
		{"phone at limit", CreateContactInput{ContactUserID: other, Phone: strings.Repeat("1", 20)}, nil},
		{"phone too long", CreateContactInput{ContactUserID: other, Phone: strings.Repeat("1", 21)}, ErrPhoneLength},
		{"malformed user id", CreateContactInput{ContactUserID: "nope"}, ErrInvalidUser},
		{"empty user id", CreateContactInput{}, ErrInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(owner)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	c := &Contact{ContactUsername: "bob"}
	if got := c.DisplayName(); got != "bob" {
		t.Errorf("expected username fallback, got %q", got)
	}
	c.ContactName = "Bob Builder"
	if got := c.DisplayName(); got != "Bob Builder" {
		t.Errorf("expected full name, got %q", got)
	}
}
