package message

import (
	"errors"
	"strings"
	"testing"
)

func TestSendInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		wantErr error
	}{
		{"empty subject", "", nil},
		{"subject at limit", strings.Repeat("s", 255), nil},
		{"subject too long", strings.Repeat("s", 256), ErrSubjectTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SendInput{SenderID: "a", RecipientID: "b", Subject: tt.subject}.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSendRejectsLongSubjectBeforeQuery(t *testing.T) {
	// A nil DBTX would panic if Send reached the database.
	s := NewStore(nil)
	_, err := s.Send(t.Context(), SendInput{Subject: strings.Repeat("x", 300)})
	if !errors.Is(err, ErrSubjectTooLong) {
		t.Fatalf("expected ErrSubjectTooLong, got %v", err)
	}
}
