package user

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateUserInput
		wantErr error
	}{
		{"valid", CreateUserInput{Username: "alice", Password: "correct-horse"}, nil},
		{"username with allowed symbols", CreateUserInput{Username: "a.b+c@d-e_f", Password: "12345678"}, nil},
		{"username too short", CreateUserInput{Username: "al", Password: "12345678"}, ErrUsernameInvalid},
		{"username with space", CreateUserInput{Username: "al ice", Password: "12345678"}, ErrUsernameInvalid},
		{"username too long", CreateUserInput{Username: strings.Repeat("a", 151), Password: "12345678"}, ErrUsernameInvalid},
		{"empty username", CreateUserInput{Password: "12345678"}, ErrUsernameInvalid},
		{"short password", CreateUserInput{Username: "alice", Password: "1234567"}, ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreate(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateCreate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	a := hashToken("token")
	b := hashToken("token")
	if a != b {
		t.Fatalf("hashToken not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if hashToken("other") == a {
		t.Error("different tokens should hash differently")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u := &User{PasswordHash: string(hash)}
	if !CheckPassword(u, "secret-password") {
		t.Error("correct password should verify")
	}
	if CheckPassword(u, "wrong-password") {
		t.Error("wrong password should not verify")
	}
}

type countingCleaner struct {
	calls atomic.Int32
	err   error
}

func (c *countingCleaner) CleanExpiredSessions(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return 1, nil
}

func TestRunSessionJanitorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cleaner := &countingCleaner{}

	done := make(chan struct{})
	go func() {
		RunSessionJanitor(ctx, cleaner, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cleaner.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("janitor did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}

func TestRunSessionJanitorReportsPurges(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantPurge bool
	}{
		{"successful pass", nil, true},
		{"failed pass", errors.New("db down"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cleaner := &countingCleaner{err: tt.err}

			var purged atomic.Int64
			go RunSessionJanitor(ctx, cleaner, 5*time.Millisecond, func(n int64) { purged.Add(n) })

			deadline := time.After(2 * time.Second)
			for cleaner.calls.Load() < 3 {
				select {
				case <-deadline:
					t.Fatal("janitor did not run")
				case <-time.After(5 * time.Millisecond):
				}
			}
			cancel()

			if got := purged.Load() > 0; got != tt.wantPurge {
				t.Errorf("purge reported = %v, want %v", got, tt.wantPurge)
			}
		})
	}
}
