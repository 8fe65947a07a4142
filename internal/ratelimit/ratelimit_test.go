package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeClock is a controllable time source for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(burst int, window time.Duration) (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(burst, window)
	l.now = clock.Now
	return l, clock
}

func TestTakeExhaustsBurst(t *testing.T) {
	l, _ := newTestLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Take("10.0.0.1"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, wait := l.Take("10.0.0.1")
	if ok {
		t.Fatal("4th attempt should be throttled")
	}
	// 3 per minute refills one token every 20s.
	if wait < 19*time.Second || wait > 21*time.Second {
		t.Errorf("unexpected wait %v", wait)
	}

	if ok, _ := l.Take("10.0.0.2"); !ok {
		t.Error("another key should have its own bucket")
	}
}

func TestTakeRefills(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    int
	}{
		{"no time passed", 0, 0},
		{"one token", time.Second, 1},
		{"partial refill", 2500 * time.Millisecond, 2},
		{"capped at burst", time.Hour, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 5 per 5s refills one token per second.
			l, clock := newTestLimiter(5, 5*time.Second)
			for i := 0; i < 5; i++ {
				l.Take("k")
			}
			clock.Advance(tt.advance)

			allowed := 0
			for i := 0; i < 10; i++ {
				if ok, _ := l.Take("k"); ok {
					allowed++
				}
			}
			if allowed != tt.want {
				t.Errorf("allowed %d, want %d", allowed, tt.want)
			}
		})
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(2, time.Minute)
	l.Take("busy")
	l.Take("busy")
	l.Take("idle")

	clock.Advance(40 * time.Second)
	// idle has refilled; busy is still short of its burst.
	if n := l.Sweep(); n != 1 {
		t.Fatalf("expected 1 bucket swept, got %d", n)
	}
	if l.Len() != 1 {
		t.Fatalf("expected 1 remaining bucket, got %d", l.Len())
	}

	clock.Advance(time.Minute)
	l.Sweep()
	if l.Len() != 0 {
		t.Fatalf("expected all buckets swept, got %d", l.Len())
	}
}

func TestConcurrentTake(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := l.Take("shared")
			allowed <- ok
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", count)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := ClientIP(r); got != tt.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(2, time.Minute)
	rejected := 0
	h := Middleware(l, ClientIP, func() { rejected++ })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		h.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
		codes = append(codes, last.Code)
	}

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: got %d, want %d", i+1, codes[i], want[i])
		}
	}
	if rejected != 1 {
		t.Errorf("expected 1 rejection callback, got %d", rejected)
	}
	if ra := last.Header().Get("Retry-After"); ra != "30" {
		t.Errorf("Retry-After = %q, want 30", ra)
	}
	if ct := last.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}
