package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(cfg)
	rl.now = c.now
	t.Cleanup(rl.Stop)
	return rl, c
}

func TestAllowWindow(t *testing.T) {
	rl, c := newTestLimiter(t, Config{Requests: 3, Window: time.Minute})

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatalf("fourth request should be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("other keys have their own budget")
	}
	if got := rl.RetryAfter("a"); got != time.Minute {
		t.Fatalf("retry after = %v", got)
	}

	c.t = c.t.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("new window should reset the budget")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, c := newTestLimiter(t, Config{Requests: 1, Window: time.Minute})
	rl.Allow("a")
	c.t = c.t.Add(90 * time.Second)
	rl.Allow("b")
	c.t = c.t.Add(time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("removed %d entries", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active = %d", rl.ActiveClients())
	}
}

func TestDefaultsApplied(t *testing.T) {
	rl := NewLimiter(Config{})
	if rl.limit != 60 || rl.window != time.Minute {
		t.Fatalf("unexpected defaults %d %v", rl.limit, rl.window)
	}
	rl.Stop()
	rl.Stop()
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, Config{Requests: 1, Window: time.Minute})
	limited := 0
	h := rl.Middleware(
		func(r *http.Request) string { return r.RemoteAddr },
		func(w http.ResponseWriter, r *http.Request) {
			limited++
			w.WriteHeader(http.StatusTooManyRequests)
		},
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if i == 1 && rr.Header().Get("Retry-After") == "" {
			t.Fatalf("missing Retry-After")
		}
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests || limited != 1 {
		t.Fatalf("codes=%v limited=%d", codes, limited)
	}
}
