package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1", 3, time.Minute) {
		t.Error("fourth request in the window should be blocked")
	}

	// other keys are unaffected
	if !rl.Allow("10.0.0.2", 3, time.Minute) {
		t.Error("a different key should be allowed")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("k", 1, 10*time.Millisecond) {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("k", 1, 10*time.Millisecond) {
		t.Fatal("second request should be blocked")
	}
	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("k", 1, 10*time.Millisecond) {
		t.Error("request after the window should be allowed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, RealIP, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/login", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d, want 204", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest("POST", "/api/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestRealIP(t *testing.T) {
	cases := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", "192.168.1.5:1234", "", "192.168.1.5"},
		{"single forwarded", "10.0.0.1:1234", "203.0.113.9", "203.0.113.9"},
		{"forwarded chain", "10.0.0.1:1234", "203.0.113.9, 10.0.0.1", "203.0.113.9"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if tc.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tc.forwarded)
		}
		if got := RealIP(req); got != tc.want {
			t.Errorf("%s: RealIP = %q, want %q", tc.name, got, tc.want)
		}
	}
}
