package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "http://example.com/baskets.csv"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}
	if limiter.Allow(url) {
		t.Error("expected allow to fail (exhausted tokens)")
	}
	if !limiter.Allow("http://other.com/data.csv") {
		t.Error("expected allow for other host")
	}
}

func TestLimiter_LocalInputsUnlimited(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	for i := 0; i < 5; i++ {
		if !limiter.Allow("baskets.csv") {
			t.Fatal("local inputs must not be limited")
		}
	}
	if err := limiter.Wait(context.Background(), "sample:grocery"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetHostRate("slow.com", 0.1, 1)

	if !limiter.Allow("http://slow.com/a.csv") {
		t.Error("first request should pass")
	}
	if limiter.Allow("https://slow.com/b.csv") {
		t.Error("second request should fail")
	}
	if !limiter.Allow("http://fast.com/a.csv") {
		t.Error("other host should pass")
	}
}

func TestRemoteHost(t *testing.T) {
	tests := []struct {
		input  string
		host   string
		remote bool
	}{
		{"http://example.com/foo.csv", "example.com", true},
		{"https://example.com:8443/x", "example.com:8443", true},
		{"data/baskets.csv", "", false},
		{"sample:grocery", "", false},
	}
	for _, tt := range tests {
		host, ok := remoteHost(tt.input)
		if host != tt.host || ok != tt.remote {
			t.Errorf("remoteHost(%q) = %q, %v; want %q, %v", tt.input, host, ok, tt.host, tt.remote)
		}
	}
}

func TestThrottle(t *testing.T) {
	th := NewThrottle(time.Hour, 1)
	if !th.Allow() {
		t.Error("first event should pass")
	}
	if th.Allow() {
		t.Error("second event within the interval should be throttled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := th.Wait(ctx); err == nil {
		t.Error("expected Wait to fail before the interval elapses")
	}

	unlimited := NewThrottle(0, 0)
	for i := 0; i < 3; i++ {
		if !unlimited.Allow() {
			t.Fatal("zero interval should not throttle")
		}
	}
}
