package utils

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d must be allowed", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("request over the limit must be rejected")
	}
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first request for a must pass")
	}
	if !rl.Allow("b") {
		t.Error("b has its own window")
	}
	if rl.Allow("a") {
		t.Error("a is exhausted")
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("client") {
		t.Fatal("first request must pass")
	}
	if rl.Allow("client") {
		t.Fatal("second request must be limited")
	}

	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("client") {
		t.Error("request after the window must pass again")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	if got := rl.Remaining("client"); got != 5 {
		t.Errorf("fresh key: expected 5 remaining, got %d", got)
	}
	rl.Allow("client")
	rl.Allow("client")
	if got := rl.Remaining("client"); got != 3 {
		t.Errorf("after 2 requests: expected 3 remaining, got %d", got)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	rl.Allow("client")
	if rl.Allow("client") {
		t.Fatal("client must be limited")
	}
	rl.Reset("client")
	if !rl.Allow("client") {
		t.Error("reset must clear the window")
	}
}
