package ratelimiter

import (
	"context"
	"testing"
	"time"
)

func TestNew_Unlimited(t *testing.T) {
	limiter := New(0, 0)

	// With no limit every request passes.
	for i := 0; i < 1000; i++ {
		if !limiter.Allow() {
			t.Fatalf("Request %d rejected by unlimited limiter", i)
		}
	}
}

func TestAllow_RespectsBurst(t *testing.T) {
	limiter := New(1, 5)

	allowed := 0
	for i := 0; i < 10; i++ {
		if limiter.Allow() {
			allowed++
		}
	}

	// The bucket starts full at burst capacity; nothing refills within
	// this test's timescale.
	if allowed != 5 {
		t.Errorf("Expected 5 requests allowed, got %d", allowed)
	}
}

func TestWait_CancelledContext(t *testing.T) {
	limiter := New(1, 1)
	limiter.Allow() // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when the context expires first")
	}
}

func TestWait_TokenAvailable(t *testing.T) {
	limiter := New(100, 10)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.Wait(ctx); err != nil {
		t.Errorf("Expected Wait to succeed with tokens available: %v", err)
	}
}

func TestSetLimit(t *testing.T) {
	limiter := New(1, 1)
	limiter.Allow()

	// Raising the limit and burst refills headroom over time; at
	// minimum the limiter keeps functioning.
	limiter.SetLimit(1000)
	limiter.SetBurst(1000)

	time.Sleep(20 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("Expected a token after raising the limit")
	}
}

func TestTokens(t *testing.T) {
	limiter := New(10, 10)

	before := limiter.Tokens()
	limiter.Allow()
	after := limiter.Tokens()

	if after >= before {
		t.Errorf("Expected token count to drop after Allow: before=%f after=%f", before, after)
	}
}
