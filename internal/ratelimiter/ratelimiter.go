package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter provides request rate limiting using the token bucket algorithm.
//
// This implementation wraps golang.org/x/time/rate to provide:
//   - Token bucket rate limiting (allows bursts while enforcing sustained rate)
//   - Context-aware waiting (respects cancellation)
//   - Zero-allocation fast path for allowed requests
//   - Thread-safe operation
//
// The token bucket algorithm works as follows:
//  1. Tokens are added to the bucket at a constant rate (requests per second)
//  2. Each request consumes one token from the bucket
//  3. If the bucket is empty, the request is either rejected or waits for a token
//  4. Burst capacity allows temporary spikes above the sustained rate
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a new RateLimiter with the specified rate and burst capacity.
//
// Parameters:
//   - requestsPerSecond: Maximum sustained rate (tokens added per second)
//   - burst: Maximum burst size (bucket capacity in tokens)
//
// The burst parameter controls how many requests can be served immediately
// when the bucket is full. It should typically be >= requestsPerSecond.
//
// Special cases:
//   - requestsPerSecond = 0: No rate limiting (unlimited)
//   - burst = 0: No burst allowed (only sustained rate)
//
// Returns a configured RateLimiter.
func New(requestsPerSecond, burst uint) *RateLimiter {
	return &RateLimiter{limiter: newBucket(requestsPerSecond, burst)}
}

// newBucket builds the underlying token bucket, mapping rate 0 to an
// effectively unlimited limiter.
func newBucket(requestsPerSecond, burst uint) *rate.Limiter {
	if requestsPerSecond == 0 {
		// Unlimited rate: use a very high limit
		// rate.Inf would be ideal but has edge cases, so use a large value
		requestsPerSecond = 1_000_000_000 // 1 billion req/s (effectively unlimited)
		burst = requestsPerSecond
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst))
}

// Allow checks if a request is allowed under the current rate limit.
//
// This is the fast path for rate limiting - it returns immediately without
// waiting.
//
// Returns:
//   - true if the request is allowed (token consumed)
//   - false if the request should be rejected (no tokens available)
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
//
// This is the slow path for rate limiting - it waits for a token to become
// available instead of rejecting the request immediately.
//
// Returns:
//   - nil if a token was acquired
//   - context error if the context was cancelled before a token was available
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit updates the rate limit to a new value.
//
// This allows dynamic rate limit adjustments without creating a new limiter.
//
// Thread safety:
// Safe to call concurrently.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		requestsPerSecond = 1_000_000_000 // Effectively unlimited
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// SetBurst updates the burst size to a new value.
func (r *RateLimiter) SetBurst(burst uint) {
	r.limiter.SetBurst(int(burst))
}

// Tokens returns the current number of available tokens.
//
// This is primarily useful for monitoring and debugging. Note that the value
// may change immediately after this call due to concurrent access or token
// replenishment.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
