package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PerClient maintains an independent token bucket per client identity.
//
// Clients are keyed by an opaque string, typically a remote address. Each
// client's bucket is created lazily on first use and shares the same rate
// and burst parameters.
//
// Entries for clients that go quiet are not removed automatically; callers
// that serve churning client populations should call Prune periodically.
//
// Thread safety:
// All methods are safe for concurrent use.
type PerClient struct {
	mu      sync.Mutex
	clients map[string]*clientBucket

	requestsPerSecond uint
	burst             uint
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPerClient creates a per-client rate limiter.
//
// A requestsPerSecond of 0 disables limiting: Allow always returns true and
// no per-client state is tracked.
func NewPerClient(requestsPerSecond, burst uint) *PerClient {
	return &PerClient{
		clients:           make(map[string]*clientBucket),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
	}
}

// Allow checks whether the given client may issue a request right now,
// consuming a token from that client's bucket if so.
func (p *PerClient) Allow(client string) bool {
	if p.requestsPerSecond == 0 {
		return true
	}

	p.mu.Lock()
	entry, ok := p.clients[client]
	if !ok {
		entry = &clientBucket{limiter: newBucket(p.requestsPerSecond, p.burst)}
		p.clients[client] = entry
	}
	entry.lastSeen = time.Now()
	p.mu.Unlock()

	return entry.limiter.Allow()
}

// Prune removes buckets for clients that have been idle longer than maxIdle
// and returns the number of entries removed.
func (p *PerClient) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for client, entry := range p.clients {
		if entry.lastSeen.Before(cutoff) {
			delete(p.clients, client)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (p *PerClient) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
