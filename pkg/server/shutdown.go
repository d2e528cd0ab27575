package server

import "sync"

// ShutdownController is a one-shot, multi-observer shutdown signal.
//
// Any number of observers may wait on Done(); firing is idempotent and
// observed by current and future observers alike. A closed channel is
// the broadcast primitive: every receive on it completes immediately
// once Shutdown has run.
type ShutdownController struct {
	once sync.Once
	done chan struct{}
}

func NewShutdownController() *ShutdownController {
	return &ShutdownController{done: make(chan struct{})}
}

// Shutdown fires the signal. Subsequent calls are no-ops.
func (c *ShutdownController) Shutdown() {
	c.once.Do(func() { close(c.done) })
}

// Done returns the channel observers select on.
func (c *ShutdownController) Done() <-chan struct{} {
	return c.done
}

// Triggered reports whether the signal has fired.
func (c *ShutdownController) Triggered() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
