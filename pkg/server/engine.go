package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/divoxx/echosrv/internal/logger"
)

// Adapter is a protocol server the Engine can manage: one listening
// socket, one serve loop. StreamServer and DatagramServer both
// implement it.
type Adapter interface {
	// Serve provisions the socket and blocks until the context is
	// cancelled or shutdown fires. Returning early with an error is
	// treated as fatal by the Engine.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown; the context bounds the wait.
	// Must be idempotent and safe concurrently with Serve.
	Stop(ctx context.Context) error

	// Protocol is the transport name, for logs.
	Protocol() string

	// Addr is the bound address, "" before Serve starts.
	Addr() string
}

// Engine runs several protocol adapters as one service: the TCP, UDP
// and Unix-domain variants of the echo service started and stopped
// together.
//
// Lifecycle: AddAdapter for each enabled protocol, then Serve once.
// Context cancellation or the first adapter failure stops all adapters,
// in reverse registration order, and Serve returns after every adapter
// goroutine has finished.
type Engine struct {
	mu       sync.RWMutex
	adapters []Adapter
	served   bool

	serveOnce sync.Once

	// stopTimeout bounds each adapter's Stop during shutdown.
	stopTimeout time.Duration
}

// NewEngine creates an empty engine. stopTimeout bounds per-adapter
// graceful shutdown; zero means 30 seconds.
func NewEngine(stopTimeout time.Duration) *Engine {
	if stopTimeout <= 0 {
		stopTimeout = 30 * time.Second
	}
	return &Engine{stopTimeout: stopTimeout}
}

// AddAdapter registers an adapter. Duplicate protocol names are
// rejected so log lines stay unambiguous. Must not be called after
// Serve.
func (e *Engine) AddAdapter(a Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.served {
		panic("cannot add adapter after Serve() has been called")
	}

	for _, existing := range e.adapters {
		if existing.Protocol() == a.Protocol() {
			return fmt.Errorf("adapter for protocol %s already registered", a.Protocol())
		}
	}

	e.adapters = append(e.adapters, a)
	logger.Info("Registered %s adapter", a.Protocol())
	return nil
}

// Adapters returns a snapshot of the registered adapters.
func (e *Engine) Adapters() []Adapter {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Adapter, len(e.adapters))
	copy(out, e.adapters)
	return out
}

// Serve starts all adapters concurrently and blocks until the context
// is cancelled or an adapter fails. On either event every adapter is
// stopped and Serve waits for all of them before returning. Serve may
// only be called once.
func (e *Engine) Serve(ctx context.Context) error {
	var err error
	called := false
	e.serveOnce.Do(func() {
		called = true
		err = e.serve(ctx)
	})
	if !called {
		panic("Serve() has already been called on this engine")
	}
	return err
}

type adapterError struct {
	protocol string
	err      error
}

func (e *Engine) serve(ctx context.Context) error {
	e.mu.Lock()
	e.served = true
	if len(e.adapters) == 0 {
		e.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]Adapter, len(e.adapters))
	copy(adapters, e.adapters)
	e.mu.Unlock()

	logger.Info("Starting engine with %d adapter(s)", len(adapters))

	// Buffered so simultaneously failing adapters never block.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			if err := a.Serve(ctx); err != nil {
				if ctx.Err() == nil {
					logger.Error("%s adapter failed: %v", a.Protocol(), err)
					errChan <- adapterError{protocol: a.Protocol(), err: err}
					return
				}
			}
			logger.Debug("%s adapter stopped", a.Protocol())
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		e.stopAll(adapters)
		shutdownErr = ctx.Err()

	case ae := <-errChan:
		logger.Error("%s adapter failed, stopping all adapters", ae.protocol)
		e.stopAll(adapters)
		shutdownErr = fmt.Errorf("%s adapter: %w", ae.protocol, ae.err)
	}

	wg.Wait()
	logger.Info("Engine stopped")
	return shutdownErr
}

// stopAll stops adapters in reverse registration order, each bounded by
// the engine's stop timeout.
func (e *Engine) stopAll(adapters []Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), e.stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Protocol(), err)
		}
	}
}
