package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/divoxx/echosrv/internal/logger"
	"github.com/divoxx/echosrv/internal/ratelimiter"
	"github.com/divoxx/echosrv/pkg/transport"
)

// StreamServer is the connection-oriented engine: an accept-and-dispatch
// loop over any StreamTransport, with admission control and drain
// shutdown.
//
// Each accepted connection runs a read/reply loop in its own goroutine
// until the peer closes, a timeout fires, or I/O fails. Shutdown stops
// accepting but deliberately does not cancel dispatched connections:
// they run to their own terminal state (drain, not abort), bounded by
// their read timeouts.
type StreamServer struct {
	transport transport.StreamTransport
	config    Config
	handler   Handler
	shutdown  *ShutdownController

	mu       sync.Mutex
	listener net.Listener

	// activeConns tracks dispatched connection goroutines for draining.
	activeConns sync.WaitGroup

	// connCount is the admission-control counter. Incremented with a
	// compare-and-swap against MaxConnections, decremented
	// unconditionally when the connection goroutine finishes.
	connCount atomic.Int32

	limiter   *ratelimiter.PerClient
	sizeCheck ratelimiter.SizeValidator
}

// NewStream builds a stream server over the given transport. A nil
// handler echoes payloads unchanged.
func NewStream(t transport.StreamTransport, cfg Config, handler Handler) *StreamServer {
	cfg.applyDefaults()
	if handler == nil {
		handler = Echo
	}
	return &StreamServer{
		transport: t,
		config:    cfg,
		handler:   handler,
		shutdown:  NewShutdownController(),
		limiter:   ratelimiter.NewPerClient(cfg.RequestsPerSecond, cfg.RateBurst),
		sizeCheck: ratelimiter.NewSizeValidator(cfg.MaxRequestSize),
	}
}

// Shutdown returns the server's shutdown controller so callers can fire
// or observe the shutdown signal.
func (s *StreamServer) Shutdown() *ShutdownController {
	return s.shutdown
}

// Protocol returns the transport name, for logs and the Engine.
func (s *StreamServer) Protocol() string {
	return s.transport.Name()
}

// Addr returns the bound listener address, or "" before Serve has
// provisioned the socket. Useful with ephemeral ports.
func (s *StreamServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// ActiveConnections returns the number of live connection goroutines.
func (s *StreamServer) ActiveConnections() int32 {
	return s.connCount.Load()
}

// Serve provisions the listening socket and accepts connections until
// the context is cancelled or the shutdown signal fires. A bind failure
// is fatal; individual accept failures are logged and the loop
// continues.
func (s *StreamServer) Serve(ctx context.Context) error {
	listenCfg := transport.ListenConfig{
		ServiceName: s.config.ServiceName,
		Strategy:    s.config.Strategy,
		Options:     s.config.Options,
	}

	var (
		ln  net.Listener
		err error
	)
	if s.config.Inheritance != nil {
		ln, err = s.transport.ListenWith(listenCfg, s.config.Inheritance)
	} else {
		ln, err = s.transport.Listen(listenCfg)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info("%s server %s listening on %s", s.Protocol(), s.config.ServiceName, ln.Addr())

	// Closing the listener is how both the external interrupt (ctx) and
	// the internal shutdown signal break the accept loop.
	go func() {
		select {
		case <-ctx.Done():
			s.shutdown.Shutdown()
		case <-s.shutdown.Done():
		}
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shutdown.Triggered() || ctx.Err() != nil {
				return s.drain()
			}
			logger.Warn("%s accept failed: %v", s.Protocol(), err)
			continue
		}

		if !s.admit() {
			// Immediate drop, no handshake, no response: a hard
			// admission cutoff rather than backpressure.
			logger.Warn("%s connection rejected from %s: limit %d reached",
				s.Protocol(), conn.RemoteAddr(), s.config.MaxConnections)
			conn.Close()
			continue
		}

		current := s.connCount.Load()
		logger.Debug("%s connection accepted from %s (active: %d)",
			s.Protocol(), conn.RemoteAddr(), current)

		s.activeConns.Add(1)
		go func(conn net.Conn) {
			defer func() {
				s.connCount.Add(-1)
				s.activeConns.Done()
				logger.Debug("%s connection closed from %s (active: %d)",
					s.Protocol(), conn.RemoteAddr(), s.connCount.Load())
			}()
			s.handleConn(conn)
		}(conn)
	}
}

// admit performs the check-and-increment admission step atomically.
func (s *StreamServer) admit() bool {
	max := s.config.MaxConnections
	for {
		current := s.connCount.Load()
		if max > 0 && current >= max {
			return false
		}
		if s.connCount.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// handleConn runs one connection's read/reply loop to its terminal
// state. No shutdown signal is consulted here: in-flight connections
// drain naturally, bounded by their timeouts.
func (s *StreamServer) handleConn(conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr()
	buf := make([]byte, s.config.BufferSize)

	for {
		if s.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		n, err := conn.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("%s connection from %s closed by peer", s.Protocol(), peer)
			case transport.IsTimeout(err):
				logger.Warn("%s read timeout from %s", s.Protocol(), peer)
			case transport.IsClosed(err):
				logger.Debug("%s connection from %s closed", s.Protocol(), peer)
			default:
				logger.Error("%s read from %s failed: %v", s.Protocol(), peer, err)
			}
			return
		}
		if n == 0 {
			continue
		}

		if err := s.sizeCheck.Validate(n); err != nil {
			logger.Error("%s request from %s rejected: %v", s.Protocol(), peer, err)
			return
		}
		if !s.limiter.Allow(peer.String()) {
			logger.Warn("%s rate limit exceeded by %s", s.Protocol(), peer)
			return
		}

		reply := s.handler(buf[:n])

		if s.config.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if _, err := conn.Write(reply); err != nil {
			if transport.IsTimeout(err) {
				logger.Warn("%s write timeout to %s", s.Protocol(), peer)
			} else {
				logger.Error("%s write to %s failed: %v", s.Protocol(), peer, err)
			}
			return
		}
	}
}

// drain waits for dispatched connections to reach their natural end.
func (s *StreamServer) drain() error {
	if active := s.connCount.Load(); active > 0 {
		logger.Info("%s server draining %d active connection(s)", s.Protocol(), active)
	}
	s.activeConns.Wait()
	logger.Info("%s server %s stopped", s.Protocol(), s.config.ServiceName)
	return nil
}

// Stop fires the shutdown signal and waits for the drain to finish or
// the context to expire. Safe to call multiple times and concurrently
// with Serve.
func (s *StreamServer) Stop(ctx context.Context) error {
	s.shutdown.Shutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("%s stop interrupted with %d connection(s) still draining: %v",
			s.Protocol(), s.connCount.Load(), ctx.Err())
		return ctx.Err()
	}
}
