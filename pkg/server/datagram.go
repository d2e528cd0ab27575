package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/divoxx/echosrv/internal/logger"
	"github.com/divoxx/echosrv/internal/ratelimiter"
	"github.com/divoxx/echosrv/pkg/transport"
)

// DatagramServer is the connectionless engine: a single receive-and-reply
// loop over any DatagramTransport.
//
// Datagrams carry no per-peer state and are cheap relative to connection
// setup, so there is no concurrency gate; each reply is sent
// synchronously before the next receive. A receive timeout is logged and
// the loop continues, unlike the stream read timeout which terminates a
// connection.
type DatagramServer struct {
	transport transport.DatagramTransport
	config    Config
	handler   Handler
	shutdown  *ShutdownController

	mu   sync.Mutex
	conn net.PacketConn

	limiter   *ratelimiter.PerClient
	sizeCheck ratelimiter.SizeValidator
}

// NewDatagram builds a datagram server over the given transport. A nil
// handler echoes payloads unchanged.
func NewDatagram(t transport.DatagramTransport, cfg Config, handler Handler) *DatagramServer {
	cfg.applyDefaults()
	if handler == nil {
		handler = Echo
	}
	return &DatagramServer{
		transport: t,
		config:    cfg,
		handler:   handler,
		shutdown:  NewShutdownController(),
		limiter:   ratelimiter.NewPerClient(cfg.RequestsPerSecond, cfg.RateBurst),
		sizeCheck: ratelimiter.NewSizeValidator(cfg.MaxRequestSize),
	}
}

// Shutdown returns the server's shutdown controller.
func (s *DatagramServer) Shutdown() *ShutdownController {
	return s.shutdown
}

// Protocol returns the transport name.
func (s *DatagramServer) Protocol() string {
	return s.transport.Name()
}

// Addr returns the bound socket address, or "" before Serve has
// provisioned it.
func (s *DatagramServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.LocalAddr().String()
}

// Serve provisions the datagram socket and echoes messages until the
// context is cancelled or the shutdown signal fires. Receive errors are
// logged, never surfaced to any peer: datagram protocols have no
// reliable error channel back to an unidentified sender.
func (s *DatagramServer) Serve(ctx context.Context) error {
	listenCfg := transport.ListenConfig{
		ServiceName: s.config.ServiceName,
		Strategy:    s.config.Strategy,
		Options:     s.config.Options,
	}

	var (
		pc  net.PacketConn
		err error
	)
	if s.config.Inheritance != nil {
		pc, err = s.transport.ListenWith(listenCfg, s.config.Inheritance)
	} else {
		pc, err = s.transport.Listen(listenCfg)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = pc
	s.mu.Unlock()

	logger.Info("%s server %s listening on %s", s.Protocol(), s.config.ServiceName, pc.LocalAddr())

	go func() {
		select {
		case <-ctx.Done():
			s.shutdown.Shutdown()
		case <-s.shutdown.Done():
		}
		pc.Close()
	}()

	buf := make([]byte, s.config.BufferSize)
	for {
		if s.config.ReadTimeout > 0 {
			_ = pc.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			if s.shutdown.Triggered() || ctx.Err() != nil {
				logger.Info("%s server %s stopped", s.Protocol(), s.config.ServiceName)
				return nil
			}
			if transport.IsTimeout(err) {
				logger.Debug("%s receive timeout, continuing", s.Protocol())
				continue
			}
			logger.Error("%s receive failed: %v", s.Protocol(), err)
			continue
		}

		logger.Debug("%s datagram from %s (%d bytes)", s.Protocol(), addr, n)

		// An unbound Unix-domain sender has no address to reply to.
		if addr == nil || addr.String() == "" {
			logger.Error("%s datagram from unnamed peer, cannot reply", s.Protocol())
			continue
		}

		if err := s.sizeCheck.Validate(n); err != nil {
			logger.Error("%s datagram from %s rejected: %v", s.Protocol(), addr, err)
			continue
		}
		if !s.limiter.Allow(addr.String()) {
			logger.Warn("%s rate limit exceeded by %s, dropping datagram", s.Protocol(), addr)
			continue
		}

		reply := s.handler(buf[:n])

		if s.config.WriteTimeout > 0 {
			_ = pc.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		}
		if _, err := pc.WriteTo(reply, addr); err != nil {
			logger.Error("%s reply to %s failed: %v", s.Protocol(), addr, err)
		}
	}
}

// Stop fires the shutdown signal. The receive loop observes it at its
// next wakeup, when the closed socket fails its pending read.
func (s *DatagramServer) Stop(_ context.Context) error {
	s.shutdown.Shutdown()
	return nil
}
