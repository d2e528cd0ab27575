package server

import (
	"time"

	"github.com/divoxx/echosrv/pkg/activation"
)

// Config is the per-server configuration snapshot. It is owned by one
// server instance; connection goroutines read it but never mutate it.
type Config struct {
	// ServiceName identifies this server when looking up inherited
	// descriptors and in log output.
	ServiceName string

	// Strategy governs how the listening socket is obtained.
	Strategy activation.Strategy

	// Inheritance overrides the process environment as the source of
	// inherited descriptors. Nil means detect from the environment.
	Inheritance *activation.InheritanceConfig

	// BufferSize is the receive buffer size. For datagram servers it
	// bounds the largest message accepted whole.
	BufferSize int

	// ReadTimeout bounds each read. For stream connections hitting it
	// terminates the connection with a warning; for datagram servers a
	// receive timeout is logged and the loop continues.
	ReadTimeout time.Duration

	// WriteTimeout bounds each reply write.
	WriteTimeout time.Duration

	// MaxConnections is the stream admission-control ceiling. A
	// connection accepted at the ceiling is dropped immediately with no
	// response. Zero means unlimited. Ignored by datagram servers.
	MaxConnections int32

	// MaxRequestSize caps a single request in bytes. Oversized requests
	// are rejected without a reply. Zero means unlimited.
	MaxRequestSize int

	// RequestsPerSecond throttles each client with its own token bucket.
	// Requests over the rate are dropped. Zero means unlimited.
	RequestsPerSecond uint

	// RateBurst is the per-client burst capacity. Defaults to
	// RequestsPerSecond when zero.
	RateBurst uint

	// Options holds transport-specific settings passed through to the
	// transport at listen time.
	Options map[string]any
}

func (c *Config) applyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.RateBurst == 0 {
		c.RateBurst = c.RequestsPerSecond
	}
}
