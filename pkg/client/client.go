// Package client provides transport-driven echo clients, used by the
// test suite and by protocols without a bespoke client.
package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/divoxx/echosrv/pkg/transport"
)

// Config holds client-side timeouts and size bounds.
type Config struct {
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout bounds each read while accumulating the response.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the request.
	WriteTimeout time.Duration

	// BufferSize is the per-read chunk size.
	BufferSize int

	// MaxResponseSize caps the accumulated response. Exceeding it is a
	// fatal error, not silent truncation.
	MaxResponseSize int
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = 10 * 1024 * 1024
	}
}

// Client is a stream echo client over any StreamTransport.
type Client struct {
	conn   net.Conn
	config Config
}

// Dial connects to a stream server, bounded by the connect timeout.
func Dial(t transport.StreamTransport, addr string, cfg Config) (*Client, error) {
	cfg.applyDefaults()

	conn, err := t.Dial(addr, cfg.ConnectTimeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, fmt.Errorf("connect %s: %w", addr, transport.ErrTimeout)
		}
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &Client{conn: conn, config: cfg}, nil
}

// Request writes the payload then reads the reply until as many bytes
// as were sent have arrived.
//
// Stopping at the request length assumes reply length equals request
// length. That holds for the echo domain this client serves; it is not
// a general-purpose client behavior. The read also stops on peer close,
// and a read timeout is fatal only while fewer bytes than were sent
// have been received.
func (c *Client) Request(payload []byte) ([]byte, error) {
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if _, err := c.conn.Write(payload); err != nil {
		if transport.IsTimeout(err) {
			return nil, fmt.Errorf("write request: %w", transport.ErrTimeout)
		}
		return nil, fmt.Errorf("write request: %w", err)
	}

	response := make([]byte, 0, len(payload))
	buf := make([]byte, c.config.BufferSize)

	for len(response) < len(payload) {
		if c.config.ReadTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}
		n, err := c.conn.Read(buf)
		if n > 0 {
			if len(response)+n > c.config.MaxResponseSize {
				return nil, fmt.Errorf("response of %d+ bytes: %w",
					len(response)+n, transport.ErrResponseTooLarge)
			}
			response = append(response, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if transport.IsTimeout(err) {
				if len(response) >= len(payload) {
					break
				}
				return nil, fmt.Errorf("read response (%d of %d bytes): %w",
					len(response), len(payload), transport.ErrTimeout)
			}
			return nil, fmt.Errorf("read response: %w", err)
		}
	}

	return response, nil
}

// RequestString is Request over strings.
func (c *Client) RequestString(payload string) (string, error) {
	resp, err := c.Request([]byte(payload))
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
