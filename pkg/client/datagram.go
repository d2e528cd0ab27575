package client

import (
	"fmt"
	"net"
	"time"

	"github.com/divoxx/echosrv/pkg/transport"
)

// DatagramClient exchanges single messages with a datagram echo server
// over a connected socket, so replies are only accepted from the dialed
// peer.
type DatagramClient struct {
	conn   net.Conn
	config Config
}

// DialDatagram creates a connected datagram socket to the server.
func DialDatagram(t transport.DatagramTransport, addr string, cfg Config) (*DatagramClient, error) {
	cfg.applyDefaults()

	conn, err := t.Dial(addr, cfg.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &DatagramClient{conn: conn, config: cfg}, nil
}

// Request sends one datagram and waits for one reply. Message
// boundaries are preserved: the reply is a single datagram, read whole.
func (c *DatagramClient) Request(payload []byte) ([]byte, error) {
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if _, err := c.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("send datagram: %w", err)
	}

	size := c.config.BufferSize
	if len(payload) > size {
		size = len(payload)
	}
	buf := make([]byte, size)

	if c.config.ReadTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, fmt.Errorf("await reply: %w", transport.ErrTimeout)
		}
		return nil, fmt.Errorf("receive reply: %w", err)
	}

	reply := make([]byte, n)
	copy(reply, buf[:n])
	return reply, nil
}

// RequestString is Request over strings.
func (c *DatagramClient) RequestString(payload string) (string, error) {
	resp, err := c.Request([]byte(payload))
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func (c *DatagramClient) Close() error {
	return c.conn.Close()
}
