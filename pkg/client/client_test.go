package client

import (
	"bytes"
	"errors"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/divoxx/echosrv/pkg/transport"
)

// startEchoListener runs a minimal echo loop on a loopback TCP listener.
func startEchoListener(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 4096)
				for {
					n, err := conn.Read(buf)
					if err != nil {
						return
					}
					if _, err := conn.Write(buf[:n]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().String()
}

func TestClient_Request(t *testing.T) {
	addr := startEchoListener(t)

	c, err := Dial(transport.TCP{}, addr, Config{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	payload := []byte("round and back")
	reply, err := c.Request(payload)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Errorf("Expected %q, got %q", payload, reply)
	}
}

func TestClient_RequestString(t *testing.T) {
	addr := startEchoListener(t)

	c, err := Dial(transport.TCP{}, addr, Config{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	reply, err := c.RequestString("hello")
	if err != nil {
		t.Fatalf("RequestString failed: %v", err)
	}
	if reply != "hello" {
		t.Errorf("Expected hello, got %q", reply)
	}
}

func TestClient_LargePayloadAccumulates(t *testing.T) {
	addr := startEchoListener(t)

	c, err := Dial(transport.TCP{}, addr, Config{BufferSize: 512})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	payload := make([]byte, 50_000)
	rng := rand.New(rand.NewSource(7))
	rng.Read(payload)

	reply, err := c.Request(payload)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Error("Accumulated reply does not match payload")
	}
}

func TestClient_ResponseTooLarge(t *testing.T) {
	addr := startEchoListener(t)

	c, err := Dial(transport.TCP{}, addr, Config{MaxResponseSize: 16})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	payload := make([]byte, 64)
	_, err = c.Request(payload)
	if err == nil {
		t.Fatal("Expected oversized response to fail")
	}
	if !errors.Is(err, transport.ErrResponseTooLarge) {
		t.Errorf("Expected ErrResponseTooLarge, got: %v", err)
	}
}

func TestClient_TimeoutOnSilentServer(t *testing.T) {
	// A server that accepts but never replies.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	c, err := Dial(transport.TCP{}, ln.Addr().String(), Config{
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	_, err = c.Request([]byte("anyone there"))
	if err == nil {
		t.Fatal("Expected timeout waiting for reply")
	}
	if !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got: %v", err)
	}
}

func TestClient_EOFWithPartialResponse(t *testing.T) {
	// A server that replies with half the request and closes.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n/2])
		conn.Close()
	}()

	c, err := Dial(transport.TCP{}, ln.Addr().String(), Config{})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	// Peer close ends the read; the partial response comes back without
	// an error.
	reply, err := c.Request([]byte("12345678"))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(reply) != "1234" {
		t.Errorf("Expected partial reply 1234, got %q", reply)
	}
}

func TestClient_DialFailure(t *testing.T) {
	// Nothing listens here.
	_, err := Dial(transport.TCP{}, "127.0.0.1:1", Config{ConnectTimeout: time.Second})
	if err == nil {
		t.Fatal("Expected dial to a closed port to fail")
	}
}
