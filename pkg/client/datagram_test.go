package client

import (
	"bytes"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/divoxx/echosrv/pkg/transport"
)

// startUDPEcho runs a minimal datagram echo loop on a loopback socket.
func startUDPEcho(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteTo(buf[:n], addr)
		}
	}()

	return pc.LocalAddr().String()
}

func TestDatagramClient_Request(t *testing.T) {
	addr := startUDPEcho(t)

	c, err := DialDatagram(transport.UDP{}, addr, Config{})
	if err != nil {
		t.Fatalf("DialDatagram failed: %v", err)
	}
	defer c.Close()

	payload := []byte("one datagram")
	reply, err := c.Request(payload)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Errorf("Expected %q, got %q", payload, reply)
	}
}

func TestDatagramClient_PayloadLargerThanBuffer(t *testing.T) {
	addr := startUDPEcho(t)

	// Buffer smaller than payload: the read buffer grows to the payload
	// size so the reply datagram is never truncated.
	c, err := DialDatagram(transport.UDP{}, addr, Config{BufferSize: 8})
	if err != nil {
		t.Fatalf("DialDatagram failed: %v", err)
	}
	defer c.Close()

	payload := bytes.Repeat([]byte("x"), 512)
	reply, err := c.Request(payload)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Errorf("Expected %d bytes back, got %d", len(payload), len(reply))
	}
}

func TestDatagramClient_Timeout(t *testing.T) {
	// A bound socket that never answers.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer pc.Close()

	c, err := DialDatagram(transport.UDP{}, pc.LocalAddr().String(), Config{
		ReadTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("DialDatagram failed: %v", err)
	}
	defer c.Close()

	_, err = c.Request([]byte("hello?"))
	if err == nil {
		t.Fatal("Expected timeout waiting for reply")
	}
	if !errors.Is(err, transport.ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got: %v", err)
	}
}

func TestDatagramClient_Unixgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.sock")

	pc, err := net.ListenPacket("unixgram", path)
	if err != nil {
		t.Fatalf("ListenPacket failed: %v", err)
	}
	defer pc.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			_, _ = pc.WriteTo(buf[:n], addr)
		}
	}()

	c, err := DialDatagram(transport.UnixDatagram{}, path, Config{})
	if err != nil {
		t.Fatalf("DialDatagram failed: %v", err)
	}
	defer c.Close()

	reply, err := c.RequestString("over unixgram")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if reply != "over unixgram" {
		t.Errorf("Expected payload echoed back, got %q", reply)
	}
}
