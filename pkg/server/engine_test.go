package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/divoxx/echosrv/internal/logger"
	"github.com/divoxx/echosrv/pkg/activation"
	"github.com/divoxx/echosrv/pkg/transport"
)

func newLoopbackStream(name string) *StreamServer {
	return NewStream(transport.TCP{}, Config{
		ServiceName: name,
		Strategy:    activation.Bind(activation.NetworkTarget("127.0.0.1:0")),
		Inheritance: &activation.InheritanceConfig{FDs: map[string]int{}},
	}, nil)
}

func TestEngine_AddAdapter(t *testing.T) {
	e := NewEngine(0)

	if err := e.AddAdapter(newLoopbackStream("tcp-echo")); err != nil {
		t.Fatalf("AddAdapter failed: %v", err)
	}
	if got := len(e.Adapters()); got != 1 {
		t.Errorf("Expected 1 adapter, got %d", got)
	}
}

func TestEngine_DuplicateProtocolRejected(t *testing.T) {
	e := NewEngine(0)

	if err := e.AddAdapter(newLoopbackStream("tcp-echo")); err != nil {
		t.Fatalf("First AddAdapter failed: %v", err)
	}
	if err := e.AddAdapter(newLoopbackStream("tcp-echo-2")); err == nil {
		t.Fatal("Expected duplicate protocol to be rejected")
	}
}

func TestEngine_NilAdapterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic on nil adapter")
		}
	}()
	_ = NewEngine(0).AddAdapter(nil)
}

func TestEngine_ServeWithoutAdapters(t *testing.T) {
	e := NewEngine(0)
	if err := e.Serve(context.Background()); err == nil {
		t.Fatal("Expected error serving with no adapters")
	}
}

func TestEngine_ServeTwicePanics(t *testing.T) {
	e := NewEngine(0)
	_ = e.Serve(context.Background()) // fails: no adapters

	defer func() {
		if recover() == nil {
			t.Fatal("Expected panic on second Serve call")
		}
	}()
	_ = e.Serve(context.Background())
}

func TestEngine_MultiAdapterEcho(t *testing.T) {
	tcpSrv := newLoopbackStream("tcp-echo")
	udpSrv := NewDatagram(transport.UDP{}, Config{
		ServiceName: "udp-echo",
		Strategy:    activation.Bind(activation.NetworkTarget("127.0.0.1:0")),
		Inheritance: &activation.InheritanceConfig{FDs: map[string]int{}},
	}, nil)

	e := NewEngine(5 * time.Second)
	if err := e.AddAdapter(tcpSrv); err != nil {
		t.Fatalf("AddAdapter tcp failed: %v", err)
	}
	if err := e.AddAdapter(udpSrv); err != nil {
		t.Fatalf("AddAdapter udp failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	tcpAddr := waitForAddr(t, tcpSrv.Addr)
	udpAddr := waitForAddr(t, udpSrv.Addr)

	// Both transports answer the same service.
	payload := []byte("multi")

	tcpConn, err := net.Dial("tcp", tcpAddr)
	if err != nil {
		t.Fatalf("TCP dial failed: %v", err)
	}
	defer tcpConn.Close()
	if _, err := tcpConn.Write(payload); err != nil {
		t.Fatalf("TCP write failed: %v", err)
	}
	reply := make([]byte, len(payload))
	if _, err := tcpConn.Read(reply); err != nil {
		t.Fatalf("TCP read failed: %v", err)
	}
	if !bytes.Equal(reply, payload) {
		t.Errorf("TCP: expected %q, got %q", payload, reply)
	}

	udpConn, err := net.Dial("udp", udpAddr)
	if err != nil {
		t.Fatalf("UDP dial failed: %v", err)
	}
	defer udpConn.Close()
	if _, err := udpConn.Write(payload); err != nil {
		t.Fatalf("UDP write failed: %v", err)
	}
	_ = udpConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, err := udpConn.Read(reply)
	if err != nil {
		t.Fatalf("UDP read failed: %v", err)
	}
	if !bytes.Equal(reply[:n], payload) {
		t.Errorf("UDP: expected %q, got %q", payload, reply[:n])
	}

	// Cancelling the context stops every adapter.
	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned unexpected error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Engine did not stop after context cancel")
	}
}

func TestEngine_AdapterFailureStopsAll(t *testing.T) {
	// Occupy a port so the second adapter's bind fails at startup.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	healthy := NewDatagram(transport.UDP{}, Config{
		ServiceName: "udp-echo",
		Strategy:    activation.Bind(activation.NetworkTarget("127.0.0.1:0")),
		Inheritance: &activation.InheritanceConfig{FDs: map[string]int{}},
	}, nil)
	doomed := NewStream(transport.TCP{}, Config{
		ServiceName: "tcp-echo",
		Strategy:    activation.Bind(activation.NetworkTarget(ln.Addr().String())),
		Inheritance: &activation.InheritanceConfig{FDs: map[string]int{}},
	}, nil)

	e := NewEngine(5 * time.Second)
	if err := e.AddAdapter(healthy); err != nil {
		t.Fatalf("AddAdapter failed: %v", err)
	}
	if err := e.AddAdapter(doomed); err != nil {
		t.Fatalf("AddAdapter failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Serve(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected Serve to surface the adapter failure")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Engine did not stop after adapter failure")
	}
}

// stubAdapter lets engine tests control Serve and Stop outcomes
// without a real socket.
type stubAdapter struct {
	protocol string
	stopErr  error
}

func (s *stubAdapter) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubAdapter) Stop(ctx context.Context) error { return s.stopErr }

func (s *stubAdapter) Protocol() string { return s.protocol }

func (s *stubAdapter) Addr() string { return "" }

func TestEngine_StopTreatsWrappedCancelAsClean(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "engine.log")
	if err := logger.SetOutput(logPath); err != nil {
		t.Fatalf("SetOutput failed: %v", err)
	}
	defer func() {
		if err := logger.SetOutput("stdout"); err != nil {
			t.Fatalf("SetOutput restore failed: %v", err)
		}
	}()

	wrapped := fmt.Errorf("drain interrupted: %w", context.Canceled)
	e := NewEngine(time.Second)
	if err := e.AddAdapter(&stubAdapter{protocol: "tcp", stopErr: wrapped}); err != nil {
		t.Fatalf("AddAdapter failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Engine did not stop after context cancel")
	}

	out, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if bytes.Contains(out, []byte("Error stopping")) {
		t.Errorf("Wrapped cancellation logged as a stop error:\n%s", out)
	}
}
