package activation

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func tcpSpec() SocketSpec {
	return SocketSpec{
		Network:  "tcp",
		SockType: unix.SOCK_STREAM,
		Families: []int{unix.AF_INET, unix.AF_INET6},
	}
}

func udpSpec() SocketSpec {
	return SocketSpec{
		Network:  "udp",
		SockType: unix.SOCK_DGRAM,
		Families: []int{unix.AF_INET, unix.AF_INET6},
	}
}

func unixSpec() SocketSpec {
	return SocketSpec{
		Network:  "unix",
		SockType: unix.SOCK_STREAM,
		Families: []int{unix.AF_UNIX},
	}
}

func TestListener_Bind(t *testing.T) {
	ln, err := Listener(tcpSpec(), Bind(NetworkTarget("127.0.0.1:0")), "tcp-echo", nil)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotEmpty(t, ln.Addr().String())
}

func TestListener_BindUnixPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.sock")

	ln, err := Listener(unixSpec(), Bind(UnixPathTarget(path)), "unix-echo", nil)
	require.NoError(t, err)
	defer ln.Close()

	assert.Equal(t, path, ln.Addr().String())
}

func TestListener_TargetKindMismatch(t *testing.T) {
	// A path transport handed a network target cannot bind.
	_, err := Listener(unixSpec(), Bind(NetworkTarget("127.0.0.1:0")), "unix-echo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)

	// And the reverse.
	_, err = Listener(tcpSpec(), Bind(UnixPathTarget("/tmp/echo.sock")), "tcp-echo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)
}

func TestListener_BindFailure(t *testing.T) {
	// Occupy a port, then try to bind it again.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Listener(tcpSpec(), Bind(NetworkTarget(ln.Addr().String())), "tcp-echo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBind)
}

func TestListener_InheritAdoptsDescriptor(t *testing.T) {
	// Stand in for a parent process: create a listening socket and hand
	// its descriptor over.
	parent, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer parent.Close()

	file, err := parent.(*net.TCPListener).File()
	require.NoError(t, err)
	defer file.Close()

	ln, err := Listener(tcpSpec(), Inherit(int(file.Fd())), "tcp-echo", nil)
	require.NoError(t, err)
	defer ln.Close()

	// The adopted listener serves the same address and accepts
	// connections.
	assert.Equal(t, parent.Addr().String(), ln.Addr().String())

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
		done <- err
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()
	require.NoError(t, <-done)
}

func TestListener_InheritWrongKind(t *testing.T) {
	// A datagram socket cannot back a stream transport; forced
	// inheritance must fail rather than fall back.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	file, err := pc.(*net.UDPConn).File()
	require.NoError(t, err)
	defer file.Close()

	_, err = Listener(tcpSpec(), Inherit(int(file.Fd())), "tcp-echo", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInheritance)
}

func TestPacketConn_Bind(t *testing.T) {
	pc, err := PacketConn(udpSpec(), Bind(NetworkTarget("127.0.0.1:0")), "udp-echo", nil)
	require.NoError(t, err)
	defer pc.Close()

	assert.NotEmpty(t, pc.LocalAddr().String())
}

func TestPacketConn_InheritAdoptsDescriptor(t *testing.T) {
	parent, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer parent.Close()

	file, err := parent.(*net.UDPConn).File()
	require.NoError(t, err)
	defer file.Close()

	pc, err := PacketConn(udpSpec(), Inherit(int(file.Fd())), "udp-echo", nil)
	require.NoError(t, err)
	defer pc.Close()

	assert.Equal(t, parent.LocalAddr().String(), pc.LocalAddr().String())
}

func TestListener_InheritOrBindRejectedDescriptorBinds(t *testing.T) {
	// A registered descriptor of the wrong kind is discarded and the
	// strategy degrades to binding the fallback target instead of
	// failing provisioning.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	file, err := pc.(*net.UDPConn).File()
	require.NoError(t, err)
	defer file.Close()

	cfg := &InheritanceConfig{FDs: map[string]int{"tcp-echo": int(file.Fd())}}

	ln, err := Listener(tcpSpec(), InheritOrBind(-1, NetworkTarget("127.0.0.1:0")), "tcp-echo", cfg)
	require.NoError(t, err)
	defer ln.Close()

	// The listener is a fresh bind, not the rejected descriptor.
	assert.NotEqual(t, pc.LocalAddr().String(), ln.Addr().String())
}

func TestPacketConn_InheritOrBindRejectedDescriptorBinds(t *testing.T) {
	parent, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer parent.Close()

	file, err := parent.(*net.TCPListener).File()
	require.NoError(t, err)
	defer file.Close()

	cfg := &InheritanceConfig{FDs: map[string]int{"udp-echo": int(file.Fd())}}

	pc, err := PacketConn(udpSpec(), InheritOrBind(-1, NetworkTarget("127.0.0.1:0")), "udp-echo", cfg)
	require.NoError(t, err)
	defer pc.Close()

	assert.NotEqual(t, parent.Addr().String(), pc.LocalAddr().String())
}

func TestResolveSource_RejectedDescriptorFallsBackToTarget(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	file, err := pc.(*net.UDPConn).File()
	require.NoError(t, err)
	defer file.Close()

	fd := int(file.Fd())
	cfg := &InheritanceConfig{FDs: map[string]int{"tcp-echo": fd}}

	// With fallback the rejected descriptor resolves to the bind target.
	source, err := ResolveSource(tcpSpec(), InheritOrBind(-1, NetworkTarget("127.0.0.1:9")), "tcp-echo", cfg)
	require.NoError(t, err)
	assert.Equal(t, SourceBind, source.Kind)
	assert.Equal(t, "127.0.0.1:9", source.Target.Address)

	// Forced inheritance of the same descriptor still propagates.
	_, err = ResolveSource(tcpSpec(), Inherit(fd), "tcp-echo", cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInheritance)
}

func TestListener_InheritOrBindFallsBack(t *testing.T) {
	// Nothing inherited: the strategy degrades to binding the fallback
	// target instead of failing.
	cfg := &InheritanceConfig{FDs: map[string]int{}}

	ln, err := Listener(tcpSpec(), InheritOrBind(-1, NetworkTarget("127.0.0.1:0")), "tcp-echo", cfg)
	require.NoError(t, err)
	defer ln.Close()

	assert.NotEmpty(t, ln.Addr().String())
}
