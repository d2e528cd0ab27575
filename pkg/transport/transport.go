// Package transport defines the protocol capability consumed by the echo
// engine: interchangeable socket kinds behind two small interfaces, one
// for stream sockets and one for datagram sockets.
//
// The engine is constructed with a concrete transport and never branches
// on protocol identity. Each transport knows how to provision its
// listening socket (fresh bind or inherited descriptor, via
// pkg/activation) and how to dial a peer; per-connection I/O rides on
// net.Conn and net.PacketConn deadlines, and failures are classified
// with the shared helpers in this package.
package transport

import (
	"net"
	"time"

	"github.com/divoxx/echosrv/pkg/activation"
)

// ListenConfig carries what a transport needs to provision a listening
// socket.
type ListenConfig struct {
	// ServiceName identifies the socket when looking up inherited
	// descriptors by name.
	ServiceName string

	// Strategy governs fresh binding versus descriptor inheritance.
	Strategy activation.Strategy

	// Options holds transport-specific settings (e.g. TCP keepalive,
	// Unix socket file mode). Unknown keys are rejected by the
	// transport that owns them.
	Options map[string]any
}

// Transport is the surface shared by stream and datagram transports.
type Transport interface {
	// Name is the transport identifier used in logs and configuration
	// ("tcp", "udp", "unix", "unixgram").
	Name() string

	// Spec describes the socket kind this transport expects, used to
	// validate inherited descriptors.
	Spec() activation.SocketSpec
}

// StreamTransport is implemented by connection-oriented transports.
type StreamTransport interface {
	Transport

	// Listen provisions the listening socket, detecting inherited
	// descriptors from the process environment.
	Listen(cfg ListenConfig) (net.Listener, error)

	// ListenWith provisions the listening socket against an explicit
	// inheritance configuration. Listen delegates here with a freshly
	// parsed environment config.
	ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.Listener, error)

	// Dial connects to a peer, bounded by the connect timeout.
	Dial(addr string, timeout time.Duration) (net.Conn, error)
}

// DatagramTransport is implemented by connectionless transports.
type DatagramTransport interface {
	Transport

	// Listen provisions the datagram socket, detecting inherited
	// descriptors from the process environment.
	Listen(cfg ListenConfig) (net.PacketConn, error)

	// ListenWith provisions the datagram socket against an explicit
	// inheritance configuration.
	ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.PacketConn, error)

	// Dial creates a connected datagram socket to a peer.
	Dial(addr string, timeout time.Duration) (net.Conn, error)
}
