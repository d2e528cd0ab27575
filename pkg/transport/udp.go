package transport

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/divoxx/echosrv/pkg/activation"
)

// UDP is the network datagram transport.
type UDP struct{}

func (UDP) Name() string { return "udp" }

func (UDP) Spec() activation.SocketSpec {
	return activation.SocketSpec{
		Network:  "udp",
		SockType: unix.SOCK_DGRAM,
		Families: []int{unix.AF_INET, unix.AF_INET6},
	}
}

func (u UDP) Listen(cfg ListenConfig) (net.PacketConn, error) {
	return u.ListenWith(cfg, activation.FromEnv())
}

func (u UDP) ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.PacketConn, error) {
	// UDP has no transport-specific options; reject any provided.
	var opts struct{}
	if err := decodeOptions(u.Name(), cfg.Options, &opts); err != nil {
		return nil, err
	}
	return activation.PacketConn(u.Spec(), cfg.Strategy, cfg.ServiceName, inherit)
}

// Dial returns a connected datagram socket: reads only accept datagrams
// from the dialed peer, which is what the client wants.
func (UDP) Dial(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("udp", addr, timeout)
}
