package transport

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/divoxx/echosrv/pkg/activation"
)

// TCP is the network stream transport.
type TCP struct{}

// tcpOptions are the transport-specific settings accepted in a
// ListenConfig option map.
type tcpOptions struct {
	// NoDelay disables Nagle batching on accepted connections when set.
	NoDelay *bool `mapstructure:"nodelay"`

	// KeepAlive sets the keepalive probe period on accepted
	// connections. Zero leaves the OS default in place.
	KeepAlive time.Duration `mapstructure:"keepalive"`
}

func (o tcpOptions) isZero() bool {
	return o.NoDelay == nil && o.KeepAlive == 0
}

func (TCP) Name() string { return "tcp" }

func (TCP) Spec() activation.SocketSpec {
	return activation.SocketSpec{
		Network:  "tcp",
		SockType: unix.SOCK_STREAM,
		Families: []int{unix.AF_INET, unix.AF_INET6},
	}
}

func (t TCP) Listen(cfg ListenConfig) (net.Listener, error) {
	return t.ListenWith(cfg, activation.FromEnv())
}

func (t TCP) ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.Listener, error) {
	var opts tcpOptions
	if err := decodeOptions(t.Name(), cfg.Options, &opts); err != nil {
		return nil, err
	}

	ln, err := activation.Listener(t.Spec(), cfg.Strategy, cfg.ServiceName, inherit)
	if err != nil {
		return nil, err
	}

	if opts.isZero() {
		return ln, nil
	}
	return &tcpListener{Listener: ln, opts: opts}, nil
}

func (TCP) Dial(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, timeout)
}

// tcpListener applies per-connection socket options at accept time.
type tcpListener struct {
	net.Listener
	opts tcpOptions
}

func (l *tcpListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if l.opts.NoDelay != nil {
			_ = tc.SetNoDelay(*l.opts.NoDelay)
		}
		if l.opts.KeepAlive > 0 {
			_ = tc.SetKeepAlive(true)
			_ = tc.SetKeepAlivePeriod(l.opts.KeepAlive)
		}
	}
	return conn, nil
}
