package transport

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/divoxx/echosrv/pkg/activation"
)

// UnixDatagram is the filesystem-path datagram transport.
type UnixDatagram struct{}

func (UnixDatagram) Name() string { return "unixgram" }

func (UnixDatagram) Spec() activation.SocketSpec {
	return activation.SocketSpec{
		Network:  "unixgram",
		SockType: unix.SOCK_DGRAM,
		Families: []int{unix.AF_UNIX},
	}
}

func (u UnixDatagram) Listen(cfg ListenConfig) (net.PacketConn, error) {
	return u.ListenWith(cfg, activation.FromEnv())
}

func (u UnixDatagram) ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.PacketConn, error) {
	var opts unixOptions
	if err := decodeOptions(u.Name(), cfg.Options, &opts); err != nil {
		return nil, err
	}

	source, err := activation.ResolveSource(u.Spec(), cfg.Strategy, cfg.ServiceName, inherit)
	if err != nil {
		return nil, err
	}
	if err := opts.prepareBind(source); err != nil {
		return nil, err
	}

	pc, err := activation.PacketConnFromSource(u.Spec(), source, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	if err := opts.finishBind(source); err != nil {
		pc.Close()
		return nil, err
	}
	return pc, nil
}

// dialSeq disambiguates local socket paths for concurrent dials within
// one process.
var dialSeq atomic.Uint64

// Dial creates a connected Unix datagram socket. The local end must be
// bound to a named path or the server has no address to reply to, so a
// throwaway socket file is created under the temp directory and removed
// on Close.
func (UnixDatagram) Dial(addr string, timeout time.Duration) (net.Conn, error) {
	local := filepath.Join(os.TempDir(),
		fmt.Sprintf("echosrv-dgram-%d-%d.sock", os.Getpid(), dialSeq.Add(1)))

	d := net.Dialer{
		Timeout:   timeout,
		LocalAddr: &net.UnixAddr{Name: local, Net: "unixgram"},
	}
	conn, err := d.Dial("unixgram", addr)
	if err != nil {
		os.Remove(local)
		return nil, err
	}
	return &unixgramConn{UnixConn: conn.(*net.UnixConn), localPath: local}, nil
}

// unixgramConn removes its throwaway local socket file on close.
type unixgramConn struct {
	*net.UnixConn
	localPath string
}

func (c *unixgramConn) Close() error {
	err := c.UnixConn.Close()
	os.Remove(c.localPath)
	return err
}
