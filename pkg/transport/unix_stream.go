package transport

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/divoxx/echosrv/pkg/activation"
)

// UnixStream is the filesystem-path stream transport.
type UnixStream struct{}

// unixOptions are the settings shared by both Unix-domain transports.
type unixOptions struct {
	// UnlinkExisting removes a stale socket file before binding. Only
	// applies to the bind path; inherited descriptors carry their path
	// from the parent.
	UnlinkExisting bool `mapstructure:"unlink_existing"`

	// SocketMode chmods the socket file after binding when non-zero.
	SocketMode uint32 `mapstructure:"socket_mode"`
}

// prepareBind applies pre-bind path hygiene for a resolved bind source.
func (o unixOptions) prepareBind(source activation.Source) error {
	if source.Kind != activation.SourceBind || !o.UnlinkExisting {
		return nil
	}
	if err := os.Remove(source.Target.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// finishBind applies post-bind path settings for a resolved bind source.
func (o unixOptions) finishBind(source activation.Source) error {
	if source.Kind != activation.SourceBind || o.SocketMode == 0 {
		return nil
	}
	return os.Chmod(source.Target.Path, os.FileMode(o.SocketMode))
}

func (UnixStream) Name() string { return "unix" }

func (UnixStream) Spec() activation.SocketSpec {
	return activation.SocketSpec{
		Network:  "unix",
		SockType: unix.SOCK_STREAM,
		Families: []int{unix.AF_UNIX},
	}
}

func (u UnixStream) Listen(cfg ListenConfig) (net.Listener, error) {
	return u.ListenWith(cfg, activation.FromEnv())
}

func (u UnixStream) ListenWith(cfg ListenConfig, inherit *activation.InheritanceConfig) (net.Listener, error) {
	var opts unixOptions
	if err := decodeOptions(u.Name(), cfg.Options, &opts); err != nil {
		return nil, err
	}

	// Resolve the effective source up front so path hygiene applies
	// whenever a fresh bind happens, including an inherit-or-bind
	// strategy degrading after a rejected descriptor.
	source, err := activation.ResolveSource(u.Spec(), cfg.Strategy, cfg.ServiceName, inherit)
	if err != nil {
		return nil, err
	}
	if err := opts.prepareBind(source); err != nil {
		return nil, err
	}

	ln, err := activation.ListenerFromSource(u.Spec(), source, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	if err := opts.finishBind(source); err != nil {
		ln.Close()
		return nil, err
	}
	return ln, nil
}

func (UnixStream) Dial(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", addr, timeout)
}
