package activation

import (
	"fmt"
	"net"
	"os"

	"github.com/divoxx/echosrv/internal/logger"
)

// SocketSpec describes the socket kind a transport expects. Transports
// provide one so provisioning can bind with the right network string
// and validate inherited descriptors against the right kind and
// families.
type SocketSpec struct {
	// Network is the net package network name: "tcp", "udp", "unix" or
	// "unixgram".
	Network string

	// SockType is the expected kernel socket type, unix.SOCK_STREAM or
	// unix.SOCK_DGRAM.
	SockType int

	// Families lists the accepted address families. Network transports
	// accept AF_INET and AF_INET6; path transports accept only AF_UNIX.
	Families []int
}

// wantsPath reports whether the spec binds filesystem paths rather than
// network addresses.
func (s SocketSpec) wantsPath() bool {
	return s.Network == "unix" || s.Network == "unixgram"
}

// bindAddress extracts the bind address for a target, failing when the
// target kind does not match the transport (a path transport handed a
// network target, or the reverse).
func (s SocketSpec) bindAddress(target BindTarget) (string, error) {
	if s.wantsPath() {
		if target.Kind != TargetUnixPath {
			return "", fmt.Errorf("%w: %s transport requires a unix path target, got network address %q",
				ErrBind, s.Network, target.Address)
		}
		return target.Path, nil
	}
	if target.Kind != TargetNetwork {
		return "", fmt.Errorf("%w: %s transport requires a network target, got unix path %q",
			ErrBind, s.Network, target.Path)
	}
	return target.Address, nil
}

// ResolveSource resolves a bind strategy to its effective source,
// validating any inherited descriptor against the spec. Under
// InheritOrBind a descriptor that fails validation is logged and
// discarded, degrading to the fallback bind target; under forced
// Inherit the validation error propagates.
func ResolveSource(spec SocketSpec, strategy Strategy, serviceName string, cfg *InheritanceConfig) (Source, error) {
	source := Resolve(strategy, serviceName, cfg)
	if source.Kind != SourceInherit {
		return source, nil
	}

	if err := ValidateFD(source.FD, spec.SockType, spec.Families); err != nil {
		if strategy.kind == strategyInheritOrBind {
			logger.Warn("Inherited descriptor for %q unusable, binding %s instead: %v",
				serviceName, strategy.target, err)
			return Source{Kind: SourceBind, Target: strategy.target}, nil
		}
		return Source{}, err
	}
	return source, nil
}

// Listener realizes a stream listening socket from a bind strategy. An
// inherited descriptor is validated against the spec before adoption; a
// bind source creates a fresh listener at the target.
func Listener(spec SocketSpec, strategy Strategy, serviceName string, cfg *InheritanceConfig) (net.Listener, error) {
	source, err := ResolveSource(spec, strategy, serviceName, cfg)
	if err != nil {
		return nil, err
	}
	return ListenerFromSource(spec, source, serviceName)
}

// ListenerFromSource realizes a stream listening socket from an already
// resolved source. Callers that need the effective source themselves,
// such as Unix transports applying path hygiene around the bind, resolve
// via ResolveSource and pass the result here.
func ListenerFromSource(spec SocketSpec, source Source, serviceName string) (net.Listener, error) {
	if source.Kind == SourceInherit {
		return listenerFromFD(source.FD, serviceName)
	}

	addr, err := spec.bindAddress(source.Target)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen(spec.Network, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s %s: %v", ErrBind, spec.Network, addr, err)
	}
	return ln, nil
}

// PacketConn realizes a datagram socket from a bind strategy, following
// the same resolution and validation rules as Listener.
func PacketConn(spec SocketSpec, strategy Strategy, serviceName string, cfg *InheritanceConfig) (net.PacketConn, error) {
	source, err := ResolveSource(spec, strategy, serviceName, cfg)
	if err != nil {
		return nil, err
	}
	return PacketConnFromSource(spec, source, serviceName)
}

// PacketConnFromSource realizes a datagram socket from an already
// resolved source.
func PacketConnFromSource(spec SocketSpec, source Source, serviceName string) (net.PacketConn, error) {
	if source.Kind == SourceInherit {
		return packetConnFromFD(source.FD, serviceName)
	}

	addr, err := spec.bindAddress(source.Target)
	if err != nil {
		return nil, err
	}
	pc, err := net.ListenPacket(spec.Network, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s %s: %v", ErrBind, spec.Network, addr, err)
	}
	return pc, nil
}

// listenerFromFD adopts a raw descriptor as a net.Listener.
//
// Precondition: the descriptor has already been validated as a stream
// socket of an accepted family via ValidateFD. The runtime registers the
// duplicated descriptor with its poller and puts it in non-blocking mode.
func listenerFromFD(fd int, name string) (net.Listener, error) {
	file := os.NewFile(uintptr(fd), name)
	if file == nil {
		return nil, fmt.Errorf("%w: fd %d is not a valid descriptor", ErrInheritance, fd)
	}
	defer file.Close()

	ln, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("%w: adopt fd %d as listener: %v", ErrInheritance, fd, err)
	}
	return ln, nil
}

// packetConnFromFD adopts a raw descriptor as a net.PacketConn.
//
// Precondition: the descriptor has already been validated as a datagram
// socket of an accepted family via ValidateFD.
func packetConnFromFD(fd int, name string) (net.PacketConn, error) {
	file := os.NewFile(uintptr(fd), name)
	if file == nil {
		return nil, fmt.Errorf("%w: fd %d is not a valid descriptor", ErrInheritance, fd)
	}
	defer file.Close()

	pc, err := net.FilePacketConn(file)
	if err != nil {
		return nil, fmt.Errorf("%w: adopt fd %d as packet conn: %v", ErrInheritance, fd, err)
	}
	return pc, nil
}
