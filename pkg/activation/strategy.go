package activation

import "fmt"

// TargetKind discriminates the two binding target variants.
type TargetKind int

const (
	// TargetNetwork is an address:port network endpoint.
	TargetNetwork TargetKind = iota
	// TargetUnixPath is a filesystem path for a Unix-domain socket.
	TargetUnixPath
)

// BindTarget is where a fresh socket would be bound. Immutable once
// constructed; exactly one of Address or Path is meaningful depending
// on Kind.
type BindTarget struct {
	Kind    TargetKind
	Address string
	Path    string
}

// NetworkTarget builds a network bind target from an address:port string.
func NetworkTarget(address string) BindTarget {
	return BindTarget{Kind: TargetNetwork, Address: address}
}

// UnixPathTarget builds a Unix-domain bind target from a filesystem path.
func UnixPathTarget(path string) BindTarget {
	return BindTarget{Kind: TargetUnixPath, Path: path}
}

func (t BindTarget) String() string {
	if t.Kind == TargetUnixPath {
		return t.Path
	}
	return t.Address
}

type strategyKind int

const (
	strategyBind strategyKind = iota
	strategyInherit
	strategyInheritOrBind
)

// Strategy is the policy governing how a listening socket is obtained:
// fresh binding, forced inheritance, or inheritance with fallback.
// Chosen once per server at construction time and immutable thereafter.
type Strategy struct {
	kind   strategyKind
	fd     int
	target BindTarget
}

// Bind always creates a fresh socket at the target; inherited
// descriptors are never consulted.
func Bind(target BindTarget) Strategy {
	return Strategy{kind: strategyBind, fd: -1, target: target}
}

// Inherit always adopts the given descriptor. There is no fallback: an
// invalid descriptor fails provisioning rather than silently rebinding.
func Inherit(fd int) Strategy {
	return Strategy{kind: strategyInherit, fd: fd}
}

// InheritOrBind prefers inheritance and degrades to binding the
// fallback target. Pass fd < 0 to look the descriptor up by service
// name in the process InheritanceConfig instead of naming it explicitly.
func InheritOrBind(fd int, fallback BindTarget) Strategy {
	return Strategy{kind: strategyInheritOrBind, fd: fd, target: fallback}
}

func (s Strategy) String() string {
	switch s.kind {
	case strategyInherit:
		return fmt.Sprintf("inherit(fd=%d)", s.fd)
	case strategyInheritOrBind:
		if s.fd >= 0 {
			return fmt.Sprintf("inherit-or-bind(fd=%d, fallback=%s)", s.fd, s.target)
		}
		return fmt.Sprintf("inherit-or-bind(fallback=%s)", s.target)
	default:
		return fmt.Sprintf("bind(%s)", s.target)
	}
}

// SourceKind discriminates the resolved socket source variants.
type SourceKind int

const (
	// SourceBind means a fresh socket will be bound at Target.
	SourceBind SourceKind = iota
	// SourceInherit means descriptor FD will be validated and adopted.
	SourceInherit
)

// Source is the resolved outcome of applying a Strategy: either bind the
// target or adopt the descriptor. Computed per provisioning attempt, not
// persisted.
type Source struct {
	Kind   SourceKind
	FD     int
	Target BindTarget
}

// Resolve applies a binding strategy against the inherited-descriptor
// configuration:
//
//   - Bind resolves to binding the target unconditionally.
//   - Inherit resolves to adopting the named descriptor unconditionally;
//     validity is checked downstream, never here.
//   - InheritOrBind prefers an explicit descriptor, then a descriptor
//     registered under serviceName, and finally falls back to binding.
func Resolve(s Strategy, serviceName string, cfg *InheritanceConfig) Source {
	switch s.kind {
	case strategyInherit:
		return Source{Kind: SourceInherit, FD: s.fd}

	case strategyInheritOrBind:
		if s.fd >= 0 {
			return Source{Kind: SourceInherit, FD: s.fd}
		}
		if fd, ok := cfg.FD(serviceName); ok {
			return Source{Kind: SourceInherit, FD: fd}
		}
		return Source{Kind: SourceBind, Target: s.target}

	default:
		return Source{Kind: SourceBind, Target: s.target}
	}
}
