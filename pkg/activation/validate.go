package activation

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// socketTypeName renders a SOCK_* constant for diagnostics.
func socketTypeName(t int) string {
	switch t {
	case unix.SOCK_STREAM:
		return "SOCK_STREAM"
	case unix.SOCK_DGRAM:
		return "SOCK_DGRAM"
	default:
		return fmt.Sprintf("socket type %d", t)
	}
}

// familyName renders an AF_* constant for diagnostics.
func familyName(f int) string {
	switch f {
	case unix.AF_INET:
		return "AF_INET"
	case unix.AF_INET6:
		return "AF_INET6"
	case unix.AF_UNIX:
		return "AF_UNIX"
	default:
		return fmt.Sprintf("address family %d", f)
	}
}

// ValidateFD checks that an inherited descriptor is a socket of the
// expected kind and one of the accepted address families before it is
// adopted. Validation order:
//
//  1. Socket kind via getsockopt(SO_TYPE); a mismatch (datagram
//     descriptor for a stream transport, or vice versa) is fatal.
//  2. Bound address family via getsockname; each accepted family is
//     tried in turn and the last mismatch is surfaced if none match.
//
// All failures wrap ErrInheritance, including kernel query failures.
func ValidateFD(fd int, wantType int, families []int) error {
	soType, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		return fmt.Errorf("%w: query socket type of fd %d: %v", ErrInheritance, fd, err)
	}
	if soType != wantType {
		return fmt.Errorf("%w: fd %d is %s, expected %s",
			ErrInheritance, fd, socketTypeName(soType), socketTypeName(wantType))
	}

	family, err := socketFamily(fd)
	if err != nil {
		return err
	}

	var lastErr error
	for _, want := range families {
		if family == want {
			return nil
		}
		lastErr = fmt.Errorf("%w: fd %d is %s, expected %s",
			ErrInheritance, fd, familyName(family), familyName(want))
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no accepted address families configured", ErrInheritance)
	}
	return lastErr
}

// socketFamily queries the bound address family of a descriptor.
func socketFamily(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, fmt.Errorf("%w: query socket address of fd %d: %v", ErrInheritance, fd, err)
	}

	switch sa.(type) {
	case *unix.SockaddrInet4:
		return unix.AF_INET, nil
	case *unix.SockaddrInet6:
		return unix.AF_INET6, nil
	case *unix.SockaddrUnix:
		return unix.AF_UNIX, nil
	default:
		return 0, fmt.Errorf("%w: fd %d bound to unsupported address family", ErrInheritance, fd)
	}
}
