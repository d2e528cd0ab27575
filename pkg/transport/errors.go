package transport

import (
	"errors"
	"net"
	"os"
)

// ErrTimeout is the canonical deadline-exceeded error produced by this
// module's own timeout bookkeeping (e.g. the client's response wait).
// Deadline failures coming straight from the OS are recognized by
// IsTimeout without rewrapping.
var ErrTimeout = errors.New("operation timed out")

// ErrResponseTooLarge indicates an accumulated response exceeded the
// configured maximum. It is fatal: the payload is not silently
// truncated.
var ErrResponseTooLarge = errors.New("response exceeds configured maximum size")

// IsTimeout reports whether an error represents an I/O deadline hit, in
// any of the shapes the OS and net package produce, so callers never
// branch on the concrete transport.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsClosed reports whether an error came from operating on a socket that
// was closed out from under the caller, the expected accept-loop failure
// during shutdown.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
