// Package activation provides socket provisioning for the echo engine.
//
// A listening socket can either be bound fresh or adopted from a parent
// process that passed it down systemd-style (LISTEN_FDS environment
// contract). Adopting an inherited descriptor lets a service restart
// without ever closing its listening socket, so no connection attempt is
// refused during the swap.
//
// The package is split along the three steps of provisioning:
//   - FromEnv parses the descriptor-passing environment into an
//     InheritanceConfig (which descriptors exist, under which names).
//   - Resolve applies a Strategy to decide between binding and
//     inheriting, producing a Source.
//   - Listener and PacketConn realize a Source into a live socket,
//     validating inherited descriptors against the socket kind the
//     transport expects before adopting them.
package activation

import (
	"os"
	"strconv"
	"strings"
)

// ListenFDsStart is the first descriptor number used for passed sockets.
// Descriptors occupy a contiguous range immediately after stdin, stdout
// and stderr.
const ListenFDsStart = 3

// InheritanceConfig maps service names to inherited descriptor numbers.
// It is built once per process from the environment and read-only after
// construction.
type InheritanceConfig struct {
	// FDs maps a service name to the descriptor passed for it.
	FDs map[string]int

	// Enabled reports whether descriptor passing was detected and the
	// descriptors are intended for this process. When false all
	// inheritance attempts degrade to binding.
	Enabled bool
}

// FromEnv parses the systemd-style descriptor-passing environment:
//
//	LISTEN_FDS      number of descriptors passed
//	LISTEN_PID      pid the descriptors are intended for (optional)
//	LISTEN_FDNAMES  colon-separated service names, one per descriptor (optional)
//
// Descriptors start at ListenFDsStart and are numbered contiguously.
// Unnamed descriptors get generic "fd_N" names. A LISTEN_PID that does
// not match the current process disables inheritance entirely: the
// descriptors belong to someone else.
func FromEnv() *InheritanceConfig {
	cfg := &InheritanceConfig{FDs: make(map[string]int)}

	count, err := strconv.Atoi(os.Getenv("LISTEN_FDS"))
	if err != nil || count <= 0 {
		return cfg
	}

	if pidVar := os.Getenv("LISTEN_PID"); pidVar != "" {
		pid, err := strconv.Atoi(pidVar)
		if err == nil && pid != os.Getpid() {
			return cfg
		}
	}

	cfg.Enabled = true

	var names []string
	if raw := os.Getenv("LISTEN_FDNAMES"); raw != "" {
		names = strings.Split(raw, ":")
	}

	for i := 0; i < count; i++ {
		name := "fd_" + strconv.Itoa(i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		cfg.FDs[name] = ListenFDsStart + i
	}

	return cfg
}

// FD returns the descriptor inherited for a service name.
func (c *InheritanceConfig) FD(service string) (int, bool) {
	if c == nil || !c.Enabled {
		return 0, false
	}
	fd, ok := c.FDs[service]
	return fd, ok
}

// HasFDs reports whether any descriptors were inherited.
func (c *InheritanceConfig) HasFDs() bool {
	return c != nil && c.Enabled && len(c.FDs) > 0
}

// ServiceNames returns the names of all inherited descriptors.
func (c *InheritanceConfig) ServiceNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.FDs))
	for name := range c.FDs {
		names = append(names, name)
	}
	return names
}
