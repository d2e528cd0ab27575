package activation

import "errors"

var (
	// ErrBind indicates a fresh bind failed: address or path in use,
	// permission denied, or a target kind the transport cannot bind.
	//
	// Bind failures at server startup are fatal; callers should not
	// retry without operator intervention.
	ErrBind = errors.New("bind failed")

	// ErrInheritance indicates an inherited descriptor failed
	// validation (wrong socket kind or address family) or the kernel
	// query on it failed.
	//
	// Under a forced Inherit strategy this is fatal to the bind
	// attempt. Under InheritOrBind the caller falls back to binding
	// instead of propagating it.
	ErrInheritance = errors.New("inherited descriptor rejected")
)
