// Package dp defines the core datapath and port types shared by every
// other internal package: the registry, the forwarding engine, the
// dispatcher, and the statistics engine all operate on *Datapath and
// *Port rather than redefining their own view of them.
package dp

import "github.com/pkg/errors"

// Sentinel error kinds, one per row of the error taxonomy in spec §7.
// Callers use errors.Cause to recover the kind after a wrap.
var (
	ErrInvalid        = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrExhausted      = errors.New("registry exhausted")
	ErrOutOfMemory    = errors.New("out of memory")
	ErrTooLarge       = errors.New("message too large")
	ErrTooBig         = errors.New("frame exceeds mtu")
	ErrBusy           = errors.New("interface already attached")
	ErrBadVersion     = errors.New("unsupported openflow version")
	ErrBadStat        = errors.New("unknown statistics type")
	ErrOutOfRange     = errors.New("dp_idx out of range")
)
