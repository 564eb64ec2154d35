// Package fault defines the two fault kinds the lamp runtime distinguishes:
// setup faults (fatal at boot) and network faults (retried by the
// connection supervisor until its back-off schedule runs out).
package fault

import (
	"errors"
	"fmt"
)

// Code tags a NetworkFault with the layer that failed.
type Code int

const (
	Unspecified  Code = 1
	LocalNetwork Code = 2
	Internet     Code = 3
	Server       Code = 4
)

func (c Code) String() string {
	switch c {
	case LocalNetwork:
		return "local-network"
	case Internet:
		return "internet"
	case Server:
		return "server"
	default:
		return "unspecified"
	}
}

// SetupFault reports a structurally invalid configuration. It is never retried.
type SetupFault struct {
	Field  string
	Reason string
}

func (e *SetupFault) Error() string {
	if e.Field == "" {
		return "setup: " + e.Reason
	}
	return fmt.Sprintf("setup: %s: %s", e.Field, e.Reason)
}

// Setupf builds a SetupFault for field with a formatted reason.
func Setupf(field, format string, args ...any) error {
	return &SetupFault{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NetworkFault reports a failure somewhere between wifi and the broker.
type NetworkFault struct {
	Code Code
	Op   string
	Err  error
}

func (e *NetworkFault) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("network (%s): %s", e.Code, e.Op)
	}
	return fmt.Sprintf("network (%s): %s: %v", e.Code, e.Op, e.Err)
}

func (e *NetworkFault) Unwrap() error {
	return e.Err
}

// Network wraps err as a NetworkFault with the given code.
func Network(code Code, op string, err error) error {
	return &NetworkFault{Code: code, Op: op, Err: err}
}

// IsSetup reports whether err contains a SetupFault.
func IsSetup(err error) bool {
	var sf *SetupFault
	return errors.As(err, &sf)
}

// IsNetwork reports whether err contains a NetworkFault.
func IsNetwork(err error) bool {
	var nf *NetworkFault
	return errors.As(err, &nf)
}

// CodeOf returns the code of the first NetworkFault in err's chain, or
// Unspecified if there is none.
func CodeOf(err error) Code {
	var nf *NetworkFault
	if errors.As(err, &nf) {
		return nf.Code
	}
	return Unspecified
}
