// Package capture converts external signals (print output, framework
// error callbacks, panics, outbound HTTP) into store entries. Adapters
// are failure-silent: nothing in this package panics or returns an
// error to the host beyond what the wrapped primitive already returned.
package capture

import "github.com/serwidlick/backstage/logs"

// Tags used by the adapters. Tags are an open set; these are just the
// ones the built-in capture sources claim.
const (
	PrintTag     = "print"
	SlogTag      = "slog"
	FrameworkTag = "framework"
	AsyncTag     = "async"
	NetworkTag   = "net"
	InternalTag  = "backstage"
)

// Appender is the one store capability the adapters need
type Appender interface {
	Append(logs.Entry)
}
