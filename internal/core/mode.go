// Package core is the orchestration layer.  It composes a session, its
// transport and the local terminal into a runnable mode, and provides
// the builder that assembles that mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  telnet  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete run of mudlink, from connect to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
