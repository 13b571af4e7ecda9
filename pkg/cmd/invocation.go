// Package cmd is the transport-agnostic command core. A command has a name, a
// description and Run(ctx, invocation); registration and dispatch for a given
// transport (Discord slash, mention messages, CLI) live in adapters.
package cmd

import "context"

// Invocation is what a runner hands to a command. Adapters put their own
// context in Data (for Discord, the session plus the triggering event).
type Invocation struct {
	Args []string
	Data any
}

// Command is the contract every adapter dispatches to.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names.
type Aliased interface {
	Aliases() []string
}
