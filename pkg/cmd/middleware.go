package cmd

// Middleware wraps a command; the result is still a Command.
type Middleware func(Command) Command

// Apply wraps c with mws. The first middleware in the list ends up outermost,
// so it runs first.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}
