package middleware

import (
	"context"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/pkg/cmd"
)

// WithGuildOnly silently drops invocations from direct messages.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			who, err := command.InvokerOf(inv.Data)
			if err != nil || who.GuildID == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}
