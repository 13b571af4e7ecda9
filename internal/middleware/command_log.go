package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/pkg/cmd"
)

// WithCommandLogger logs every execution with its invoker, duration and error.
func WithCommandLogger(log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			ev := log.Info()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			if who, werr := command.InvokerOf(inv.Data); werr == nil {
				ev = ev.Str("user", who.UserID).Str("guild", who.GuildID).Str("channel", who.ChannelID)
			}
			ev.Str("command", c.Name()).
				Dur("took", time.Since(start)).
				Msg("Command executed")
			return err
		})
	}
}
