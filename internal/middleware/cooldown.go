package middleware

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/pkg/cmd"
)

// ActionPrefix is prepended to command names to form cooldown action ids.
const ActionPrefix = "command_"

// WithCooldown enforces the command's declared cooldown. A denied invocation
// gets the rendered message as a private reply and the command does not run.
// Otherwise the window is charged before the command runs and the command
// receives the handle in its context. Commands without a CooldownSpec pass
// straight through.
func WithCooldown(m *cooldown.Manager) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		spec, limited := command.CooldownOf(c)
		if !limited {
			return c
		}

		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			who, err := command.InvokerOf(inv.Data)
			if err != nil {
				return err
			}

			req := cooldown.Request{
				Scope:    spec.Scope,
				UserID:   who.UserID,
				ActionID: ActionPrefix + c.Name(),
				GuildID:  who.GuildID,
				Duration: spec.Duration,
				Message:  spec.Message,
			}

			decision, err := m.CanRunAction(req)
			if err != nil {
				return err
			}
			if msg, denied := decision.Denied(); denied {
				return command.Notify(inv.Data, &discordgo.MessageEmbed{
					Title:       "Cooldown",
					Description: msg,
				}, true)
			}

			h, err := m.Start(ctx, req)
			if err != nil {
				return err
			}
			command.SetCooldown(inv.Data, h)

			return c.Run(ctx, inv)
		})
	}
}
