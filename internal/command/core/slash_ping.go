package core

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
)

type PingCommand struct{}

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check bot latency" }
func (c *PingCommand) Category() string    { return "🛠️ Maintenance" }

func (c *PingCommand) Cooldown() command.CooldownSpec {
	return command.CooldownSpec{Scope: cooldown.PerUser, Duration: "5 s"}
}

func (c *PingCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

// PingAgainID is the custom id of the button under every interaction pong.
const PingAgainID = "ping:again"

func (c *PingCommand) Run(ctx any) error {
	return c.pong(ctx)
}

// Component handles PingAgainID. The click shares the per-user ping window.
func (c *PingCommand) Component(ctx *command.ComponentInteractionContext) error {
	if ctx.Event.MessageComponentData().CustomID != PingAgainID {
		return nil
	}
	return c.pong(ctx)
}

func (c *PingCommand) pong(ctx any) error {
	var s *discordgo.Session
	switch v := ctx.(type) {
	case *command.SlashInteractionContext:
		s = v.Session
	case *command.ComponentInteractionContext:
		s = v.Session
	case *command.MessageContext:
		s = v.Session
	}
	var latency int64
	if s != nil {
		latency = s.HeartbeatLatency().Milliseconds()
	}

	embed := &discordgo.MessageEmbed{Description: fmt.Sprintf("🏓 Pong! %dms", latency)}
	return command.ReplyWithComponents(ctx, embed, []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Ping again", Style: discordgo.SecondaryButton, CustomID: PingAgainID},
		}},
	})
}
