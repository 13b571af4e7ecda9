package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/middleware"
	"github.com/keshon/cmdguard/pkg/cmd"
)

const maxExtendSeconds = 3600

// CooldownCommand reports the caller's cooldowns. Its extend subcommand pushes
// out the command's own global window.
type CooldownCommand struct {
	Registry *cmd.Registry
	Manager  *cooldown.Manager
}

func (c *CooldownCommand) Name() string        { return "cooldown" }
func (c *CooldownCommand) Description() string { return "Show your command cooldowns" }
func (c *CooldownCommand) Category() string    { return "🕯️ Information" }
func (c *CooldownCommand) Aliases() []string   { return []string{"cd"} }

func (c *CooldownCommand) Cooldown() command.CooldownSpec {
	return command.CooldownSpec{Scope: cooldown.Global, Duration: "30 s"}
}

func (c *CooldownCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minSeconds := 1.0
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Show remaining time for one or all commands",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "command",
						Description: "Command name",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "extend",
				Description: "Extend the global /cooldown window",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "seconds",
						Description: "Seconds to add",
						Required:    true,
						MinValue:    &minSeconds,
						MaxValue:    maxExtendSeconds,
					},
				},
			},
		},
	}
}

func (c *CooldownCommand) Run(ctx any) error {
	in := readInput(ctx, "show", "extend")
	if in.sub == "extend" {
		return c.extend(ctx, in)
	}
	name := in.str("command")
	if name == "" && len(in.args) > 0 {
		name = in.args[0]
	}
	return c.show(ctx, name)
}

func (c *CooldownCommand) extend(ctx any, in input) error {
	secs, ok := in.integer("seconds")
	if !ok && len(in.args) > 0 {
		n, err := strconv.ParseInt(in.args[0], 10, 64)
		ok = err == nil
		secs = n
	}
	if !ok || secs < 1 || secs > maxExtendSeconds {
		return reply(ctx, fmt.Sprintf("Seconds must be between 1 and %d.", maxExtendSeconds), true)
	}

	d := time.Duration(secs) * time.Second
	if err := command.CooldownHandle(ctx).Extend(context.Background(), d); err != nil {
		return err
	}
	return reply(ctx, fmt.Sprintf("`/%s` is now locked for everyone for another %s.", c.Name(), cooldown.FormatRemaining(d)), true)
}

func (c *CooldownCommand) show(ctx any, name string) error {
	who, err := command.InvokerOf(ctx)
	if err != nil {
		return err
	}

	var targets []cmd.Command
	if name != "" {
		target := c.Registry.Get(name)
		if target == nil {
			return reply(ctx, fmt.Sprintf("Unknown command `%s`.", name), true)
		}
		targets = append(targets, target)
	} else {
		targets = c.Registry.GetAll()
	}

	var sb strings.Builder
	for _, target := range targets {
		spec, ok := command.CooldownOf(target)
		if !ok {
			if name != "" {
				sb.WriteString(fmt.Sprintf("`%s` has no cooldown.\n", target.Name()))
			}
			continue
		}
		if spec.Scope.RequiresGuild() && who.GuildID == "" {
			continue
		}

		rem, active, err := c.Manager.Remaining(cooldown.Request{
			Scope:    spec.Scope,
			UserID:   who.UserID,
			ActionID: middleware.ActionPrefix + target.Name(),
			GuildID:  who.GuildID,
		})
		if err != nil {
			return err
		}
		if active {
			sb.WriteString(fmt.Sprintf("`%s` ready in **%s**\n", target.Name(), cooldown.FormatRemaining(rem)))
		} else if name != "" {
			sb.WriteString(fmt.Sprintf("`%s` is ready.\n", target.Name()))
		}
	}

	text := sb.String()
	if text == "" {
		text = "All your commands are ready."
	}
	return command.Notify(ctx, &discordgo.MessageEmbed{Title: "Cooldowns", Description: text}, true)
}
