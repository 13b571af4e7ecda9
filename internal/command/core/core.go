// Package core holds the built-in commands.
package core

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/middleware"
	"github.com/keshon/cmdguard/pkg/cmd"
)

// Deps are shared by the built-in commands.
type Deps struct {
	Registry *cmd.Registry
	Manager  *cooldown.Manager
	Ledger   Ledger
	Log      zerolog.Logger
}

// Register adds the built-in commands to d.Registry.
func Register(d Deps) error {
	if d.Ledger == nil {
		d.Ledger = NewMemoryLedger(0)
	}

	logged := middleware.WithCommandLogger(d.Log)
	limited := middleware.WithCooldown(d.Manager)
	guildOnly := middleware.WithGuildOnly()

	return errors.Join(
		command.RegisterCommand(d.Registry, &HelpCommand{Registry: d.Registry}, logged),
		command.RegisterCommand(d.Registry, &PingCommand{}, logged, limited),
		command.RegisterCommand(d.Registry, &DailyCommand{Ledger: d.Ledger, Reward: DefaultDailyReward}, logged, guildOnly, limited),
		command.RegisterCommand(d.Registry, &AnnounceCommand{}, logged, guildOnly, limited),
		command.RegisterCommand(d.Registry, &CooldownCommand{Registry: d.Registry, Manager: d.Manager}, logged, limited),
	)
}

// input is a command's arguments regardless of how it was invoked.
type input struct {
	sub  string
	opts map[string]*discordgo.ApplicationCommandInteractionDataOption
	args []string
}

func (in input) str(name string) string {
	if o, ok := in.opts[name]; ok {
		return o.StringValue()
	}
	return ""
}

func (in input) integer(name string) (int64, bool) {
	if o, ok := in.opts[name]; ok {
		return o.IntValue(), true
	}
	return 0, false
}

// readInput flattens slash options (one subcommand level) or message args.
// For message commands the first arg is taken as the subcommand when
// subcommands are listed.
func readInput(data any, subcommands ...string) input {
	switch v := data.(type) {
	case *command.SlashInteractionContext:
		in := input{opts: map[string]*discordgo.ApplicationCommandInteractionDataOption{}}
		opts := v.Event.ApplicationCommandData().Options
		if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
			in.sub = opts[0].Name
			opts = opts[0].Options
		}
		for _, o := range opts {
			in.opts[o.Name] = o
		}
		return in
	case *command.MessageContext:
		in := input{args: v.Args}
		if len(subcommands) > 0 && len(v.Args) > 0 {
			first := strings.ToLower(v.Args[0])
			for _, s := range subcommands {
				if first == s {
					in.sub = s
					in.args = v.Args[1:]
					break
				}
			}
		}
		return in
	}
	return input{}
}

func reply(data any, text string, private bool) error {
	return command.Notify(data, &discordgo.MessageEmbed{Description: text}, private)
}
