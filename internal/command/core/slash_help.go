package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/config"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/pkg/cmd"
)

type HelpCommand struct {
	Registry *cmd.Registry
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Get a list of available commands" }
func (c *HelpCommand) Category() string    { return "🕯️ Information" }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(ctx any) error {
	return command.Notify(ctx, &discordgo.MessageEmbed{
		Title:       "Help",
		Description: buildHelpByCategory(c.Registry.GetAll()),
	}, true)
}

type categorized interface {
	Category() string
}

func buildHelpByCategory(all []cmd.Command) string {
	byCategory := make(map[string][]cmd.Command)
	for _, c := range all {
		cat := ""
		if cc, ok := cmd.Root(c).(categorized); ok {
			cat = cc.Category()
		}
		byCategory[cat] = append(byCategory[cat], c)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		wi, wj := config.CategoryWeight(cats[i]), config.CategoryWeight(cats[j])
		if wi != wj {
			return wi < wj
		}
		return cats[i] < cats[j]
	})

	var sb strings.Builder
	for _, cat := range cats {
		if cat != "" {
			sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		}
		for _, c := range byCategory[cat] {
			sb.WriteString(fmt.Sprintf("`%s` - %s", c.Name(), c.Description()))
			if spec, ok := command.CooldownOf(c); ok {
				sb.WriteString(" " + describeCooldown(spec))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

var scopeLabels = map[cooldown.Scope]string{
	cooldown.PerUser:         "per user",
	cooldown.PerUserPerGuild: "per user in each server",
	cooldown.PerGuild:        "per server",
	cooldown.Global:          "for everyone",
}

// describeCooldown renders e.g. "(5s per user)".
func describeCooldown(spec command.CooldownSpec) string {
	secs, err := cooldown.ParseSeconds(spec.Duration)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", cooldown.FormatRemaining(time.Duration(secs)*time.Second), scopeLabels[spec.Scope])
}
