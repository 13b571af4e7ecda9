package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
)

const maxAnnouncementLength = 2000

// AnnounceCommand posts a server-wide announcement, at most once per window per guild.
type AnnounceCommand struct{}

func (c *AnnounceCommand) Name() string        { return "announce" }
func (c *AnnounceCommand) Description() string { return "Post an announcement to this channel" }
func (c *AnnounceCommand) Category() string    { return "📢 Utilities" }

func (c *AnnounceCommand) Cooldown() command.CooldownSpec {
	return command.CooldownSpec{
		Scope:    cooldown.PerGuild,
		Duration: "10 m",
		Message:  "This server already announced something recently. Next announcement in " + cooldown.Placeholder + ".",
	}
}

func (c *AnnounceCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "Announcement text",
				Required:    true,
			},
		},
	}
}

func (c *AnnounceCommand) Run(ctx any) error {
	in := readInput(ctx)
	text := strings.TrimSpace(in.str("message"))
	if text == "" {
		text = strings.TrimSpace(strings.Join(in.args, " "))
	}

	if text == "" || len(text) > maxAnnouncementLength {
		// refund: nothing was announced
		if err := command.CooldownHandle(ctx).Cancel(context.Background()); err != nil {
			return err
		}
		return reply(ctx, fmt.Sprintf("Announcement must be 1 to %d characters.", maxAnnouncementLength), true)
	}

	who, err := command.InvokerOf(ctx)
	if err != nil {
		return err
	}
	return command.Notify(ctx, &discordgo.MessageEmbed{
		Title:       "📢 Announcement",
		Description: text,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Posted by " + who.UserID},
	}, false)
}
