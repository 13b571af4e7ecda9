// Package discord connects the command registry to a Discord session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/config"
	"github.com/keshon/cmdguard/pkg/cmd"
	"github.com/keshon/cmdguard/pkg/retrylimit"
)

// Bot is a Discord bot dispatching to a cmd.Registry.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	registry *cmd.Registry
	log      zerolog.Logger
	limiter  *retrylimit.AdaptiveLimiter
}

func New(cfg *config.Config, registry *cmd.Registry, log zerolog.Logger) *Bot {
	return &Bot{
		cfg:      cfg,
		registry: registry,
		log:      log,
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
	}
}

// Run opens the session and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	dg, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	b.dg = dg

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onInteractionCreate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing Discord session")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfBlacklisted(s, g.ID)
	}

	if b.cfg.InitSlashCommands {
		if err := b.registerCommands(context.Background(), s); err != nil {
			b.log.Error().Err(err).Msg("Error registering slash commands")
		}
	} else {
		b.log.Info().Msg("Registering slash commands skipped")
	}

	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	b.log.Debug().Str("guild", g.ID).Str("name", g.Name).Msg("Guild available")
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !slices.Contains(b.cfg.DiscordGuildBlacklist, guildID) {
		return false
	}
	b.log.Info().Str("guild", guildID).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
	return true
}

// registerCommands replaces the application's global slash commands with the
// registry's, retrying on rate limits and server errors.
func (b *Bot) registerCommands(ctx context.Context, s *discordgo.Session) error {
	defs := slashDefinitions(b.registry)
	cfg := retrylimit.DefaultConfig()
	cfg.Status = restStatus
	cfg.OnRetry = func(attempt int, err error) {
		b.log.Warn().Err(err).Int("attempt", attempt).Msg("Retrying slash command registration")
	}

	err := retrylimit.Do(ctx, cfg, b.limiter, func() error {
		_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", defs)
		if code, ok := restStatus(err); ok && code < 500 && code != http.StatusTooManyRequests {
			return &retrylimit.FatalError{Err: err}
		}
		return err
	})
	if err != nil {
		return err
	}
	b.log.Info().Int("count", len(defs)).Msg("Slash commands registered")
	return nil
}

// restStatus reports the HTTP status of a discordgo REST error.
func restStatus(err error) (int, bool) {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode, true
	}
	return 0, false
}

func slashDefinitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.GetAll() {
		sp, ok := cmd.Root(c).(command.SlashProvider)
		if !ok {
			continue
		}
		if def := sp.SlashDefinition(); def != nil {
			if def.Type == 0 {
				def.Type = discordgo.ChatApplicationCommand
			}
			defs = append(defs, def)
		}
	}
	return defs
}

// onMessageCreate handles "@bot <command> [args...]".
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || s.State.User == nil {
		return
	}
	name, args, ok := parseMention(m.Content, s.State.User.ID)
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}

	data := &command.MessageContext{Session: s, Event: m, Args: args, Responder: DefaultResponder}
	if err := c.Run(context.Background(), &cmd.Invocation{Args: args, Data: data}); err != nil {
		b.log.Error().Err(err).Str("command", name).Msg("Error running message command")
		_ = MessageEmbed(s, m.ChannelID, errorEmbed(err))
	}
}

// parseMention splits "<@id> name args..." (or "<@!id> ...") into its parts.
func parseMention(content, botID string) (string, []string, bool) {
	fields := strings.Fields(content)
	if len(fields) < 2 {
		return "", nil, false
	}
	if fields[0] != "<@"+botID+">" && fields[0] != "<@!"+botID+">" {
		return "", nil, false
	}
	return strings.ToLower(fields[1]), fields[2:], true
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		c := b.registry.Get(name)
		if c == nil {
			b.log.Warn().Str("command", name).Msg("Unknown command")
			return
		}
		data := &command.SlashInteractionContext{Session: s, Event: i, Responder: DefaultResponder}
		if err := c.Run(context.Background(), &cmd.Invocation{Data: data}); err != nil {
			b.log.Error().Err(err).Str("command", name).Msg("Error running slash command")
			_ = RespondEmbedEphemeral(s, i, errorEmbed(err))
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		data := &command.ComponentInteractionContext{Session: s, Event: i, Responder: DefaultResponder}
		handled, err := runComponent(context.Background(), b.registry, data)
		if !handled {
			b.log.Warn().Str("custom_id", customID).Msg("No matching component")
			return
		}
		if err != nil {
			b.log.Error().Err(err).Str("custom_id", customID).Msg("Error running component")
			_ = RespondEmbedEphemeral(s, i, errorEmbed(err))
		}

	default:
		b.log.Debug().Int("type", int(i.Type)).Msg("Unhandled interaction type")
	}
}

// runComponent dispatches a click on "<command>:<action>" through the
// command's middleware chain, so cooldowns apply to buttons too.
func runComponent(ctx context.Context, reg *cmd.Registry, data *command.ComponentInteractionContext) (bool, error) {
	name, _, _ := strings.Cut(data.Event.MessageComponentData().CustomID, ":")
	c := reg.Get(name)
	if c == nil || !command.HandlesComponents(c) {
		return false, nil
	}
	return true, c.Run(ctx, &cmd.Invocation{Data: data})
}

func errorEmbed(err error) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: err.Error(),
		Color:       EmbedColor,
	}
}
