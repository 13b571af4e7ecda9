package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/pkg/cmd"
)

// Discord-specific contexts passed in cmd.Invocation.Data. Cooldown is set by
// the cooldown middleware before the command runs.

type SlashInteractionContext struct {
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	Responder Responder
	Cooldown  *cooldown.Handle
}

type ComponentInteractionContext struct {
	Session   *discordgo.Session
	Event     *discordgo.InteractionCreate
	Responder Responder
	Cooldown  *cooldown.Handle
}

// MessageContext is a mention-prefixed text command: "@bot ping".
type MessageContext struct {
	Session   *discordgo.Session
	Event     *discordgo.MessageCreate
	Args      []string
	Responder Responder
	Cooldown  *cooldown.Handle
}

// Responder sends replies so commands and middleware never import the discord package.
type Responder interface {
	RespondEmbed(s *discordgo.Session, e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error
	RespondEmbedEphemeral(s *discordgo.Session, e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error
	RespondEmbedComponents(s *discordgo.Session, e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error
	MessageEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error
	EmbedColor() int
}

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

// ComponentInteractionHandler is implemented by commands whose messages carry
// buttons. Custom ids are "<command>:<action>", and clicks run through the
// command's middleware like any other invocation.
type ComponentInteractionHandler interface {
	Component(*ComponentInteractionContext) error
}

// CooldownProvider is implemented by commands that are rate limited.
type CooldownProvider interface {
	Cooldown() CooldownSpec
}

// CooldownSpec declares how a command is limited. Duration takes the same
// forms as cooldown.Request.Duration; an empty Message uses the default.
type CooldownSpec struct {
	Scope    cooldown.Scope
	Duration any
	Message  string
}

// DiscordCommand is what individual Discord commands implement.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	Run(ctx any) error
}

// DiscordAdapter adapts a DiscordCommand to cmd.Command and forwards the
// optional provider interfaces of the inner command.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string        { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string    { return a.Cmd.Category() }

func (a *DiscordAdapter) Aliases() []string {
	if al, ok := a.Cmd.(cmd.Aliased); ok {
		return al.Aliases()
	}
	return nil
}

func (a *DiscordAdapter) Run(_ context.Context, inv *cmd.Invocation) error {
	if cc, ok := inv.Data.(*ComponentInteractionContext); ok {
		ch, ok := a.Cmd.(ComponentInteractionHandler)
		if !ok {
			return fmt.Errorf("command %s does not handle components", a.Cmd.Name())
		}
		return ch.Component(cc)
	}
	return a.Cmd.Run(inv.Data)
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}


// CooldownSpec returns the inner command's cooldown, if it declares one.
func (a *DiscordAdapter) CooldownSpec() (CooldownSpec, bool) {
	if cp, ok := a.Cmd.(CooldownProvider); ok {
		return cp.Cooldown(), true
	}
	return CooldownSpec{}, false
}

// HandlesComponents reports whether c, under any middleware chain, accepts
// component interactions.
func HandlesComponents(c cmd.Command) bool {
	switch root := cmd.Root(c).(type) {
	case *DiscordAdapter:
		_, ok := root.Cmd.(ComponentInteractionHandler)
		return ok
	case ComponentInteractionHandler:
		return true
	}
	return false
}

// CooldownOf finds the cooldown declared under any middleware chain.
func CooldownOf(c cmd.Command) (CooldownSpec, bool) {
	switch root := cmd.Root(c).(type) {
	case *DiscordAdapter:
		return root.CooldownSpec()
	case CooldownProvider:
		return root.Cooldown(), true
	}
	return CooldownSpec{}, false
}

// RegisterCommand wraps dc with mws and adds it to reg. The first middleware runs first.
func RegisterCommand(reg *cmd.Registry, dc DiscordCommand, mws ...cmd.Middleware) error {
	return reg.Register(cmd.Apply(&DiscordAdapter{Cmd: dc}, mws...))
}
