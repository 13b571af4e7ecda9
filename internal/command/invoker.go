package command

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/cooldown"
)

// ErrNoInvoker means the event carries no user, e.g. a webhook message.
var ErrNoInvoker = errors.New("event has no invoking user")

// Invoker identifies who triggered a command and where.
type Invoker struct {
	UserID    string
	GuildID   string
	ChannelID string
}

// InvokerOf extracts the invoker from a Discord context.
func InvokerOf(data any) (Invoker, error) {
	switch v := data.(type) {
	case *SlashInteractionContext:
		return interactionInvoker(v.Event)
	case *ComponentInteractionContext:
		return interactionInvoker(v.Event)
	case *MessageContext:
		if v.Event == nil || v.Event.Message == nil || v.Event.Author == nil {
			return Invoker{}, ErrNoInvoker
		}
		return Invoker{UserID: v.Event.Author.ID, GuildID: v.Event.GuildID, ChannelID: v.Event.ChannelID}, nil
	}
	return Invoker{}, fmt.Errorf("unsupported context type %T", data)
}

func interactionInvoker(e *discordgo.InteractionCreate) (Invoker, error) {
	if e == nil || e.Interaction == nil {
		return Invoker{}, ErrNoInvoker
	}
	inv := Invoker{GuildID: e.GuildID, ChannelID: e.ChannelID}
	switch {
	case e.Member != nil && e.Member.User != nil:
		inv.UserID = e.Member.User.ID
	case e.User != nil:
		inv.UserID = e.User.ID
	default:
		return Invoker{}, ErrNoInvoker
	}
	return inv, nil
}

// SetCooldown attaches h to the context.
func SetCooldown(data any, h *cooldown.Handle) {
	switch v := data.(type) {
	case *SlashInteractionContext:
		v.Cooldown = h
	case *ComponentInteractionContext:
		v.Cooldown = h
	case *MessageContext:
		v.Cooldown = h
	}
}

// CooldownHandle returns the handle attached to the context, or nil.
func CooldownHandle(data any) *cooldown.Handle {
	switch v := data.(type) {
	case *SlashInteractionContext:
		return v.Cooldown
	case *ComponentInteractionContext:
		return v.Cooldown
	case *MessageContext:
		return v.Cooldown
	}
	return nil
}

// Notify sends embed back to wherever the context came from. Interaction
// replies are ephemeral when private is set; message replies never are.
func Notify(data any, embed *discordgo.MessageEmbed, private bool) error {
	switch v := data.(type) {
	case *SlashInteractionContext:
		return respond(v.Responder, v.Session, v.Event, embed, private)
	case *ComponentInteractionContext:
		return respond(v.Responder, v.Session, v.Event, embed, private)
	case *MessageContext:
		if v.Responder == nil {
			return errors.New("no responder")
		}
		if embed.Color == 0 {
			embed.Color = v.Responder.EmbedColor()
		}
		return v.Responder.MessageEmbed(v.Session, v.Event.ChannelID, embed)
	}
	return fmt.Errorf("unsupported context type %T", data)
}

// ReplyWithComponents answers publicly with embed and components. Message
// contexts get the embed alone.
func ReplyWithComponents(data any, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	var (
		r Responder
		s *discordgo.Session
		e *discordgo.InteractionCreate
	)
	switch v := data.(type) {
	case *SlashInteractionContext:
		r, s, e = v.Responder, v.Session, v.Event
	case *ComponentInteractionContext:
		r, s, e = v.Responder, v.Session, v.Event
	default:
		return Notify(data, embed, false)
	}
	if r == nil {
		return errors.New("no responder")
	}
	if embed.Color == 0 {
		embed.Color = r.EmbedColor()
	}
	return r.RespondEmbedComponents(s, e, embed, components)
}

func respond(r Responder, s *discordgo.Session, e *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, private bool) error {
	if r == nil {
		return errors.New("no responder")
	}
	if embed.Color == 0 {
		embed.Color = r.EmbedColor()
	}
	if private {
		return r.RespondEmbedEphemeral(s, e, embed)
	}
	return r.RespondEmbed(s, e, embed)
}
