package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/middleware"
	"github.com/keshon/cmdguard/pkg/cmd"
)

func TestParseMention(t *testing.T) {
	tests := []struct {
		content string
		name    string
		args    []string
		ok      bool
	}{
		{"<@42> ping", "ping", []string{}, true},
		{"<@!42>   Daily  now", "daily", []string{"now"}, true},
		{"<@42>", "", nil, false},
		{"<@7> ping", "", nil, false},
		{"ping <@42>", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			name, args, ok := parseMention(tt.content, "42")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			if tt.ok {
				assert.Equal(t, tt.args, args)
			}
		})
	}
}

type slashOnly struct{ name string }

func (s *slashOnly) Name() string        { return s.name }
func (s *slashOnly) Description() string { return s.name }
func (s *slashOnly) Category() string    { return "test" }
func (s *slashOnly) Run(any) error       { return nil }
func (s *slashOnly) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: s.name, Description: s.name}
}

type textOnly struct{ slashOnly }

func (textOnly) SlashDefinition() *discordgo.ApplicationCommand { return nil }

func TestSlashDefinitions(t *testing.T) {
	reg := cmd.NewRegistry()
	require.NoError(t, command.RegisterCommand(reg, &slashOnly{name: "ping"}))
	require.NoError(t, command.RegisterCommand(reg, &textOnly{slashOnly{name: "echo"}}))

	defs := slashDefinitions(reg)
	require.Len(t, defs, 1)
	assert.Equal(t, "ping", defs[0].Name)
	assert.Equal(t, discordgo.ChatApplicationCommand, defs[0].Type)
}

func TestRestStatus(t *testing.T) {
	rest := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}

	code, ok := restStatus(fmt.Errorf("overwrite: %w", rest))
	assert.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, code)

	_, ok = restStatus(errors.New("socket closed"))
	assert.False(t, ok)

	_, ok = restStatus(&discordgo.RESTError{})
	assert.False(t, ok)
}

type voteCommand struct {
	slashOnly
	clicks int
}

func (v *voteCommand) Cooldown() command.CooldownSpec {
	return command.CooldownSpec{Scope: cooldown.PerUser, Duration: "1 m"}
}

func (v *voteCommand) Component(*command.ComponentInteractionContext) error {
	v.clicks++
	return nil
}

type silentResponder struct{ denied int }

func (r *silentResponder) RespondEmbed(*discordgo.Session, *discordgo.InteractionCreate, *discordgo.MessageEmbed) error {
	return nil
}

func (r *silentResponder) RespondEmbedEphemeral(*discordgo.Session, *discordgo.InteractionCreate, *discordgo.MessageEmbed) error {
	r.denied++
	return nil
}

func (r *silentResponder) RespondEmbedComponents(*discordgo.Session, *discordgo.InteractionCreate, *discordgo.MessageEmbed, []discordgo.MessageComponent) error {
	return nil
}

func (r *silentResponder) MessageEmbed(*discordgo.Session, string, *discordgo.MessageEmbed) error {
	return nil
}

func (r *silentResponder) EmbedColor() int { return EmbedColor }

func clickEvent(user, customID string) *command.ComponentInteractionContext {
	return &command.ComponentInteractionContext{Event: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		User: &discordgo.User{ID: user},
		Data: discordgo.MessageComponentInteractionData{CustomID: customID},
	}}}
}

func TestRunComponent_AppliesCooldown(t *testing.T) {
	m, err := cooldown.New(context.Background(), nil, cooldown.Config{})
	require.NoError(t, err)
	reg := cmd.NewRegistry()
	vote := &voteCommand{slashOnly: slashOnly{name: "vote"}}
	require.NoError(t, command.RegisterCommand(reg, vote, middleware.WithCooldown(m)))
	require.NoError(t, command.RegisterCommand(reg, &slashOnly{name: "ping"}))

	r := &silentResponder{}
	for range 2 {
		data := clickEvent("u1", "vote:yes")
		data.Responder = r
		handled, err := runComponent(context.Background(), reg, data)
		require.NoError(t, err)
		assert.True(t, handled)
	}
	assert.Equal(t, 1, vote.clicks)
	assert.Equal(t, 1, r.denied)

	handled, err := runComponent(context.Background(), reg, clickEvent("u1", "ping:again"))
	require.NoError(t, err)
	assert.False(t, handled)

	handled, _ = runComponent(context.Background(), reg, clickEvent("u1", "missing"))
	assert.False(t, handled)
}
