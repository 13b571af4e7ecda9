package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/cooldown"
)

const DefaultDailyReward = 100

// DailyCommand credits a daily reward. If the credit fails the cooldown is
// refunded so the user can try again.
type DailyCommand struct {
	Ledger Ledger
	Reward int
}

func (c *DailyCommand) Name() string        { return "daily" }
func (c *DailyCommand) Description() string { return "Claim your daily points" }
func (c *DailyCommand) Category() string    { return "🎲 Gameplay" }

func (c *DailyCommand) Cooldown() command.CooldownSpec {
	return command.CooldownSpec{Scope: cooldown.PerUserPerGuild, Duration: "1 d"}
}

func (c *DailyCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *DailyCommand) Run(ctx any) error {
	who, err := command.InvokerOf(ctx)
	if err != nil {
		return err
	}

	balance, err := c.Ledger.Add(who.GuildID, who.UserID, c.Reward)
	if err != nil {
		if cerr := command.CooldownHandle(ctx).Cancel(context.Background()); cerr != nil {
			return errors.Join(err, cerr)
		}
		if errors.Is(err, ErrBalanceCapped) {
			return reply(ctx, fmt.Sprintf("Your balance is full (%d). Spend some points first.", balance), true)
		}
		return fmt.Errorf("claim daily reward: %w", err)
	}

	return reply(ctx, fmt.Sprintf("You claimed **%d** points. Balance: **%d**.", c.Reward, balance), false)
}
