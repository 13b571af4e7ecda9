package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/cmdguard/internal/command"
	"github.com/keshon/cmdguard/internal/command/core"
	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/pkg/cmd"
)

func newCommandsCmd(_ *app) *cobra.Command {
	var markdown bool
	c := &cobra.Command{
		Use:   "commands",
		Short: "List bot commands and their cooldowns",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			reg, err := builtinRegistry(c.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), renderCommands(reg, markdown))
			return nil
		},
	}
	c.Flags().BoolVar(&markdown, "markdown", false, "render a Markdown table for the README")
	return c
}

func builtinRegistry(ctx context.Context) (*cmd.Registry, error) {
	m, err := cooldown.New(ctx, nil, cooldown.Config{})
	if err != nil {
		return nil, err
	}
	reg := cmd.NewRegistry()
	if err := core.Register(core.Deps{Registry: reg, Manager: m, Log: zerolog.Nop()}); err != nil {
		return nil, err
	}
	return reg, nil
}

func renderCommands(reg *cmd.Registry, markdown bool) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Command", "Description", "Cooldown", "Scope"})

	for _, c := range reg.GetAll() {
		window, scope := "-", "-"
		if spec, ok := command.CooldownOf(c); ok {
			scope = spec.Scope.String()
			if secs, err := cooldown.ParseSeconds(spec.Duration); err == nil {
				window = cooldown.FormatRemaining(time.Duration(secs) * time.Second)
			}
		}
		t.AppendRow(table.Row{"/" + c.Name(), c.Description(), window, scope})
	}

	if markdown {
		return t.RenderMarkdown()
	}
	t.SetStyle(table.StyleRounded)
	return t.Render()
}
