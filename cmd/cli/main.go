// Command cli inspects and maintains cooldown state outside the bot.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/keshon/cmdguard/internal/config"
	"github.com/keshon/cmdguard/internal/logging"
)

type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cmdguard",
		Short:         "Inspect cooldowns and commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
				cfg.Store.Driver = driver
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Log)
			return nil
		},
	}
	root.PersistentFlags().String("driver", "", "override STORE_DRIVER (datastore, redis, sqlite)")

	root.AddCommand(newCooldownsCmd(a), newCommandsCmd(a))
	return root
}

func main() {
	a := &app{}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
