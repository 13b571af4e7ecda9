package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/keshon/cmdguard/internal/cooldown"
	"github.com/keshon/cmdguard/internal/storage"
)

func newCooldownsCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:     "cooldowns",
		Aliases: []string{"cd"},
		Short:   "Manage durable cooldown records",
	}

	c.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List durable cooldown records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), func(st storage.Store) error {
					recs, err := st.LoadAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderRecords(recs, time.Now()))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "purge",
			Short: "Delete expired durable records",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withStore(cmd.Context(), func(st storage.Store) error {
					n, err := st.DeleteExpired(cmd.Context(), time.Now())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired cooldown(s)\n", n)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear <key>...",
			Short: "Delete durable records by key",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withStore(cmd.Context(), func(st storage.Store) error {
					return clearKeys(cmd.Context(), st, args, cmd.OutOrStdout())
				})
			},
		},
	)
	return c
}

func (a *app) withStore(ctx context.Context, fn func(storage.Store) error) error {
	st, err := storage.Open(ctx, a.cfg.Store, a.log)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func clearKeys(ctx context.Context, st cooldown.Store, keys []string, w io.Writer) error {
	for _, k := range keys {
		if err := st.Delete(ctx, k); err != nil {
			return fmt.Errorf("clear %s: %w", k, err)
		}
		fmt.Fprintf(w, "Cleared %s\n", k)
	}
	return nil
}

func renderRecords(recs []cooldown.Record, now time.Time) string {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Key", "Expires", "Remaining"})

	expired := 0
	for _, r := range recs {
		remaining := "expired"
		if !now.After(r.Expires) {
			remaining = cooldown.FormatRemaining(r.Expires.Sub(now))
		} else {
			expired++
		}
		t.AppendRow(table.Row{r.ID, r.Expires.Local().Format(time.DateTime), remaining})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d record(s)", len(recs)), "", fmt.Sprintf("%d expired", expired)})
	return t.Render()
}
