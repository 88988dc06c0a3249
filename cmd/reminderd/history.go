package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"nutricare/internal/app"
	"nutricare/internal/config"
	"nutricare/internal/history"
	logx "nutricare/pkg/logx"
)

func newHistoryCmd(cfgPath func() string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the notification history grouped by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cfgPath(), func(cfg *config.Config, h *history.Store) error {
				items := h.ReadAll(cmd.Context())
				if jsonOut {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(items)
				}
				loc, err := config.Location(cfg)
				if err != nil {
					return err
				}
				renderHistory(cmd.OutOrStdout(), items, time.Now().In(loc))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the raw items as JSON")
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every history item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cfgPath(), func(_ *config.Config, h *history.Store) error {
				if err := h.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
				return nil
			})
		},
	})
	return cmd
}

// withHistory opens the configured storage for the duration of fn. Drivers
// that lock their files (badger) need the daemon stopped first.
func withHistory(cfgPath string, fn func(cfg *config.Config, h *history.Store) error) error {
	cfg, err := config.NewConfigManager(cfgPath).Load()
	if err != nil {
		return err
	}
	log := logx.NewConsole("error")
	kv, err := app.OpenStorage(cfg, log)
	if err != nil {
		return err
	}
	defer kv.Close()
	return fn(cfg, app.NewHistory(cfg, kv, log))
}

func renderHistory(w io.Writer, items []history.Item, now time.Time) {
	if len(items) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("no notifications yet"))
		return
	}
	for _, sec := range history.GroupByDay(items, now) {
		fmt.Fprintln(w, styles.Header.Render(sec.Label))
		for _, it := range sec.Items {
			clock := history.FormatClock(it, now.Location())
			if clock == "" {
				clock = "--:--"
			}
			fmt.Fprintf(w, "  %s  %s %s\n", clock, styles.Kind.Render(string(it.Kind)), it.Title)
			if it.Message != "" {
				fmt.Fprintln(w, styles.Muted.Render("         "+it.Message))
			}
		}
	}
}
