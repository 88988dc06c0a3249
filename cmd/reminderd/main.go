package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("fatal:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "reminderd",
		Short:         "Meal and hydration reminder daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "./config.json", "path to config file (json or yaml)")

	cfg := func() string { return cfgPath }
	root.AddCommand(
		newRunCmd(cfg),
		newPlanCmd(cfg),
		newHistoryCmd(cfg),
	)
	return root
}
