package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nutricare/internal/app"
	"nutricare/pkg/systemd"
)

const stopTimeout = 10 * time.Second

func newRunCmd(cfgPath func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the reminder daemon until SIGINT/SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			a, err := app.New(cfgPath())
			if err != nil {
				return err
			}
			if err := a.Start(ctx); err != nil {
				_ = a.Stop(context.Background(), app.StopFatalError)
				return err
			}
			_ = systemd.Ready()
			if ids, err := a.Gateway().TriggerIDs(ctx); err == nil {
				_ = systemd.Status(fmt.Sprintf("%d reminders pending", len(ids)))
			}
			go func() { _ = systemd.Watchdog(ctx) }()

			var reason app.StopReason
			select {
			case sig := <-sigCh:
				if sig == syscall.SIGTERM {
					reason = app.StopSIGTERM
				} else {
					reason = app.StopSIGINT
				}
			case <-a.Done():
				reason = app.StopFatalError
			}

			_ = systemd.Stopping()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
			defer stopCancel()
			_ = a.Stop(stopCtx, reason)
			if reason == app.StopFatalError {
				return a.Err()
			}
			return nil
		},
	}
}
