// Package systemd reports daemon state to the service manager through
// sd_notify. Outside systemd (no NOTIFY_SOCKET) every call is a no-op.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd startup finished (Type=notify units).
func Ready() error { return notify(daemon.SdNotifyReady) }

// Stopping tells systemd shutdown began.
func Stopping() error { return notify(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func Status(msg string) error { return notify("STATUS=" + msg) }

func notify(state string) error {
	_, err := daemon.SdNotify(false, state)
	return err
}

// Watchdog pings the service manager at half the configured WatchdogSec
// until ctx ends. It returns immediately when the watchdog is disabled.
func Watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return err
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := notify(daemon.SdNotifyWatchdog); err != nil {
				return err
			}
		}
	}
}
