package reminder

import (
	"context"
	"fmt"
	"sync"

	"nutricare/internal/platform"
	logx "nutricare/pkg/logx"
)

const (
	DefaultChannelID   = "nutricare-reminders"
	DefaultChannelName = "Meal and water reminders"
)

// Prompter explains to the user why reminders will not show up.
type Prompter interface {
	ExplainDenied(ctx context.Context, status platform.AuthStatus) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, status platform.AuthStatus) error

func (f PrompterFunc) ExplainDenied(ctx context.Context, status platform.AuthStatus) error {
	return f(ctx, status)
}

// LogPrompter writes the explanation to the log.
func LogPrompter(log logx.Logger) Prompter {
	return PrompterFunc(func(ctx context.Context, status platform.AuthStatus) error {
		log.Warn("notifications are turned off; meal and water reminders will not be shown until they are allowed in settings",
			logx.String("status", status.String()))
		return nil
	})
}

// Readiness makes sure the channel exists and permission was asked for.
// EnsureReady is cheap to call on every engine entry point; the denial
// prompt is shown at most once per process.
type Readiness struct {
	gw       platform.Gateway
	channel  platform.Channel
	prompter Prompter
	log      logx.Logger

	mu          sync.Mutex
	channelDone bool
	prompted    bool
}

func NewReadiness(gw platform.Gateway, channel platform.Channel, prompter Prompter, log logx.Logger) *Readiness {
	if log.IsZero() {
		log = logx.Nop()
	}
	if channel.ID == "" {
		channel.ID = DefaultChannelID
	}
	if channel.Name == "" {
		channel.Name = DefaultChannelName
	}
	if prompter == nil {
		prompter = LogPrompter(log)
	}
	return &Readiness{gw: gw, channel: channel, prompter: prompter, log: log}
}

func (r *Readiness) ChannelID() string { return r.channel.ID }

// EnsureReady returns the current authorization. A denied status is not an
// error; only gateway failures are.
func (r *Readiness) EnsureReady(ctx context.Context) (platform.AuthStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.channelDone {
		if _, err := r.gw.CreateChannel(ctx, r.channel); err != nil {
			return platform.AuthNotDetermined, fmt.Errorf("create channel: %w", err)
		}
		r.channelDone = true
	}

	status, err := r.gw.AuthorizationStatus(ctx)
	if err != nil {
		return platform.AuthNotDetermined, fmt.Errorf("authorization status: %w", err)
	}
	if status == platform.AuthNotDetermined {
		status, err = r.gw.RequestAuthorization(ctx)
		if err != nil {
			return platform.AuthNotDetermined, fmt.Errorf("request authorization: %w", err)
		}
	}
	if status.Granted() || r.prompted {
		return status, nil
	}

	r.prompted = true
	if err := r.prompter.ExplainDenied(ctx, status); err != nil {
		r.log.Debug("denial prompt failed", logx.Err(err))
	}
	if err := r.gw.OpenSettings(ctx); err != nil {
		r.log.Debug("open settings failed", logx.Err(err))
	}
	return status, nil
}
