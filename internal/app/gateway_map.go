package app

import (
	"fmt"
	"strings"
	"time"

	"nutricare/internal/config"
	"nutricare/internal/platform"
	"nutricare/internal/platform/local"
	"nutricare/internal/platform/telegram"
	logx "nutricare/pkg/logx"
)

// newGateway builds the configured platform driver. The local gateway is
// also returned on its own so the debug server can simulate presses.
func newGateway(cfg *config.Config, log logx.Logger) (platform.Gateway, *local.Gateway, error) {
	gc := cfg.Gateway
	switch strings.ToLower(strings.TrimSpace(gc.Driver)) {
	case "", "local":
		auth := strings.TrimSpace(gc.Local.Authorization)
		if auth == "" {
			auth = platform.AuthAuthorized.String()
		}
		grant := true
		if gc.Local.GrantOnRequest != nil {
			grant = *gc.Local.GrantOnRequest
		}
		gw := local.New(local.Config{
			Authorization:  auth,
			GrantOnRequest: grant,
			Background:     gc.Local.Background,
		}, log)
		return gw, gw, nil
	case "telegram":
		tc, err := mapTelegramConfig(gc.Telegram)
		if err != nil {
			return nil, nil, err
		}
		gw, err := telegram.New(tc, log)
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown gateway.driver: %s", gc.Driver)
	}
}

func mapTelegramConfig(tc config.TelegramGatewayConfig) (telegram.Config, error) {
	poll, err := config.ParseDurationOrDefault("gateway.telegram.poll_timeout", tc.PollTimeout, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	base, err := config.ParseDurationOrDefault("gateway.telegram.retry_base", tc.RetryBase, 500*time.Millisecond)
	if err != nil {
		return telegram.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("gateway.telegram.retry_max_delay", tc.RetryMaxDelay, 10*time.Second)
	if err != nil {
		return telegram.Config{}, err
	}
	return telegram.Config{
		Token:         strings.TrimSpace(tc.Token),
		ChatID:        tc.ChatID,
		PollTimeout:   poll,
		RatePerSec:    tc.RatePerSec,
		RetryMax:      tc.RetryMax,
		RetryBase:     base,
		RetryMaxDelay: maxDelay,
		QueueSize:     tc.QueueSize,
	}, nil
}
