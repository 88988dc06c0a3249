package app

import (
	"strings"
	"time"

	"nutricare/internal/config"
	"nutricare/internal/observability/debughttp"
)

// mapDebugConfig converts the debug section into the service config.
// It never starts the server.
func mapDebugConfig(cfg *config.Config) (debughttp.Config, error) {
	var out debughttp.Config
	if cfg == nil {
		return out, nil
	}
	dc := cfg.Debug

	out.Enabled = dc.Enabled
	out.AllowInsecure = dc.AllowInsecure
	out.Token = strings.TrimSpace(dc.Token)
	out.Addr = strings.TrimSpace(dc.Addr)
	if out.Addr == "" {
		out.Addr = config.DefaultDebugAddr
	}

	readTO, err := config.ParseDurationOrDefault("debug.read_timeout", dc.ReadTimeout, 5*time.Second)
	if err != nil {
		return out, err
	}
	// default 0 (disabled) so profiles and the websocket feed are not cut
	writeTO, err := config.ParseDurationField("debug.write_timeout", dc.WriteTimeout)
	if err != nil {
		return out, err
	}
	idleTO, err := config.ParseDurationOrDefault("debug.idle_timeout", dc.IdleTimeout, 120*time.Second)
	if err != nil {
		return out, err
	}
	out.ReadTimeout = readTO
	out.WriteTimeout = writeTO
	out.IdleTimeout = idleTO

	out.MutexProfileFraction = dc.MutexProfileFraction
	out.BlockProfileRate = dc.BlockProfileRate
	out.MemProfileRate = dc.MemProfileRate
	return out, nil
}
