package config

import (
	"nutricare/internal/reminder"
)

// Config is the reminderd configuration file (JSON or YAML).
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Reminders RemindersConfig `json:"reminders"`
	Gateway   GatewayConfig   `json:"gateway"`
	History   HistoryConfig   `json:"history,omitempty"`
	Debug     DebugConfig     `json:"debug,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level" validate:"omitempty,loglevel"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig selects the KV driver that backs history and the cached
// user profile. Nil means in-memory.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./nutricare.db" }
type StorageConfig struct {
	Driver      string `json:"driver" validate:"omitempty,oneof=none memory mem file sqlite sqlite3 badger"`
	Path        string `json:"path" validate:"required_if=Driver file,required_if=Driver sqlite,required_if=Driver sqlite3"`
	BusyTimeout string `json:"busy_timeout,omitempty" validate:"omitempty,duration"` // sqlite
	SyncWrites  bool   `json:"sync_writes,omitempty"`                                // badger
}

// RemindersConfig controls the engine. Durations are Go duration strings.
//
// Defaults (when fields are omitted/zero):
//   - days_ahead: 2
//   - families: all enabled
//   - lead/lag: "30m"
//   - parallelism: 4
//   - refresh: "5 0 * * *" (daily, just after midnight)
//   - timezone: process local
//   - default_goal: MAINTAIN
//   - profile_key: "user_profile"
type RemindersConfig struct {
	DaysAhead   *int           `json:"days_ahead,omitempty" validate:"omitempty,gte=0,lte=14"`
	Families    FamiliesConfig `json:"families,omitempty"`
	Lead        string         `json:"lead,omitempty" validate:"omitempty,duration"`
	Lag         string         `json:"lag,omitempty" validate:"omitempty,duration"`
	Parallelism int            `json:"parallelism,omitempty" validate:"gte=0,lte=64"`
	Refresh     string         `json:"refresh,omitempty" validate:"omitempty,cronspec"`
	Timezone    string         `json:"timezone,omitempty" validate:"omitempty,timezone"`
	DefaultGoal string         `json:"default_goal,omitempty" validate:"omitempty,goal"`
	ProfileKey  string         `json:"profile_key,omitempty"`

	// Meals and Hydration replace the built-in plan tables when set.
	Meals     []reminder.MealDefinition         `json:"meals,omitempty" validate:"dive"`
	Hydration map[string]reminder.HydrationPlan `json:"hydration,omitempty" validate:"dive,keys,goal,endkeys"`
}

// FamiliesConfig toggles reminder families. Omitted means enabled.
type FamiliesConfig struct {
	MealPre   *bool `json:"meal_pre,omitempty"`
	MealPost  *bool `json:"meal_post,omitempty"`
	Hydration *bool `json:"hydration,omitempty"`
}

// GatewayConfig selects the notification platform driver.
type GatewayConfig struct {
	Driver   string                `json:"driver" validate:"omitempty,oneof=local telegram"`
	Channel  string                `json:"channel,omitempty"`
	Local    LocalGatewayConfig    `json:"local,omitempty"`
	Telegram TelegramGatewayConfig `json:"telegram,omitempty"`
}

type LocalGatewayConfig struct {
	Authorization  string `json:"authorization,omitempty" validate:"omitempty,oneof=authorized denied provisional not_determined"`
	GrantOnRequest *bool  `json:"grant_on_request,omitempty"`
	Background     bool   `json:"background,omitempty"`
}

// TelegramGatewayConfig delivers reminders to one chat.
type TelegramGatewayConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout   string  `json:"poll_timeout,omitempty" validate:"omitempty,duration"`
	RatePerSec    float64 `json:"rate_per_sec,omitempty" validate:"gte=0"`
	RetryMax      int     `json:"retry_max,omitempty" validate:"gte=0,lte=20"`
	RetryBase     string  `json:"retry_base,omitempty" validate:"omitempty,duration"`
	RetryMaxDelay string  `json:"retry_max_delay,omitempty" validate:"omitempty,duration"`
	QueueSize     int     `json:"queue_size,omitempty" validate:"gte=0"`
}

type HistoryConfig struct {
	Key      string `json:"key,omitempty"`
	Capacity int    `json:"capacity,omitempty" validate:"gte=0,lte=10000"`
}

// DebugConfig controls the optional debug HTTP server (health, pprof,
// metrics, history and trigger inspection).
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type DebugConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty" validate:"omitempty,hostname_port"`
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /debug/pprof/profile and the websocket feed work.
	ReadTimeout  string `json:"read_timeout,omitempty" validate:"omitempty,duration"`
	WriteTimeout string `json:"write_timeout,omitempty" validate:"omitempty,duration"`
	IdleTimeout  string `json:"idle_timeout,omitempty" validate:"omitempty,duration"`

	// Runtime profiling rates. Leave 0 to keep Go defaults.
	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty" validate:"gte=0"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty" validate:"gte=0"`
	MemProfileRate       int `json:"mem_profile_rate,omitempty" validate:"gte=0"`
}
