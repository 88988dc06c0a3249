package config

import (
	"sort"
	"strings"

	logx "nutricare/pkg/logx"
)

// Section names reported by SummarizeConfigChange.
const (
	SectionLogging   = "logging"
	SectionStorage   = "storage"
	SectionReminders = "reminders"
	SectionGateway   = "gateway"
	SectionHistory   = "history"
	SectionDebug     = "debug"
)

// RestartRequired reports whether a changed section can only be applied by
// restarting the daemon.
func RestartRequired(section string) bool {
	switch section {
	case SectionStorage, SectionGateway, SectionHistory:
		return true
	}
	return false
}

// SummarizeConfigChange returns (1) a sorted list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if hashSection(oldCfg.Logging) != hashSection(newCfg.Logging) {
		changed = append(changed, SectionLogging)
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Nil means in-memory.
	var oDriver, nDriver string
	var oPath, nPath string
	if oldCfg.Storage != nil {
		oDriver, oPath = strings.TrimSpace(oldCfg.Storage.Driver), strings.TrimSpace(oldCfg.Storage.Path)
	}
	if newCfg.Storage != nil {
		nDriver, nPath = strings.TrimSpace(newCfg.Storage.Driver), strings.TrimSpace(newCfg.Storage.Path)
	}
	if hashSection(oldCfg.Storage) != hashSection(newCfg.Storage) {
		changed = append(changed, SectionStorage)
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.driver_changed", oDriver != nDriver),
			logx.Bool("storage.path_changed", oPath != nPath),
		)
	}

	if hashSection(oldCfg.Reminders) != hashSection(newCfg.Reminders) {
		changed = append(changed, SectionReminders)
		b := Bootstrap(newCfg)
		attrs = append(attrs,
			logx.Int("reminders.days_ahead", b.DaysAhead),
			logx.Bool("reminders.meal_pre", b.MealPre),
			logx.Bool("reminders.meal_post", b.MealPost),
			logx.Bool("reminders.hydration", b.Hydration),
			logx.String("reminders.refresh", RefreshSpec(newCfg)),
			logx.String("reminders.timezone", strings.TrimSpace(newCfg.Reminders.Timezone)),
		)
	}

	// Gateway (never log token)
	if hashSection(oldCfg.Gateway) != hashSection(newCfg.Gateway) {
		changed = append(changed, SectionGateway)
		attrs = append(attrs,
			logx.String("gateway.driver", strings.TrimSpace(newCfg.Gateway.Driver)),
			logx.Bool("gateway.telegram_token_set", strings.TrimSpace(newCfg.Gateway.Telegram.Token) != ""),
		)
	}

	if hashSection(oldCfg.History) != hashSection(newCfg.History) {
		changed = append(changed, SectionHistory)
		attrs = append(attrs, logx.Int("history.capacity", newCfg.History.Capacity))
	}

	// Debug (never log token)
	if hashSection(oldCfg.Debug) != hashSection(newCfg.Debug) {
		changed = append(changed, SectionDebug)
		attrs = append(attrs,
			logx.Bool("debug.enabled", newCfg.Debug.Enabled),
			logx.String("debug.addr", strings.TrimSpace(newCfg.Debug.Addr)),
			logx.Bool("debug.token_set", strings.TrimSpace(newCfg.Debug.Token) != ""),
			logx.Bool("debug.allow_insecure", newCfg.Debug.AllowInsecure),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
