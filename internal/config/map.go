package config

import (
	"fmt"
	"strings"
	"time"

	"nutricare/internal/reminder"
	logx "nutricare/pkg/logx"
)

const (
	DefaultDaysAhead = 2
	DefaultRefresh   = "5 0 * * *"
	DefaultDebugAddr = "127.0.0.1:6060"
)

// LogConfig maps the logging section onto the log service.
func LogConfig(cfg *Config) logx.Config {
	if cfg == nil {
		return logx.Config{Level: "info", Console: true}
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// ReminderCatalog builds the plan tables, applying meal/hydration overrides
// and lead/lag.
func ReminderCatalog(cfg *Config) (*reminder.Catalog, error) {
	if cfg == nil {
		return reminder.DefaultCatalog(), nil
	}
	rc := cfg.Reminders
	lead, err := ParseDurationField("reminders.lead", rc.Lead)
	if err != nil {
		return nil, err
	}
	lag, err := ParseDurationField("reminders.lag", rc.Lag)
	if err != nil {
		return nil, err
	}
	var plans map[reminder.Goal]reminder.HydrationPlan
	if len(rc.Hydration) > 0 {
		plans = make(map[reminder.Goal]reminder.HydrationPlan, len(rc.Hydration))
		for k, p := range rc.Hydration {
			g, err := reminder.ParseGoal(k)
			if err != nil {
				return nil, fmt.Errorf("reminders.hydration: %w", err)
			}
			plans[g] = p
		}
	}
	return reminder.NewCatalog(reminder.CatalogOptions{
		Meals: rc.Meals,
		Plans: plans,
		Lead:  lead,
		Lag:   lag,
	})
}

// Location resolves reminders.timezone; empty means the process local zone.
func Location(cfg *Config) (*time.Location, error) {
	if cfg == nil {
		return time.Local, nil
	}
	tz := strings.TrimSpace(cfg.Reminders.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("reminders.timezone: invalid %q: %w", tz, err)
	}
	return loc, nil
}

// Bootstrap maps the reminders section onto bootstrap options.
func Bootstrap(cfg *Config) reminder.BootstrapOptions {
	opt := reminder.DefaultBootstrapOptions()
	if cfg == nil {
		return opt
	}
	rc := cfg.Reminders
	opt.DaysAhead = DefaultDaysAhead
	if rc.DaysAhead != nil {
		opt.DaysAhead = *rc.DaysAhead
	}
	opt.MealPre = boolOr(rc.Families.MealPre, true)
	opt.MealPost = boolOr(rc.Families.MealPost, true)
	opt.Hydration = boolOr(rc.Families.Hydration, true)
	return opt
}

// RefreshSpec is the cron spec for the daily horizon refresh.
func RefreshSpec(cfg *Config) string {
	if cfg == nil || strings.TrimSpace(cfg.Reminders.Refresh) == "" {
		return DefaultRefresh
	}
	return strings.TrimSpace(cfg.Reminders.Refresh)
}

// DefaultGoal is used when no profile is cached.
func DefaultGoal(cfg *Config) reminder.Goal {
	if cfg == nil {
		return reminder.GoalMaintain
	}
	g, err := reminder.ParseGoal(cfg.Reminders.DefaultGoal)
	if err != nil {
		return reminder.GoalMaintain
	}
	return g
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
