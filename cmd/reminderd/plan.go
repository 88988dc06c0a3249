package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nutricare/internal/config"
	"nutricare/internal/reminder"
)

type planOptions struct {
	days    int
	goal    string
	now     string
	jsonOut bool
}

func newPlanCmd(cfgPath func() string) *cobra.Command {
	var o planOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the triggers a bootstrap would schedule, without touching a gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfigManager(cfgPath()).Load()
			if err != nil {
				return err
			}
			trigs, loc, err := planTriggers(cfg, o)
			if err != nil {
				return err
			}
			if o.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(trigs)
			}
			renderPlan(cmd.OutOrStdout(), trigs, loc)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.days, "days", -1, "days ahead (default from reminders.days_ahead)")
	f.StringVar(&o.goal, "goal", "", "LOSE, GAIN or MAINTAIN (default from reminders.default_goal)")
	f.StringVar(&o.now, "now", "", "evaluate as of this RFC 3339 time")
	f.BoolVar(&o.jsonOut, "json", false, "print JSON")
	return cmd
}

func planTriggers(cfg *config.Config, o planOptions) ([]reminder.Trigger, *time.Location, error) {
	cat, err := config.ReminderCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	loc, err := config.Location(cfg)
	if err != nil {
		return nil, nil, err
	}
	opt := config.Bootstrap(cfg)
	if o.days >= 0 {
		opt.DaysAhead = o.days
	}
	goal := config.DefaultGoal(cfg)
	if strings.TrimSpace(o.goal) != "" {
		if goal, err = reminder.ParseGoal(o.goal); err != nil {
			return nil, nil, err
		}
	}
	now := time.Now()
	if strings.TrimSpace(o.now) != "" {
		if now, err = time.Parse(time.RFC3339, o.now); err != nil {
			return nil, nil, fmt.Errorf("--now: %w", err)
		}
	}
	now = now.In(loc)

	var slots []reminder.Slot
	for _, fam := range opt.Families() {
		s, err := cat.Slots(fam, goal)
		if err != nil {
			return nil, nil, err
		}
		slots = append(slots, s...)
	}
	return reminder.Plan(slots, reminder.DateOf(now), opt.DaysAhead, now, loc), loc, nil
}

func renderPlan(w io.Writer, trigs []reminder.Trigger, loc *time.Location) {
	if len(trigs) == 0 {
		fmt.Fprintln(w, styles.Muted.Render("nothing to schedule"))
		return
	}
	var day string
	for _, t := range trigs {
		at := t.FireAt.In(loc)
		if d := at.Format("Mon 02 Jan 2006"); d != day {
			day = d
			fmt.Fprintln(w, styles.Header.Render(day))
		}
		line := fmt.Sprintf("  %s  %s %s", at.Format("15:04"), styles.Kind.Render(string(t.Family)), t.ID)
		if t.RolledOver {
			line += " " + styles.Warn.Render("(rolled over from "+t.Date.String()+")")
		}
		fmt.Fprintln(w, line)
		fmt.Fprintln(w, styles.Muted.Render("         "+t.Notification.Title))
	}
}
