package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/rules"
	"mealie-planner/internal/selection"
)

// Profile describes what to plan: the horizon, the strategy, the constraints
// and the day overrides.
type Profile struct {
	// Start is an optional YYYY-MM-DD date; empty means the next Monday.
	Start       string          `mapstructure:"start"`
	Days        int             `mapstructure:"days"`
	MealTypes   []string        `mapstructure:"meal_types"`
	Strategy    StrategyProfile `mapstructure:"strategy"`
	Constraints []rules.Spec    `mapstructure:"constraints"`
	Overrides   []Override      `mapstructure:"overrides"`
}

// StrategyProfile configures recipe selection.
type StrategyProfile struct {
	Name          string  `mapstructure:"name"`
	MinWeight     float64 `mapstructure:"min_weight"`
	LookbackWeeks int     `mapstructure:"lookback_weeks"`
}

// Override names a weekday to replace with a note.
type Override struct {
	Day    string `mapstructure:"day"`
	Reason string `mapstructure:"reason"`
}

// LoadProfile reads the planning profile at path. An empty path yields the
// defaults. Values can be overridden with MEALPLAN_ environment variables,
// e.g. MEALPLAN_DAYS or MEALPLAN_STRATEGY_NAME.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	setProfileDefaults(v)

	v.SetEnvPrefix("MEALPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

func setProfileDefaults(v *viper.Viper) {
	v.SetDefault("start", "")
	v.SetDefault("days", 7)
	v.SetDefault("meal_types", []string{"dinner"})

	v.SetDefault("strategy.name", selection.NameNeglect)
	v.SetDefault("strategy.min_weight", selection.DefaultMinWeight)
	v.SetDefault("strategy.lookback_weeks", 8)

	v.SetDefault("constraints", []map[string]any{
		{"type": rules.TypeExcludeTag, "name": "No Nuts", "mandatory": true, "tag": "allergen-nuts"},
		{"type": rules.TypeIncludeTag, "name": "Only Pick Dinners", "mandatory": true, "priority": 2, "tag": "dinner"},
		{"type": rules.TypeWeekdayEasy, "name": "Weekday Easy", "priority": 5, "max_effort": 5},
		{"type": rules.TypeRecentlyMade, "name": "Recently Made", "priority": 1, "days": 14},
		{"type": rules.TypeNoDuplicates, "name": "No Duplicates (7d)", "priority": 1, "window": 7},
		{"type": rules.TypeMaxTag, "name": "Max 2 Chicken/Week", "priority": 3, "tag": "chicken", "max_count": 2, "window": 7},
		{"type": rules.TypeMaxTag, "name": "Max 1 Indian/Week", "priority": 3, "tag": "indian", "max_count": 1, "window": 7},
	})
	v.SetDefault("overrides", []map[string]any{
		{"day": "Wednesday", "reason": "Eating at Perez's"},
	})
}

// Validate checks the profile without building anything.
func (p *Profile) Validate() error {
	if p.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", p.Days)
	}
	if len(p.MealTypes) == 0 {
		return fmt.Errorf("at least one meal type is required")
	}
	if p.Start != "" {
		if _, err := time.Parse(mealplan.DateLayout, p.Start); err != nil {
			return fmt.Errorf("start must be YYYY-MM-DD: %w", err)
		}
	}
	switch p.Strategy.Name {
	case selection.NameRandom, selection.NameNeglect:
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy.Name)
	}
	if _, err := rules.BuildAll(p.Constraints, nil); err != nil {
		return err
	}
	seen := map[time.Weekday]bool{}
	for _, o := range p.Overrides {
		day, err := mealplan.ParseWeekday(o.Day)
		if err != nil {
			return fmt.Errorf("override: %w", err)
		}
		if seen[day] {
			return fmt.Errorf("override: %s listed more than once", day)
		}
		seen[day] = true
		if strings.TrimSpace(o.Reason) == "" {
			return fmt.Errorf("override: %s needs a reason", day)
		}
	}
	return nil
}

// StartDate resolves the first day of the horizon relative to now.
func (p *Profile) StartDate(now time.Time) time.Time {
	if p.Start != "" {
		if t, err := time.ParseInLocation(mealplan.DateLayout, p.Start, now.Location()); err == nil {
			return t
		}
	}
	return mealplan.NextMonday(now)
}

// Lookback returns the history window for neglect selection.
func (s StrategyProfile) Lookback() time.Duration {
	weeks := s.LookbackWeeks
	if weeks <= 0 {
		weeks = 8
	}
	return time.Duration(weeks) * 7 * 24 * time.Hour
}
