// Package postselect rewrites entries of a fully generated plan.
package postselect

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"mealie-planner/internal/mealplan"
)

var (
	// ErrInvalidDay is returned for a day name that is not a weekday.
	ErrInvalidDay = errors.New("invalid day name")
	// ErrOverrideTarget is returned when an override names a day that the
	// horizon does not contain, or that the plan has no entry for.
	ErrOverrideTarget = errors.New("override target not in plan horizon")
	// ErrDuplicateOverride is returned when two overrides claim the same date.
	ErrDuplicateOverride = errors.New("date claimed by more than one override")
	// ErrEmptyReason is returned for an override without a note title.
	ErrEmptyReason = errors.New("override reason must not be empty")
)

// Rule transforms a completed plan.
type Rule interface {
	Name() string
	Apply(plan mealplan.Plan) (mealplan.Plan, error)
}

// DayClaimer is implemented by rules that take a whole day away from
// generation. The planner skips claimed dates and emits a single placeholder
// for the rule to rewrite.
type DayClaimer interface {
	Claims(date time.Time) bool
	Validate(start time.Time, days int) error
}

// PassThrough returns the plan unchanged.
type PassThrough struct{}

func (PassThrough) Name() string { return "pass-through" }

func (PassThrough) Apply(plan mealplan.Plan) (mealplan.Plan, error) { return plan, nil }

// DayOverride turns the entry of a weekday into a note titled Reason.
type DayOverride struct {
	Weekday time.Weekday
	Reason  string
}

// NewDayOverride parses dayName case-insensitively. reason becomes the note
// title and must not be blank.
func NewDayOverride(dayName, reason string) (*DayOverride, error) {
	day, err := mealplan.ParseWeekday(dayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, dayName)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyReason, day)
	}
	return &DayOverride{Weekday: day, Reason: reason}, nil
}

func (r *DayOverride) Name() string {
	return fmt.Sprintf("override %s: %s", r.Weekday, r.Reason)
}

// Claims reports whether date falls on the overridden weekday.
func (r *DayOverride) Claims(date time.Time) bool {
	return date.Weekday() == r.Weekday
}

// Validate checks that the horizon contains the overridden weekday.
func (r *DayOverride) Validate(start time.Time, days int) error {
	for i := 0; i < days && i < 7; i++ {
		if r.Claims(start.AddDate(0, 0, i)) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not within %d days from %s",
		ErrOverrideTarget, r.Weekday, days, start.Format(mealplan.DateLayout))
}

// Apply rewrites every entry dated on the overridden weekday in place. Other
// entries are left untouched.
func (r *DayOverride) Apply(plan mealplan.Plan) (mealplan.Plan, error) {
	found := false
	for i := range plan {
		if !r.Claims(plan[i].Date) {
			continue
		}
		if err := plan[i].Override(r.Reason, ""); err != nil {
			return nil, fmt.Errorf("override %s: %w", r.Weekday, err)
		}
		found = true
	}
	if !found {
		return nil, fmt.Errorf("%w: no entry on %s", ErrOverrideTarget, r.Weekday)
	}
	return plan, nil
}
