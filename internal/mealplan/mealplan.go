// Package mealplan holds the plan entries produced by the planner and the
// calendar helpers shared by the planning stages.
package mealplan

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in logs.
const DateLayout = "2006-01-02"

// EntryState represents the lifecycle state of a plan entry.
type EntryState string

const (
	// StateGenerated marks an entry created by the planner, including the
	// placeholder emitted for a date claimed by a day override.
	StateGenerated EntryState = "GENERATED"
	// StateOverridden marks an entry rewritten by a post-assignment rule.
	StateOverridden EntryState = "OVERRIDDEN"
)

// Entry is one decided slot of the plan.
type Entry struct {
	Date       time.Time  `json:"date"`
	MealType   string     `json:"entry_type"`
	RecipeID   string     `json:"recipe_id,omitempty"`
	RecipeName string     `json:"recipe_name,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Tools      []string   `json:"tools,omitempty"`
	Title      string     `json:"title,omitempty"`
	Text       string     `json:"text,omitempty"`
	State      EntryState `json:"state"`
}

// HasRecipe reports whether the entry points at a recipe.
func (e Entry) HasRecipe() bool {
	return e.RecipeID != ""
}

// DateString returns the entry date formatted with DateLayout.
func (e Entry) DateString() string {
	return e.Date.Format(DateLayout)
}

// Override turns the entry into a free-text note. An entry can only be
// overridden once.
func (e *Entry) Override(title, text string) error {
	if e.State == StateOverridden {
		return fmt.Errorf("entry %s %s is already overridden", e.DateString(), e.MealType)
	}
	e.RecipeID = ""
	e.RecipeName = ""
	e.Tags = nil
	e.Tools = nil
	e.Title = title
	e.Text = text
	e.State = StateOverridden
	return nil
}

// Plan is the ordered sequence of entries, in generation order.
type Plan []Entry

// Last returns the trailing window of at most n entries.
func (p Plan) Last(n int) Plan {
	if n <= 0 {
		return nil
	}
	if n >= len(p) {
		return p
	}
	return p[len(p)-n:]
}

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// TimestampLayouts lists the timestamp shapes Mealie emits.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp parses value in any of TimestampLayouts. Mealie stores times
// in UTC, so values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range TimestampLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseWeekday converts a day name (case-insensitive) into a time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("invalid day name: %q", name)
	}
	return day, nil
}

// NextMonday returns t's date if it is a Monday, otherwise the following Monday.
func NextMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}
