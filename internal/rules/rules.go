// Package rules filters recipe candidates for a plan slot. A Constraint is
// either mandatory or preferential; the Engine applies the mandatory ones
// strictly and relaxes preferential ones in priority order when they would
// leave no candidates.
package rules

import (
	"fmt"
	"strings"
	"time"

	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/recipe"
)

// Filter is a pure predicate over candidates given the plan built so far.
// Implementations must return a new slice and never modify their inputs.
type Filter interface {
	Apply(plan mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe
	fmt.Stringer
}

// Constraint binds a Filter to its planning semantics.
type Constraint struct {
	Name      string
	Mandatory bool
	// Priority orders preferential constraints: lower values are more
	// important and are kept longest during relaxation.
	Priority int
	Filter   Filter
}

// Label returns the configured name, falling back to the filter description.
func (c Constraint) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Filter.String()
}

func keep(candidates []recipe.Recipe, pred func(recipe.Recipe) bool) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(candidates))
	for _, c := range candidates {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// ExcludeTag drops candidates carrying Tag.
type ExcludeTag struct {
	Tag string
}

func (f ExcludeTag) Apply(_ mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	return keep(candidates, func(r recipe.Recipe) bool { return !r.HasTag(f.Tag) })
}

func (f ExcludeTag) String() string { return fmt.Sprintf("exclude tag %q", f.Tag) }

// IncludeTag keeps only candidates carrying Tag.
type IncludeTag struct {
	Tag string
}

func (f IncludeTag) Apply(_ mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	return keep(candidates, func(r recipe.Recipe) bool { return r.HasTag(f.Tag) })
}

func (f IncludeTag) String() string { return fmt.Sprintf("include tag %q", f.Tag) }

// MaxTagPerWindow rejects candidates carrying Tag once the tag already appears
// MaxCount times among the last Window plan entries.
type MaxTagPerWindow struct {
	Tag      string
	MaxCount int
	Window   int
}

func (f MaxTagPerWindow) Apply(plan mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	count := 0
	for _, e := range plan.Last(f.Window) {
		for _, t := range e.Tags {
			if strings.EqualFold(t, f.Tag) {
				count++
				break
			}
		}
	}
	if count < f.MaxCount {
		return keep(candidates, func(recipe.Recipe) bool { return true })
	}
	return keep(candidates, func(r recipe.Recipe) bool { return !r.HasTag(f.Tag) })
}

func (f MaxTagPerWindow) String() string {
	return fmt.Sprintf("max %d %q per %d entries", f.MaxCount, f.Tag, f.Window)
}

// NoDuplicates rejects candidates already chosen in the last Window entries.
type NoDuplicates struct {
	Window int
}

func (f NoDuplicates) Apply(plan mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	recent := make(map[string]struct{})
	for _, e := range plan.Last(f.Window) {
		if e.HasRecipe() {
			recent[e.RecipeID] = struct{}{}
		}
	}
	return keep(candidates, func(r recipe.Recipe) bool {
		_, seen := recent[r.ID]
		return !seen
	})
}

func (f NoDuplicates) String() string {
	return fmt.Sprintf("no duplicates within %d entries", f.Window)
}

// ParseLastMade parses a last-made timestamp. Values without a zone are UTC.
func ParseLastMade(value string) (time.Time, bool) {
	return mealplan.ParseTimestamp(value)
}

// RecentlyMade rejects candidates cooked within the last Days days. Missing or
// unparseable timestamps never cause a rejection.
type RecentlyMade struct {
	Days int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (f RecentlyMade) Apply(_ mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	cutoff := now().AddDate(0, 0, -f.Days)
	return keep(candidates, func(r recipe.Recipe) bool {
		made, ok := ParseLastMade(r.LastMade)
		return !ok || made.Before(cutoff)
	})
}

func (f RecentlyMade) String() string { return fmt.Sprintf("not made within %d days", f.Days) }

// weekdaySlots is the number of leading slots treated as weekdays.
const weekdaySlots = 5

// WeekdayEffortCap rejects candidates whose effort exceeds MaxEffort while the
// plan has fewer than five entries.
type WeekdayEffortCap struct {
	MaxEffort float64
}

func (f WeekdayEffortCap) Apply(plan mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	if len(plan) >= weekdaySlots {
		return keep(candidates, func(recipe.Recipe) bool { return true })
	}
	return keep(candidates, func(r recipe.Recipe) bool { return r.Effort() <= f.MaxEffort })
}

func (f WeekdayEffortCap) String() string {
	return fmt.Sprintf("weekday effort at most %g", f.MaxEffort)
}
