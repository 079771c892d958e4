package rules

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/recipe"
)

// ErrUnsatisfiable is returned when the mandatory constraints leave no
// candidate for a slot.
var ErrUnsatisfiable = errors.New("no candidates left after applying mandatory constraints")

// UnsatisfiableError identifies the slot whose mandatory constraints could not
// be met.
type UnsatisfiableError struct {
	Date     time.Time
	MealType string
}

func (e *UnsatisfiableError) Error() string {
	return fmt.Sprintf("%v (%s %s)", ErrUnsatisfiable, e.Date.Format(mealplan.DateLayout), e.MealType)
}

func (e *UnsatisfiableError) Unwrap() error { return ErrUnsatisfiable }

// Result is the outcome of filtering one slot.
type Result struct {
	Candidates []recipe.Recipe
	// Relaxed names the preferential constraints skipped to reach a
	// non-empty candidate set, most important first.
	Relaxed []string
}

// Engine applies an ordered list of constraints with relaxation backoff.
type Engine struct {
	mandatory    []Constraint
	preferential []Constraint
	logger       *zap.Logger
}

// NewEngine splits the constraints into mandatory ones, kept in registration
// order, and preferential ones, sorted by ascending priority.
func NewEngine(logger *zap.Logger, constraints ...Constraint) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{logger: logger}
	for _, c := range constraints {
		if c.Mandatory {
			e.mandatory = append(e.mandatory, c)
		} else {
			e.preferential = append(e.preferential, c)
		}
	}
	sort.SliceStable(e.preferential, func(i, j int) bool {
		return e.preferential[i].Priority < e.preferential[j].Priority
	})
	return e
}

// Filter narrows candidates for the slot (date, mealType).
//
// Every mandatory constraint is applied first; an empty result is fatal. The
// preferential constraints are then applied to that set with an increasing
// drop count: at level k the first k constraints in priority order are
// skipped. Each level restarts from the mandatory-filtered set. The first
// level that leaves candidates wins.
func (e *Engine) Filter(plan mealplan.Plan, candidates []recipe.Recipe, date time.Time, mealType string) (Result, error) {
	filtered := candidates
	for _, c := range e.mandatory {
		filtered = e.apply(c, plan, filtered)
	}
	if len(filtered) == 0 {
		return Result{}, &UnsatisfiableError{Date: date, MealType: mealType}
	}

	for drop := 0; drop <= len(e.preferential); drop++ {
		survivors := filtered
		for _, c := range e.preferential[drop:] {
			survivors = e.apply(c, plan, survivors)
			if len(survivors) == 0 {
				break
			}
		}
		if len(survivors) > 0 {
			return Result{Candidates: survivors, Relaxed: labels(e.preferential[:drop])}, nil
		}
	}

	// Unreachable while the mandatory set is non-empty: the last level
	// applies no preferential constraint at all.
	return Result{Candidates: filtered, Relaxed: labels(e.preferential)}, nil
}

// Constraints returns the mandatory constraints followed by the preferential
// ones in relaxation order.
func (e *Engine) Constraints() []Constraint {
	out := make([]Constraint, 0, len(e.mandatory)+len(e.preferential))
	out = append(out, e.mandatory...)
	return append(out, e.preferential...)
}

func (e *Engine) apply(c Constraint, plan mealplan.Plan, candidates []recipe.Recipe) []recipe.Recipe {
	out := c.Filter.Apply(plan, candidates)
	e.logger.Debug("constraint applied",
		zap.String("constraint", c.Label()),
		zap.Bool("mandatory", c.Mandatory),
		zap.Int("before", len(candidates)),
		zap.Int("after", len(out)),
	)
	return out
}

func labels(constraints []Constraint) []string {
	if len(constraints) == 0 {
		return nil
	}
	names := make([]string, len(constraints))
	for i, c := range constraints {
		names[i] = c.Label()
	}
	return names
}
