// Package planner builds a meal plan slot by slot: the rule engine narrows the
// catalog, a selection strategy picks one recipe, and post-assignment rules
// rewrite the finished plan.
package planner

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/postselect"
	"mealie-planner/internal/recipe"
	"mealie-planner/internal/rules"
	"mealie-planner/internal/selection"
)

// ErrInvalidHorizon is returned for a horizon without days or meal types.
var ErrInvalidHorizon = errors.New("invalid planning horizon")

// DefaultMealTypes is used when a horizon names no meal types.
var DefaultMealTypes = []string{"breakfast", "lunch", "dinner"}

// Horizon is the set of slots to fill: Days consecutive dates from Start,
// crossed with MealTypes in order.
type Horizon struct {
	Start     time.Time
	Days      int
	MealTypes []string
}

func (h Horizon) mealTypes() []string {
	if h.MealTypes == nil {
		return DefaultMealTypes
	}
	return h.MealTypes
}

func (h Horizon) validate() error {
	if h.Days <= 0 {
		return fmt.Errorf("%w: days must be positive, got %d", ErrInvalidHorizon, h.Days)
	}
	if len(h.mealTypes()) == 0 {
		return fmt.Errorf("%w: no meal types", ErrInvalidHorizon)
	}
	return nil
}

// Observer is notified of every filled slot.
type Observer interface {
	ObserveSlot(entry mealplan.Entry, relaxed []string)
}

// Planner drives the rule engine and a selection strategy over a horizon.
type Planner struct {
	engine   *rules.Engine
	strategy selection.Strategy
	post     []postselect.Rule
	observer Observer
	logger   *zap.Logger
}

// New creates a Planner. Post rules run in the given order after generation.
func New(engine *rules.Engine, strategy selection.Strategy, logger *zap.Logger, post ...postselect.Rule) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		engine:   engine,
		strategy: strategy,
		post:     post,
		logger:   logger,
	}
}

// SetObserver registers o to receive each filled slot.
func (p *Planner) SetObserver(o Observer) {
	p.observer = o
}

// Generate fills every slot of the horizon from catalog. It stops at the first
// slot whose mandatory constraints cannot be met.
func (p *Planner) Generate(catalog []recipe.Recipe, horizon Horizon) (mealplan.Plan, error) {
	if err := horizon.validate(); err != nil {
		return nil, err
	}
	claimers := p.claimers()
	for _, c := range claimers {
		if err := c.Validate(horizon.Start, horizon.Days); err != nil {
			return nil, err
		}
	}
	if err := checkSingleClaims(claimers, horizon); err != nil {
		return nil, err
	}

	mealTypes := horizon.mealTypes()
	var plan mealplan.Plan
	for i := 0; i < horizon.Days; i++ {
		date := horizon.Start.AddDate(0, 0, i)

		if claimed(claimers, date) {
			plan = append(plan, mealplan.Entry{Date: date, MealType: mealTypes[0], State: mealplan.StateGenerated})
			p.logger.Info("day claimed by override", zap.String("date", date.Format(mealplan.DateLayout)))
			continue
		}

		for _, mealType := range mealTypes {
			entry, err := p.fill(plan, catalog, date, mealType)
			if err != nil {
				return nil, err
			}
			plan = append(plan, entry)
		}
	}

	for _, rule := range p.post {
		var err error
		plan, err = rule.Apply(plan)
		if err != nil {
			return nil, fmt.Errorf("post-assignment rule %q: %w", rule.Name(), err)
		}
		p.logger.Debug("post-assignment rule applied", zap.String("rule", rule.Name()), zap.Int("entries", len(plan)))
	}

	return plan, nil
}

func (p *Planner) fill(plan mealplan.Plan, catalog []recipe.Recipe, date time.Time, mealType string) (mealplan.Entry, error) {
	res, err := p.engine.Filter(plan, catalog, date, mealType)
	if err != nil {
		return mealplan.Entry{}, err
	}

	picked := p.strategy.Select(res.Candidates, 1)
	p.logger.Debug("strategy applied",
		zap.String("strategy", p.strategy.Name()),
		zap.Int("candidates", len(res.Candidates)),
		zap.Int("picked", len(picked)),
	)
	if len(picked) == 0 {
		return mealplan.Entry{}, fmt.Errorf("strategy %s picked nothing for %s %s",
			p.strategy.Name(), date.Format(mealplan.DateLayout), mealType)
	}
	r := picked[0]

	fields := []zap.Field{
		zap.String("date", date.Format(mealplan.DateLayout)),
		zap.String("meal_type", mealType),
		zap.String("recipe", r.Name),
		zap.Strings("tags", r.Tags),
		zap.Strings("tools", r.Tools),
	}
	if len(res.Relaxed) > 0 {
		fields = append(fields, zap.Strings("relaxed", res.Relaxed))
	}
	p.logger.Info("picked recipe", fields...)

	entry := mealplan.Entry{
		Date:       date,
		MealType:   mealType,
		RecipeID:   r.ID,
		RecipeName: r.Name,
		Tags:       r.Tags,
		Tools:      r.Tools,
		State:      mealplan.StateGenerated,
	}
	if p.observer != nil {
		p.observer.ObserveSlot(entry, res.Relaxed)
	}
	return entry, nil
}

func (p *Planner) claimers() []postselect.DayClaimer {
	var out []postselect.DayClaimer
	for _, rule := range p.post {
		if c, ok := rule.(postselect.DayClaimer); ok {
			out = append(out, c)
		}
	}
	return out
}

func claimed(claimers []postselect.DayClaimer, date time.Time) bool {
	for _, c := range claimers {
		if c.Claims(date) {
			return true
		}
	}
	return false
}

// checkSingleClaims fails when a date of the horizon is claimed twice, which
// would make the second override target an entry that is already a note.
func checkSingleClaims(claimers []postselect.DayClaimer, horizon Horizon) error {
	for i := 0; i < horizon.Days && i < 7; i++ {
		date := horizon.Start.AddDate(0, 0, i)
		n := 0
		for _, c := range claimers {
			if c.Claims(date) {
				n++
			}
		}
		if n > 1 {
			return fmt.Errorf("%w: %s (%s) claimed %d times",
				postselect.ErrDuplicateOverride, date.Format(mealplan.DateLayout), date.Weekday(), n)
		}
	}
	return nil
}
