// Package app wires the planner, the Mealie client and the local stores into
// the workflows exposed by the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mealie-planner/internal/config"
	"mealie-planner/internal/database"
	"mealie-planner/internal/history"
	"mealie-planner/internal/llm"
	"mealie-planner/internal/mealie"
	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/metrics"
	"mealie-planner/internal/planner"
	"mealie-planner/internal/postselect"
	"mealie-planner/internal/recipe"
	"mealie-planner/internal/rules"
	"mealie-planner/internal/selection"
	"mealie-planner/internal/storage"
)

// Notifier delivers plans and usage reports to a chat.
type Notifier interface {
	SendPlan(plan mealplan.Plan, relaxed map[string]int, dryRun bool) error
	SendUsage(usage []metrics.DailyUsage) error
}

// App holds the application's dependencies.
type App struct {
	cfg      *config.Config
	profile  *config.Profile
	mealie   mealie.Client
	textGen  llm.TextGenerator
	db       *database.DB
	plans    *planner.PlanRepository
	usage    *metrics.Store
	catalog  *storage.CatalogStore
	notifier Notifier
	logger   *zap.Logger

	out io.Writer
	now func() time.Time
}

// NewApp creates and initializes a new App instance. textGen and notifier may
// be nil; workflows that need them fail or skip accordingly.
func NewApp(
	cfg *config.Config,
	profile *config.Profile,
	mealieClient mealie.Client,
	textGen llm.TextGenerator,
	db *database.DB,
	catalog *storage.CatalogStore,
	notifier Notifier,
	logger *zap.Logger,
) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:      cfg,
		profile:  profile,
		mealie:   mealieClient,
		textGen:  textGen,
		db:       db,
		plans:    planner.NewPlanRepository(db.SQL),
		usage:    metrics.NewStore(db.SQL),
		catalog:  catalog,
		notifier: notifier,
		logger:   logger,
		out:      os.Stdout,
		now:      time.Now,
	}
}

// SetOutput redirects the printed reports.
func (a *App) SetOutput(w io.Writer) { a.out = w }

// SetClock replaces time.Now, for reproducible horizons.
func (a *App) SetClock(now func() time.Time) { a.now = now }

// PlanOptions are the per-run switches of the plan command.
type PlanOptions struct {
	DryRun  bool
	Offline bool
	// Days and Start override the profile when set.
	Days  int
	Start string
	// Seed fixes the selection randomness; zero picks a random seed.
	Seed uint64
}

// PlanResult describes a finished planning run.
type PlanResult struct {
	RunID   string
	Plan    mealplan.Plan
	Relaxed map[string]int
	Pushed  int
}

// slotTally counts relaxed constraints and forwards slots to the run metrics.
type slotTally struct {
	metrics *metrics.RunMetrics
	relaxed map[string]int
}

func (t *slotTally) ObserveSlot(entry mealplan.Entry, relaxed []string) {
	t.metrics.ObserveSlot(entry, relaxed)
	for _, name := range relaxed {
		t.relaxed[name]++
	}
}

// PlanMeals runs the whole pipeline: fetch, plan, persist, push and notify.
func (a *App) PlanMeals(ctx context.Context, opts PlanOptions) (*PlanResult, error) {
	now := a.now()
	dryRun := opts.DryRun || a.cfg.DryRun

	horizon, err := a.horizon(now, opts)
	if err != nil {
		return nil, err
	}
	since := now.Add(-a.profile.Strategy.Lookback())

	catalog, hist, err := a.loadInputs(ctx, now, since, opts.Offline)
	if err != nil {
		return nil, err
	}
	a.logger.Info("catalog loaded", zap.Int("recipes", len(catalog)), zap.Bool("offline", opts.Offline))

	constraints, err := rules.BuildAll(a.profile.Constraints, a.now)
	if err != nil {
		return nil, fmt.Errorf("failed to build constraints: %w", err)
	}
	engine := rules.NewEngine(a.logger, constraints...)

	strategy := a.strategy(opts.Seed, hist)

	post, err := a.postRules()
	if err != nil {
		return nil, err
	}

	runMetrics := metrics.NewRunMetrics()
	tally := &slotTally{metrics: runMetrics, relaxed: map[string]int{}}
	p := planner.New(engine, strategy, a.logger, post...)
	p.SetObserver(tally)

	plan, err := p.Generate(catalog, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}
	runMetrics.ObservePlan(plan)

	run, err := a.plans.SaveRun(ctx, horizon, strategy.Name(), dryRun, plan)
	if err != nil {
		return nil, err
	}
	result := &PlanResult{RunID: run.ID, Plan: plan, Relaxed: tally.relaxed}

	switch {
	case dryRun:
		a.logger.Info("dry run, not pushing plan to mealie")
	case opts.Offline:
		a.logger.Warn("offline run, not pushing plan to mealie")
	default:
		if result.Pushed, err = a.pushPlan(ctx, plan, runMetrics); err != nil {
			return result, err
		}
	}

	a.printPlan(result, dryRun)

	if a.notifier != nil {
		if err := a.notifier.SendPlan(plan, tally.relaxed, dryRun); err != nil {
			a.logger.Warn("failed to send plan notification", zap.Error(err))
		}
	}

	runMetrics.MarkSuccess()
	if err := runMetrics.Push(a.cfg.PushgatewayURL, "plan"); err != nil {
		a.logger.Warn("failed to push run metrics", zap.Error(err))
	}
	return result, nil
}

func (a *App) horizon(now time.Time, opts PlanOptions) (planner.Horizon, error) {
	start := a.profile.StartDate(now)
	if opts.Start != "" {
		t, err := time.ParseInLocation(mealplan.DateLayout, opts.Start, now.Location())
		if err != nil {
			return planner.Horizon{}, fmt.Errorf("start must be YYYY-MM-DD: %w", err)
		}
		start = t
	}
	days := a.profile.Days
	if opts.Days > 0 {
		days = opts.Days
	}
	return planner.Horizon{Start: start, Days: days, MealTypes: a.profile.MealTypes}, nil
}

// loadInputs returns the catalog and the selection history. Offline runs read
// the last snapshot and plan without history.
func (a *App) loadInputs(ctx context.Context, now, since time.Time, offline bool) ([]recipe.Recipe, selection.History, error) {
	if offline {
		snap, err := a.catalog.Load()
		if err != nil {
			return nil, selection.History{}, err
		}
		a.logger.Info("using catalog snapshot", zap.Time("fetched_at", snap.FetchedAt), zap.String("path", a.catalog.Path()))
		return snap.Recipes, selection.History{}, nil
	}

	if err := mealie.CheckToken(a.cfg.MealieToken, now); err != nil {
		return nil, selection.History{}, err
	}

	var (
		catalog []recipe.Recipe
		plans   []mealie.PlanItem
		events  []mealie.TimelineEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		catalog, err = a.mealie.FetchRecipes(gctx)
		return err
	})
	if a.profile.Strategy.Name == selection.NameNeglect {
		g.Go(func() error {
			var err error
			plans, err = a.mealie.FetchMealPlans(gctx, since, now)
			return err
		})
		g.Go(func() error {
			var err error
			events, err = a.mealie.FetchTimelineEvents(gctx, since)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, selection.History{}, fmt.Errorf("failed to fetch planning inputs: %w", err)
	}

	if err := a.catalog.Save(catalog, now); err != nil {
		a.logger.Warn("failed to save catalog snapshot", zap.Error(err))
	}
	return catalog, history.Build(catalog, plans, events, since), nil
}

func (a *App) strategy(seed uint64, hist selection.History) selection.Strategy {
	if seed == 0 {
		seed = rand.Uint64()
	}
	a.logger.Debug("selection seed", zap.Uint64("seed", seed))
	rng := selection.NewSeededRand(seed)

	if a.profile.Strategy.Name == selection.NameRandom {
		return selection.NewRandom(rng)
	}
	return selection.NewNeglect(rng, hist, a.profile.Strategy.MinWeight, a.logger)
}

func (a *App) postRules() ([]postselect.Rule, error) {
	if len(a.profile.Overrides) == 0 {
		return []postselect.Rule{postselect.PassThrough{}}, nil
	}
	var post []postselect.Rule
	for _, o := range a.profile.Overrides {
		rule, err := postselect.NewDayOverride(o.Day, o.Reason)
		if err != nil {
			return nil, err
		}
		post = append(post, rule)
	}
	return post, nil
}

func (a *App) pushPlan(ctx context.Context, plan mealplan.Plan, runMetrics *metrics.RunMetrics) (int, error) {
	pushed := 0
	for _, e := range plan {
		if !e.HasRecipe() && e.State != mealplan.StateOverridden {
			continue
		}
		if err := a.mealie.CreateMealPlanEntry(ctx, e); err != nil {
			return pushed, err
		}
		runMetrics.EntryPushed()
		pushed++
	}
	a.logger.Info("plan pushed to mealie", zap.Int("entries", pushed))
	return pushed, nil
}

func (a *App) printPlan(result *PlanResult, dryRun bool) {
	header := "=== MEAL PLAN ==="
	if dryRun {
		header = "=== MEAL PLAN (dry run) ==="
	}
	fmt.Fprintln(a.out, header)
	for _, e := range result.Plan {
		label := e.RecipeName
		if !e.HasRecipe() {
			label = "[" + e.Title + "]"
		}
		fmt.Fprintf(a.out, "%s %-9s %-9s %s\n", e.DateString(), e.Date.Weekday(), e.MealType, label)
	}
	for _, name := range slices.Sorted(maps.Keys(result.Relaxed)) {
		n := result.Relaxed[name]
		fmt.Fprintf(a.out, "relaxed %q %d time(s)\n", name, n)
	}
	fmt.Fprintf(a.out, "run %s\n", result.RunID)
}
