package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"mealie-planner/internal/mealplan"
)

const pushJob = "mealie_planner"

// RunMetrics counts what a single planning or tagging run did. Runs are short
// lived, so the values are pushed to a Pushgateway instead of being scraped.
type RunMetrics struct {
	registry *prometheus.Registry

	slotsPlanned      *prometheus.CounterVec
	entriesOverridden prometheus.Counter
	relaxations       *prometheus.CounterVec
	entriesPushed     prometheus.Counter
	recipesTagged     prometheus.Counter
	lastSuccess       prometheus.Gauge
}

// NewRunMetrics registers the run collectors on a private registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		slotsPlanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealplanner_slots_planned_total",
			Help: "Plan slots filled with a recipe, by meal type.",
		}, []string{"meal_type"}),
		entriesOverridden: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mealplanner_entries_overridden_total",
			Help: "Plan entries replaced by a note.",
		}),
		relaxations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealplanner_constraint_relaxations_total",
			Help: "Preferential constraints dropped to fill a slot.",
		}, []string{"constraint"}),
		entriesPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mealplanner_entries_pushed_total",
			Help: "Plan entries created in Mealie.",
		}),
		recipesTagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mealplanner_recipes_tagged_total",
			Help: "Recipes tagged from a classification.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mealplanner_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(m.slotsPlanned, m.entriesOverridden, m.relaxations, m.entriesPushed, m.recipesTagged, m.lastSuccess)
	return m
}

// ObserveSlot counts a filled slot and the constraints relaxed for it.
func (m *RunMetrics) ObserveSlot(entry mealplan.Entry, relaxed []string) {
	m.slotsPlanned.WithLabelValues(entry.MealType).Inc()
	for _, name := range relaxed {
		m.relaxations.WithLabelValues(name).Inc()
	}
}

// ObservePlan counts the overridden entries of a finished plan.
func (m *RunMetrics) ObservePlan(plan mealplan.Plan) {
	for _, e := range plan {
		if e.State == mealplan.StateOverridden {
			m.entriesOverridden.Inc()
		}
	}
}

// EntryPushed counts an entry created in Mealie.
func (m *RunMetrics) EntryPushed() { m.entriesPushed.Inc() }

// RecipesTagged counts tagged recipes.
func (m *RunMetrics) RecipesTagged(n int) { m.recipesTagged.Add(float64(n)) }

// MarkSuccess records the completion time of the run.
func (m *RunMetrics) MarkSuccess() { m.lastSuccess.SetToCurrentTime() }

// Registry exposes the collectors, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry { return m.registry }

// Push sends the collected values to the Pushgateway at url, grouped by
// command. An empty url disables pushing.
func (m *RunMetrics) Push(url, command string) error {
	if url == "" {
		return nil
	}
	err := push.New(url, pushJob).
		Gatherer(m.registry).
		Grouping("command", command).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
