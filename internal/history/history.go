// Package history turns Mealie meal-plan and timeline records into the
// planned and made counts used by neglect selection.
package history

import (
	"time"

	"mealie-planner/internal/mealie"
	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/recipe"
	"mealie-planner/internal/selection"
)

// Build counts, per recipe name, how often each recipe was planned and made at
// or after since. Records for recipes missing from the catalog are named from
// the record itself when possible and dropped otherwise.
func Build(catalog []recipe.Recipe, plans []mealie.PlanItem, events []mealie.TimelineEvent, since time.Time) selection.History {
	byID := make(map[string]string, len(catalog))
	for _, r := range catalog {
		byID[r.ID] = r.Name
	}

	h := selection.History{Planned: map[string]int{}, Made: map[string]int{}}
	cutoff := since.Format(mealplan.DateLayout)

	for _, p := range plans {
		if p.RecipeID == "" || p.Date < cutoff {
			continue
		}
		name := byID[p.RecipeID]
		if name == "" {
			name = p.RecipeName()
		}
		if name != "" {
			h.Planned[name]++
		}
	}

	for _, e := range events {
		if !e.IsMade() || e.Timestamp.Before(since) {
			continue
		}
		if name := byID[e.RecipeID]; name != "" {
			h.Made[name]++
		}
	}
	return h
}
