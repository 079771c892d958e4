package recipe

import (
	"strings"
)

// Tool names that reduce the effort score.
const (
	ToolSlowCooker = "slow_cooker"
	ToolInstantPot = "instant_pot"
)

// Recipe is a read-only view of a catalog recipe.
type Recipe struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Tags        []string `json:"tags"`
	Tools       []string `json:"tools"`
	PrepMinutes float64  `json:"prep_minutes"`
	CookMinutes float64  `json:"cook_minutes"`
	StepCount   int      `json:"step_count"`
	// LastMade is kept as the raw text received from the catalog so that
	// unparseable values can be told apart from missing ones.
	LastMade string `json:"last_made,omitempty"`
}

// HasTag reports whether the recipe carries the tag, ignoring case.
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HasTool reports whether the recipe uses the tool. Names are compared after
// normalizing case and separators, so "Slow Cooker" matches "slow_cooker".
func (r Recipe) HasTool(tool string) bool {
	want := normalizeToolName(tool)
	for _, t := range r.Tools {
		if normalizeToolName(t) == want {
			return true
		}
	}
	return false
}

// Effort scores how demanding a recipe is to cook: prep time in ten-minute
// units, cook time in hours and one point per step. Slow cookers and instant
// pots lower the score. The result is never negative.
func (r Recipe) Effort() float64 {
	score := r.PrepMinutes/10 + r.CookMinutes/60 + float64(r.StepCount)
	if r.HasTool(ToolSlowCooker) {
		score -= 2
	}
	if r.HasTool(ToolInstantPot) {
		score -= 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func normalizeToolName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}
