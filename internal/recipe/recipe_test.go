package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffort(t *testing.T) {
	tests := []struct {
		name     string
		recipe   Recipe
		expected float64
	}{
		{"PrepOnly", Recipe{PrepMinutes: 10}, 1},
		{"CookOnly", Recipe{CookMinutes: 60}, 1},
		{"Mixed", Recipe{PrepMinutes: 20, CookMinutes: 30, StepCount: 2}, 2 + 0.5 + 2},
		{"SlowCookerFloorsAtZero", Recipe{CookMinutes: 120, Tools: []string{"slow_cooker"}}, 0},
		{"InstantPot", Recipe{PrepMinutes: 15, CookMinutes: 30, StepCount: 1, Tools: []string{"instant_pot"}}, 1.5 + 0.5 + 1 - 1},
		{"BothTools", Recipe{PrepMinutes: 30, CookMinutes: 240, StepCount: 4, Tools: []string{"Slow Cooker", "Instant-Pot"}}, 3 + 4 + 4 - 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.recipe.Effort(), 1e-9)
		})
	}
}

func TestHasTag(t *testing.T) {
	r := Recipe{Tags: []string{"Vegetarian", "dinner"}}

	assert.True(t, r.HasTag("vegetarian"))
	assert.True(t, r.HasTag("DINNER"))
	assert.False(t, r.HasTag("meat"))
	assert.False(t, Recipe{}.HasTag("dinner"))
}

func TestHasTool(t *testing.T) {
	r := Recipe{Tools: []string{"Slow Cooker"}}

	assert.True(t, r.HasTool(ToolSlowCooker))
	assert.False(t, r.HasTool(ToolInstantPot))
}
