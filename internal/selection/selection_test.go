package selection

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealie-planner/internal/recipe"
)

func fakeCatalog(seed int64, n int) []recipe.Recipe {
	faker := gofakeit.New(seed)
	out := make([]recipe.Recipe, n)
	for i := range out {
		out[i] = recipe.Recipe{
			ID:   faker.UUID(),
			Name: faker.Dinner() + " " + faker.LetterN(4),
		}
	}
	return out
}

func TestRandomSelect(t *testing.T) {
	catalog := fakeCatalog(1, 10)
	strategy := NewRandom(NewSeededRand(42))

	t.Run("Distinct", func(t *testing.T) {
		picked := strategy.Select(catalog, 5)
		require.Len(t, picked, 5)

		seen := map[string]bool{}
		for _, r := range picked {
			assert.False(t, seen[r.ID], "duplicate pick %s", r.Name)
			seen[r.ID] = true
			assert.Contains(t, catalog, r)
		}
	})

	t.Run("MoreThanPool", func(t *testing.T) {
		picked := strategy.Select(catalog[:3], 10)
		assert.ElementsMatch(t, catalog[:3], picked)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, strategy.Select(nil, 1))
	})

	t.Run("DoesNotReorderInput", func(t *testing.T) {
		input := append([]recipe.Recipe(nil), catalog...)
		strategy.Select(input, len(input))
		assert.Equal(t, catalog, input)
	})
}

func TestRandomSelectIsReproducible(t *testing.T) {
	catalog := fakeCatalog(7, 20)

	a := NewRandom(NewSeededRand(99)).Select(catalog, 4)
	b := NewRandom(NewSeededRand(99)).Select(catalog, 4)

	assert.Equal(t, a, b)
}

func TestNeglectWeight(t *testing.T) {
	history := History{
		Planned: map[string]int{"Lasagne": 3, "Tacos": 5, "Curry": 4, "Soup": 2},
		Made:    map[string]int{"Tacos": 5, "Curry": 2, "Soup": 3},
	}
	strategy := NewNeglect(NewSeededRand(1), history, 0.1, zap.NewNop())

	tests := []struct {
		name   string
		recipe string
		want   float64
	}{
		{"NeverMade", "Lasagne", 0.1},
		{"AlwaysMade", "Tacos", 1.0},
		{"NeverPlanned", "Pizza", 1.0},
		{"HalfMade", "Curry", 0.55},
		{"MadeMoreThanPlanned", "Soup", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, strategy.Weight(recipe.Recipe{Name: tt.recipe}), 1e-9)
		})
	}
}

func TestNeglectMinWeightDefault(t *testing.T) {
	history := History{Planned: map[string]int{"Lasagne": 2}}
	strategy := NewNeglect(nil, history, 0, nil)

	assert.InDelta(t, DefaultMinWeight, strategy.Weight(recipe.Recipe{Name: "Lasagne"}), 1e-9)
}

func TestNeglectSelect(t *testing.T) {
	catalog := []recipe.Recipe{{ID: "1", Name: "Lasagne"}, {ID: "2", Name: "Tacos"}}
	history := History{Planned: map[string]int{"Lasagne": 10}}
	strategy := NewNeglect(NewSeededRand(3), history, 0.01, zap.NewNop())

	t.Run("WithReplacement", func(t *testing.T) {
		picked := strategy.Select(catalog[:1], 3)
		require.Len(t, picked, 3)
		for _, r := range picked {
			assert.Equal(t, "Lasagne", r.Name)
		}
	})

	t.Run("FavoursCookedRecipes", func(t *testing.T) {
		counts := map[string]int{}
		for _, r := range strategy.Select(catalog, 2000) {
			counts[r.Name]++
		}
		assert.Greater(t, counts["Tacos"], counts["Lasagne"]*10)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, strategy.Select(nil, 2))
	})
}

func TestPick(t *testing.T) {
	cumulative := []float64{1, 1, 3, 6}

	assert.Equal(t, 0, pick(cumulative, 0))
	assert.Equal(t, 0, pick(cumulative, 0.99))
	assert.Equal(t, 2, pick(cumulative, 1))
	assert.Equal(t, 3, pick(cumulative, 5.5))
}
