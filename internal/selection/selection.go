// Package selection picks recipes from the candidates left by the rule engine.
package selection

import (
	"math/rand/v2"

	"mealie-planner/internal/recipe"
)

// Names of the built-in strategies, as used in planning profiles.
const (
	NameRandom  = "random"
	NameNeglect = "neglect"
)

// Strategy chooses n recipes from a candidate set. An empty candidate set
// yields an empty result, never an error.
type Strategy interface {
	Select(candidates []recipe.Recipe, n int) []recipe.Recipe
	Name() string
}

// Random samples candidates uniformly without replacement.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a uniform strategy drawing from rng. A nil rng uses an
// unseeded source.
func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Random{rng: rng}
}

func (s *Random) Name() string { return NameRandom }

// Select returns n distinct candidates. When n exceeds the pool, the whole
// pool is returned in random order.
func (s *Random) Select(candidates []recipe.Recipe, n int) []recipe.Recipe {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	pool := append([]recipe.Recipe(nil), candidates...)
	// Partial Fisher-Yates: the first n slots end up holding the sample.
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}

// NewSeededRand returns a deterministic source for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
