package selection

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"mealie-planner/internal/recipe"
)

// DefaultMinWeight is the weight of a recipe planned but never cooked.
const DefaultMinWeight = 0.1

// History holds per-recipe counts over the lookback window, keyed by recipe
// name.
type History struct {
	Planned map[string]int
	Made    map[string]int
}

// Neglect samples candidates with replacement, down-weighting recipes that were
// planned often but rarely made.
type Neglect struct {
	rng       *rand.Rand
	history   History
	minWeight float64
	logger    *zap.Logger
}

// NewNeglect builds the strategy. minWeight outside (0, 1] falls back to
// DefaultMinWeight.
func NewNeglect(rng *rand.Rand, history History, minWeight float64, logger *zap.Logger) *Neglect {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if minWeight <= 0 || minWeight > 1 {
		minWeight = DefaultMinWeight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Neglect{rng: rng, history: history, minWeight: minWeight, logger: logger}
}

func (s *Neglect) Name() string { return NameNeglect }

// Weight returns the sampling weight of r, in [minWeight, 1].
func (s *Neglect) Weight(r recipe.Recipe) float64 {
	planned := s.history.Planned[r.Name]
	if planned == 0 {
		return 1.0
	}
	made := s.history.Made[r.Name]
	neglected := planned - made
	if neglected <= 0 {
		return 1.0
	}

	fraction := float64(neglected) / float64(planned)
	weight := max(s.minWeight, 1.0-fraction*(1.0-s.minWeight))

	s.logger.Debug("neglect weight",
		zap.String("recipe", r.Name),
		zap.Int("planned", planned),
		zap.Int("made", made),
		zap.Float64("weight", weight),
	)
	return weight
}

// Select performs n independent weighted draws over the same weight vector.
func (s *Neglect) Select(candidates []recipe.Recipe, n int) []recipe.Recipe {
	if len(candidates) == 0 || n <= 0 {
		return nil
	}

	cumulative := make([]float64, len(candidates))
	total := 0.0
	for i, r := range candidates {
		total += s.Weight(r)
		cumulative[i] = total
	}

	out := make([]recipe.Recipe, 0, n)
	for range n {
		out = append(out, candidates[pick(cumulative, s.rng.Float64()*total)])
	}
	return out
}

// pick returns the first index whose cumulative weight exceeds x.
func pick(cumulative []float64, x float64) int {
	lo, hi := 0, len(cumulative)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cumulative[mid] > x {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
