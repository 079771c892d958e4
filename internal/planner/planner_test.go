package planner

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealie-planner/internal/database"
	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/postselect"
	"mealie-planner/internal/recipe"
	"mealie-planner/internal/rules"
	"mealie-planner/internal/selection"
)

// monday is 2026-10-19.
var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

// fakeCatalog builds n recipes; every third one is tagged "nuts".
func fakeCatalog(seed int64, n int) []recipe.Recipe {
	faker := gofakeit.New(seed)
	out := make([]recipe.Recipe, n)
	for i := range out {
		tags := []string{"dinner"}
		if i%3 == 0 {
			tags = append(tags, "nuts")
		}
		out[i] = recipe.Recipe{
			ID:          fmt.Sprintf("r%d", i),
			Name:        faker.Dinner(),
			Tags:        tags,
			PrepMinutes: float64(faker.Number(5, 40)),
			StepCount:   faker.Number(1, 6),
		}
	}
	return out
}

type slotRecorder struct {
	slots   int
	relaxed []string
}

func (r *slotRecorder) ObserveSlot(_ mealplan.Entry, relaxed []string) {
	r.slots++
	r.relaxed = append(r.relaxed, relaxed...)
}

func TestGenerateEndToEnd(t *testing.T) {
	catalog := fakeCatalog(11, 10)
	engine := rules.NewEngine(zap.NewNop(),
		rules.Constraint{Name: "No Nuts", Mandatory: true, Filter: rules.ExcludeTag{Tag: "nuts"}},
		rules.Constraint{Name: "No Duplicates", Priority: 1, Filter: rules.NoDuplicates{Window: 7}},
	)
	p := New(engine, selection.NewRandom(selection.NewSeededRand(2024)), zap.NewNop())

	plan, err := p.Generate(catalog, Horizon{Start: monday, Days: 3, MealTypes: []string{"dinner"}})
	require.NoError(t, err)
	require.Len(t, plan, 3)

	seen := map[string]bool{}
	for i, e := range plan {
		assert.Equal(t, monday.AddDate(0, 0, i), e.Date)
		assert.Equal(t, "dinner", e.MealType)
		assert.NotContains(t, e.Tags, "nuts")
		assert.False(t, seen[e.RecipeID], "duplicate recipe %s", e.RecipeID)
		seen[e.RecipeID] = true
		assert.Equal(t, mealplan.StateGenerated, e.State)
	}
}

func TestGenerateSlotOrder(t *testing.T) {
	catalog := []recipe.Recipe{
		{ID: "b", Name: "Porridge", Tags: []string{"breakfast"}},
		{ID: "d", Name: "Stew", Tags: []string{"dinner"}},
	}
	engine := rules.NewEngine(zap.NewNop())
	p := New(engine, selection.NewRandom(selection.NewSeededRand(1)), zap.NewNop())

	plan, err := p.Generate(catalog, Horizon{Start: monday, Days: 2})
	require.NoError(t, err)
	require.Len(t, plan, 6)

	var got []string
	for _, e := range plan {
		got = append(got, e.DateString()+" "+e.MealType)
	}
	assert.Equal(t, []string{
		"2026-10-19 breakfast", "2026-10-19 lunch", "2026-10-19 dinner",
		"2026-10-20 breakfast", "2026-10-20 lunch", "2026-10-20 dinner",
	}, got)
}

func TestGenerateStopsOnUnsatisfiableSlot(t *testing.T) {
	catalog := fakeCatalog(3, 5)
	engine := rules.NewEngine(zap.NewNop(),
		rules.Constraint{Name: "Lunch only", Mandatory: true, Filter: rules.IncludeTag{Tag: "lunch"}},
	)
	p := New(engine, selection.NewRandom(selection.NewSeededRand(1)), zap.NewNop())

	_, err := p.Generate(catalog, Horizon{Start: monday, Days: 2, MealTypes: []string{"dinner"}})
	require.ErrorIs(t, err, rules.ErrUnsatisfiable)

	var unsat *rules.UnsatisfiableError
	require.ErrorAs(t, err, &unsat)
	assert.Equal(t, monday, unsat.Date)
	assert.Equal(t, "dinner", unsat.MealType)
}

func TestGenerateInvalidHorizon(t *testing.T) {
	p := New(rules.NewEngine(zap.NewNop()), selection.NewRandom(nil), zap.NewNop())

	_, err := p.Generate(nil, Horizon{Start: monday, Days: 0})
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = p.Generate(nil, Horizon{Start: monday, Days: 1, MealTypes: []string{}})
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestGenerateWithDayOverride(t *testing.T) {
	catalog := fakeCatalog(5, 12)
	engine := rules.NewEngine(zap.NewNop(),
		rules.Constraint{Name: "No Nuts", Mandatory: true, Filter: rules.ExcludeTag{Tag: "nuts"}},
	)
	skip, err := postselect.NewDayOverride("Wednesday", "Eating at Perez's")
	require.NoError(t, err)

	recorder := &slotRecorder{}
	p := New(engine, selection.NewRandom(selection.NewSeededRand(9)), zap.NewNop(), skip)
	p.SetObserver(recorder)

	plan, err := p.Generate(catalog, Horizon{Start: monday, Days: 7, MealTypes: []string{"dinner"}})
	require.NoError(t, err)
	require.Len(t, plan, 7)

	wednesday := plan[2]
	assert.Equal(t, time.Wednesday, wednesday.Date.Weekday())
	assert.Equal(t, "Eating at Perez's", wednesday.Title)
	assert.False(t, wednesday.HasRecipe())
	assert.Equal(t, mealplan.StateOverridden, wednesday.State)

	for i, e := range plan {
		if i != 2 {
			assert.True(t, e.HasRecipe(), e.DateString())
		}
	}
	assert.Equal(t, 6, recorder.slots)
}

func TestGenerateRejectsOverrideOutsideHorizon(t *testing.T) {
	skip, err := postselect.NewDayOverride("sunday", "Away")
	require.NoError(t, err)
	p := New(rules.NewEngine(zap.NewNop()), selection.NewRandom(nil), zap.NewNop(), skip)

	_, err = p.Generate(fakeCatalog(1, 3), Horizon{Start: monday, Days: 3})
	assert.ErrorIs(t, err, postselect.ErrOverrideTarget)
}

func TestGenerateRejectsDuplicateOverridesBeforeFilling(t *testing.T) {
	out, err := postselect.NewDayOverride("Wednesday", "Out")
	require.NoError(t, err)
	away, err := postselect.NewDayOverride("wednesday", "Away")
	require.NoError(t, err)

	recorder := &slotRecorder{}
	p := New(rules.NewEngine(zap.NewNop()), selection.NewRandom(selection.NewSeededRand(3)), zap.NewNop(), out, away)
	p.SetObserver(recorder)

	plan, err := p.Generate(fakeCatalog(2, 10), Horizon{Start: monday, Days: 7, MealTypes: []string{"dinner"}})
	require.ErrorIs(t, err, postselect.ErrDuplicateOverride)
	assert.ErrorContains(t, err, "2026-10-21 (Wednesday) claimed 2 times")
	assert.Nil(t, plan)
	assert.Zero(t, recorder.slots)
}

func TestGenerateReportsRelaxedConstraints(t *testing.T) {
	catalog := []recipe.Recipe{{ID: "1", Name: "Only Stew", Tags: []string{"dinner"}}}
	engine := rules.NewEngine(zap.NewNop(),
		rules.Constraint{Name: "No Duplicates", Priority: 1, Filter: rules.NoDuplicates{Window: 7}},
	)
	recorder := &slotRecorder{}
	p := New(engine, selection.NewRandom(selection.NewSeededRand(1)), zap.NewNop())
	p.SetObserver(recorder)

	plan, err := p.Generate(catalog, Horizon{Start: monday, Days: 2, MealTypes: []string{"dinner"}})
	require.NoError(t, err)

	assert.Equal(t, "1", plan[1].RecipeID)
	assert.Equal(t, []string{"No Duplicates"}, recorder.relaxed)
}

func TestPlanRepository(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "runs.db"), zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	repo := NewPlanRepository(db.SQL)
	ctx := context.Background()
	horizon := Horizon{Start: monday, Days: 1, MealTypes: []string{"dinner"}}

	first, err := repo.SaveRun(ctx, horizon, selection.NameRandom, true, mealplan.Plan{
		{Date: monday, MealType: "dinner", RecipeID: "r1", RecipeName: "Stew", State: mealplan.StateGenerated},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := repo.SaveRun(ctx, horizon, selection.NameNeglect, false, mealplan.Plan{
		{Date: monday, MealType: "dinner", Title: "Out", State: mealplan.StateOverridden},
	})
	require.NoError(t, err)

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, selection.NameNeglect, runs[0].Strategy)
	assert.False(t, runs[0].DryRun)
	assert.Equal(t, "Out", runs[0].Entries[0].Title)

	assert.Equal(t, first.ID, runs[1].ID)
	assert.True(t, runs[1].DryRun)
	assert.Equal(t, "2026-10-19", runs[1].StartDate)
	assert.Equal(t, "Stew", runs[1].Entries[0].RecipeName)

	limited, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
