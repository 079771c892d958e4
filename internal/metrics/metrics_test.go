package metrics

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealie-planner/internal/database"
	"mealie-planner/internal/llm"
	"mealie-planner/internal/mealplan"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStoreDailyUsage(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, store.RecordUsage("Classifier", llm.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "m"}, 1500*time.Millisecond))
	require.NoError(t, store.Record(ExecutionMetric{AgentName: "Classifier", PromptTokens: 50, CompletionTokens: 5, Timestamp: now}))
	require.NoError(t, store.Record(ExecutionMetric{AgentName: "Classifier", PromptTokens: 7, Timestamp: now.AddDate(0, 0, -40)}))

	usage, err := store.GetDailyUsage(7)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, now.Format("2006-01-02"), usage[0].Date)
	assert.Equal(t, 150, usage[0].TotalPrompt)
	assert.Equal(t, 25, usage[0].TotalCompletion)
	assert.Equal(t, 2, usage[0].TotalExecution)

	removed, err := store.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("Classifier", llm.TokenUsage{PromptTokens: 3, CompletionTokens: 4, Model: "llama"}, 2*time.Second)
	assert.Equal(t, "llama", m.Model)
	assert.Equal(t, int64(2000), m.LatencyMS)
	assert.False(t, m.Timestamp.IsZero())
}

func TestRunMetricsObserve(t *testing.T) {
	m := NewRunMetrics()
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	m.ObserveSlot(mealplan.Entry{Date: day, MealType: "dinner"}, []string{"no_duplicates"})
	m.ObserveSlot(mealplan.Entry{Date: day, MealType: "dinner"}, nil)
	m.ObserveSlot(mealplan.Entry{Date: day, MealType: "lunch"}, []string{"no_duplicates", "max_fish"})
	m.ObservePlan(mealplan.Plan{
		{Date: day, MealType: "dinner", State: mealplan.StateOverridden},
		{Date: day, MealType: "lunch", State: mealplan.StateGenerated},
	})
	m.EntryPushed()
	m.RecipesTagged(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.slotsPlanned.WithLabelValues("dinner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotsPlanned.WithLabelValues("lunch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.relaxations.WithLabelValues("no_duplicates")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entriesOverridden))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.entriesPushed))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.recipesTagged))
}

func TestRunMetricsPush(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewRunMetrics()
	m.MarkSuccess()
	require.NoError(t, m.Push(srv.URL, "plan"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/mealie_planner/command/plan", gotPath)

	assert.NoError(t, NewRunMetrics().Push("", "plan"))
}
