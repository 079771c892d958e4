package acceptance_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mealie-planner/internal/app"
	"mealie-planner/internal/config"
	"mealie-planner/internal/database"
	"mealie-planner/internal/llm"
	"mealie-planner/internal/mealie"
	"mealie-planner/internal/storage"
)

// --- Fake Mealie server ---
type fakeMealie struct {
	mu      sync.Mutex
	created []map[string]any
	tagged  []map[string]any
}

func page(items any) map[string]any {
	return map[string]any{"page": 1, "per_page": 50, "total_pages": 1, "items": items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func catalogItems() []map[string]any {
	var items []map[string]any
	for i := range 8 {
		items = append(items, map[string]any{
			"id":                 fmt.Sprintf("r%d", i),
			"slug":               fmt.Sprintf("dinner-%d", i),
			"name":               fmt.Sprintf("Dinner %d", i),
			"tags":               []map[string]string{{"name": "Dinner"}},
			"prepTime":           "15 minutes",
			"performTime":        "PT30M",
			"recipeInstructions": []map[string]string{{"text": "Cook."}},
		})
	}
	items = append(items, map[string]any{
		"id":                 "satay",
		"slug":               "satay",
		"name":               "Satay",
		"tags":               []map[string]string{{"name": "Dinner"}, {"name": "allergen-nuts"}},
		"recipeInstructions": []map[string]string{{"text": "Grill."}},
	})
	return items
}

func (f *fakeMealie) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/recipes", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("queryFilter"), "createdAt") {
			writeJSON(w, http.StatusOK, page([]map[string]any{{"id": "new", "slug": "butter-chicken", "name": "Butter Chicken"}}))
			return
		}
		writeJSON(w, http.StatusOK, page(catalogItems()))
	})
	mux.HandleFunc("GET /api/recipes/{slug}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":                 "new",
			"slug":               r.PathValue("slug"),
			"name":               "Butter Chicken",
			"recipeIngredient":   []map[string]string{{"display": "500g chicken"}},
			"recipeInstructions": []map[string]string{{"text": "<p>Simmer.</p>"}},
		})
	})
	mux.HandleFunc("GET /api/households/mealplans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{}))
	})
	mux.HandleFunc("POST /api/households/mealplans", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, body)
	})
	mux.HandleFunc("GET /api/recipes/timeline/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]any{}))
	})
	mux.HandleFunc("GET /api/organizers/tags", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page([]map[string]string{
			{"id": "t1", "name": "Indian", "slug": "indian"},
			{"id": "t2", "name": "Chicken", "slug": "chicken"},
			{"id": "t3", "name": "Dinner", "slug": "dinner"},
		}))
	})
	mux.HandleFunc("POST /api/recipes/bulk-actions/tag", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.tagged = append(f.tagged, body)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	return mux
}

// --- Mock LLM Client ---
type mockLLMClient struct {
	calls int
}

func (m *mockLLMClient) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	m.calls++
	if !strings.Contains(prompt, "Name: Butter Chicken") {
		return llm.ContentResponse{}, fmt.Errorf("unexpected prompt")
	}
	return llm.ContentResponse{
		Content: `{"cuisine":"Indian","main_carb":"Rice","main_protein":["Chicken"],"meal_time":"Dinner"}`,
		Usage:   llm.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "mock"},
		Latency: 50 * time.Millisecond,
	}, nil
}

const profileYAML = `
start: "2026-10-19"
days: 5
meal_types: [dinner]
strategy:
  name: random
constraints:
  - type: exclude_tag
    name: No Nuts
    mandatory: true
    tag: allergen-nuts
  - type: include_tag
    name: Only Pick Dinners
    mandatory: true
    tag: dinner
  - type: no_duplicates
    name: No Duplicates
    priority: 1
    window: 5
overrides:
  - day: friday
    reason: Pizza night
`

type env struct {
	app    *app.App
	server *fakeMealie
	out    *bytes.Buffer
}

func setup(t *testing.T, textGen llm.TextGenerator) *env {
	t.Helper()
	dir := t.TempDir()

	fake := &fakeMealie{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	profilePath := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(profilePath, []byte(profileYAML), 0644))
	profile, err := config.LoadProfile(profilePath)
	require.NoError(t, err)

	cfg := &config.Config{
		MealieServer:        srv.URL,
		MealieToken:         "api-token",
		DatabasePath:        filepath.Join(dir, "planner.db"),
		CatalogSnapshotPath: filepath.Join(dir, "catalog.json"),
	}

	db, err := database.NewDB(cfg.DatabasePath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog, err := storage.NewCatalogStore(cfg.CatalogSnapshotPath)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := app.NewApp(cfg, profile, mealie.NewClient(cfg, zap.NewNop()), textGen, db, catalog, nil, zap.NewNop())
	a.SetOutput(out)
	return &env{app: a, server: fake, out: out}
}

// --- Acceptance Tests ---
func TestPlanWorkflow(t *testing.T) {
	e := setup(t, nil)
	ctx := context.Background()

	res, err := e.app.PlanMeals(ctx, app.PlanOptions{Seed: 2026})
	require.NoError(t, err)
	require.Len(t, res.Plan, 5)
	assert.Equal(t, 5, res.Pushed)

	require.Len(t, e.server.created, 5)
	seen := map[string]bool{}
	for _, body := range e.server.created {
		assert.Equal(t, "dinner", body["entryType"])
		if body["date"] == "2026-10-23" {
			assert.Equal(t, "Pizza night", body["title"])
			assert.NotContains(t, body, "recipeId")
			continue
		}
		id, _ := body["recipeId"].(string)
		assert.NotEqual(t, "satay", id)
		assert.False(t, seen[id], "recipe %s planned twice", id)
		seen[id] = true
	}

	// The snapshot written by the online run feeds an offline run.
	offline, err := e.app.PlanMeals(ctx, app.PlanOptions{Offline: true, Seed: 2026})
	require.NoError(t, err)
	assert.Equal(t, res.Plan[0].RecipeID, offline.Plan[0].RecipeID)
	assert.Len(t, e.server.created, 5)

	e.out.Reset()
	require.NoError(t, e.app.History(ctx, 10))
	lines := strings.Split(strings.TrimSpace(e.out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], offline.RunID)
}

func TestTagWorkflow(t *testing.T) {
	gen := &mockLLMClient{}
	e := setup(t, gen)
	ctx := context.Background()

	require.NoError(t, e.app.TagRecipes(ctx, false))
	assert.Equal(t, 1, gen.calls)
	require.Len(t, e.server.tagged, 1)
	assert.Equal(t, []any{"butter-chicken"}, e.server.tagged[0]["recipes"])
	assert.Len(t, e.server.tagged[0]["tags"], 3)
	assert.Contains(t, e.out.String(), "Unknown tags skipped: [Rice]")

	e.out.Reset()
	require.NoError(t, e.app.UsageReport(7))
	assert.Contains(t, e.out.String(), "prompt 100  completion 20  calls 1")
}
