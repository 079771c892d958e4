// Package mealie talks to the Mealie REST API: the recipe catalog, meal-plan
// and timeline history, plan entries and the tag organizer.
package mealie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"mealie-planner/internal/config"
	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/recipe"
)

const (
	recipesPerPage = 50
	tagsPerPage    = 100
	eventsPerPage  = 100
)

// Client is an interface for a Mealie API client.
type Client interface {
	FetchRecipes(ctx context.Context) ([]recipe.Recipe, error)
	FetchRecipeDetail(ctx context.Context, slug string) (*RecipeDetail, error)
	FetchRecipesCreatedSince(ctx context.Context, since time.Time) ([]RecipeDetail, error)
	FetchMealPlans(ctx context.Context, start, end time.Time) ([]PlanItem, error)
	FetchTimelineEvents(ctx context.Context, since time.Time) ([]TimelineEvent, error)
	CreateMealPlanEntry(ctx context.Context, entry mealplan.Entry) error
	FetchTags(ctx context.Context) (map[string]Tag, error)
	CreateTag(ctx context.Context, name string) (created bool, err error)
	BulkTagRecipes(ctx context.Context, slugs []string, tags []Tag) error
}

// mealieClient is the concrete implementation of the Mealie API client.
type mealieClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

// NewClient creates a new Mealie API client.
func NewClient(cfg *config.Config, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &mealieClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.MealieServer + "/api",
		token:      cfg.MealieToken,
		logger:     logger,
	}
}

// APIError is a non-2xx answer from Mealie.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mealie api error: %s %s: status %d, body: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// page is the envelope of paginated Mealie listings.
type page[T any] struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
	Items      []T `json:"items"`
}

// do sends a request and decodes a JSON answer into out when out is non-nil.
func (c *mealieClient) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// fetchAll walks a paginated listing until an empty or final page.
func fetchAll[T any](ctx context.Context, c *mealieClient, path string, query url.Values, perPage int) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	var all []T
	for n := 1; ; n++ {
		query.Set("page", fmt.Sprint(n))
		query.Set("perPage", fmt.Sprint(perPage))

		var p page[T]
		if _, err := c.do(ctx, http.MethodGet, path, query, nil, &p); err != nil {
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", path, n, err)
		}
		all = append(all, p.Items...)

		if len(p.Items) == 0 || (p.TotalPages > 0 && n >= p.TotalPages) {
			break
		}
	}
	c.logger.Debug("fetched listing", zap.String("path", path), zap.Int("items", len(all)))
	return all, nil
}
