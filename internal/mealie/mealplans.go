package mealie

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mealie-planner/internal/mealplan"
)

// PlanItem is a meal-plan entry stored in Mealie.
type PlanItem struct {
	ID        int    `json:"id"`
	Date      string `json:"date"`
	EntryType string `json:"entryType"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	RecipeID  string `json:"recipeId"`
	Recipe    *Named `json:"recipe"`
}

// RecipeName returns the embedded recipe name, if any.
func (p PlanItem) RecipeName() string {
	if p.Recipe == nil {
		return ""
	}
	return p.Recipe.Name
}

// TimelineEvent is a recipe timeline record, e.g. "I made this".
type TimelineEvent struct {
	ID           string `json:"id"`
	RecipeID     string `json:"recipeId"`
	Subject      string `json:"subject"`
	EventType    string `json:"eventType"`
	EventMessage string `json:"eventMessage"`
	Timestamp    Time   `json:"timestamp"`
}

// Time decodes Mealie timestamps, which may lack a zone. Those are UTC.
type Time struct {
	time.Time
}

func (t *Time) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, ok := mealplan.ParseTimestamp(raw)
	if !ok {
		return fmt.Errorf("unsupported timestamp %q", raw)
	}
	t.Time = parsed
	return nil
}

// IsMade reports whether the event records the recipe being cooked.
func (e TimelineEvent) IsMade() bool {
	return strings.Contains(strings.ToLower(e.Subject), "made this")
}

// FetchMealPlans lists meal-plan entries dated within [start, end].
func (c *mealieClient) FetchMealPlans(ctx context.Context, start, end time.Time) ([]PlanItem, error) {
	query := url.Values{}
	query.Set("start_date", start.Format(mealplan.DateLayout))
	query.Set("end_date", end.Format(mealplan.DateLayout))
	return fetchAll[PlanItem](ctx, c, "/households/mealplans", query, eventsPerPage)
}

// FetchTimelineEvents lists timeline events at or after since.
func (c *mealieClient) FetchTimelineEvents(ctx context.Context, since time.Time) ([]TimelineEvent, error) {
	query := url.Values{}
	query.Set("queryFilter", fmt.Sprintf(`timestamp >= "%s"`, since.UTC().Format("2006-01-02T15:04:05")))
	query.Set("orderBy", "timestamp")
	query.Set("orderDirection", "asc")

	events, err := fetchAll[TimelineEvent](ctx, c, "/recipes/timeline/events", query, eventsPerPage)
	if err != nil {
		return nil, err
	}

	out := events[:0]
	for _, e := range events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// createPlanRequest omits recipeId for note entries.
type createPlanRequest struct {
	Date      string `json:"date"`
	EntryType string `json:"entryType"`
	RecipeID  string `json:"recipeId,omitempty"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
}

// CreateMealPlanEntry pushes one plan entry.
func (c *mealieClient) CreateMealPlanEntry(ctx context.Context, entry mealplan.Entry) error {
	req := createPlanRequest{
		Date:      entry.DateString(),
		EntryType: entry.MealType,
		RecipeID:  entry.RecipeID,
		Title:     entry.Title,
		Text:      entry.Text,
	}
	if _, err := c.do(ctx, http.MethodPost, "/households/mealplans", nil, req, nil); err != nil {
		return fmt.Errorf("failed to create meal plan entry %s %s: %w", req.Date, req.EntryType, err)
	}
	return nil
}
