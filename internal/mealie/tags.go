package mealie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Tag is a Mealie organizer tag.
type Tag struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	GroupID string `json:"groupId,omitempty"`
}

// FetchTags returns every tag keyed by lowercase name.
func (c *mealieClient) FetchTags(ctx context.Context) (map[string]Tag, error) {
	items, err := fetchAll[Tag](ctx, c, "/organizers/tags", nil, tagsPerPage)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]Tag, len(items))
	for _, t := range items {
		tags[strings.ToLower(t.Name)] = t
	}
	return tags, nil
}

// CreateTag creates a tag. An existing tag is not an error; created is false.
func (c *mealieClient) CreateTag(ctx context.Context, name string) (bool, error) {
	_, err := c.do(ctx, http.MethodPost, "/organizers/tags", nil, map[string]string{"name": name}, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return false, nil
	}
	return false, fmt.Errorf("failed to create tag %q: %w", name, err)
}

// BulkTagRecipes attaches tags to the recipes with the given slugs.
func (c *mealieClient) BulkTagRecipes(ctx context.Context, slugs []string, tags []Tag) error {
	if len(slugs) == 0 || len(tags) == 0 {
		return nil
	}
	payload := struct {
		Recipes []string `json:"recipes"`
		Tags    []Tag    `json:"tags"`
	}{Recipes: slugs, Tags: tags}

	if _, err := c.do(ctx, http.MethodPost, "/recipes/bulk-actions/tag", nil, payload, nil); err != nil {
		return fmt.Errorf("failed to tag recipes %v: %w", slugs, err)
	}
	return nil
}
