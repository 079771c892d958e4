package mealie

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mealie-planner/internal/recipe"
)

// detailConcurrency bounds parallel recipe detail requests.
const detailConcurrency = 4

// Named is the shape of tags, tools and categories in recipe payloads.
type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Instruction is one recipe step.
type Instruction struct {
	Text string `json:"text"`
}

// Ingredient is one recipe ingredient line.
type Ingredient struct {
	Display string `json:"display"`
	Note    string `json:"note"`
}

// Line returns the best human-readable rendering of the ingredient.
func (i Ingredient) Line() string {
	if i.Display != "" {
		return i.Display
	}
	return i.Note
}

// RecipeDetail is a recipe as returned by Mealie.
type RecipeDetail struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug"`
	Name         string        `json:"name"`
	Tags         []Named       `json:"tags"`
	Tools        []Named       `json:"tools"`
	PrepTime     flexString    `json:"prepTime"`
	PerformTime  flexString    `json:"performTime"`
	TotalTime    flexString    `json:"totalTime"`
	LastMade     flexString    `json:"lastMade"`
	DateAdded    string        `json:"dateAdded"`
	Ingredients  []Ingredient  `json:"recipeIngredient"`
	Instructions []Instruction `json:"recipeInstructions"`
}

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

// ToRecipe maps the payload to the planner's recipe record.
func (d RecipeDetail) ToRecipe() recipe.Recipe {
	cook := ParseMinutes(string(d.PerformTime))
	if cook == 0 {
		if total := ParseMinutes(string(d.TotalTime)); total > 0 {
			cook = max(total-ParseMinutes(string(d.PrepTime)), 0)
		}
	}
	return recipe.Recipe{
		ID:          d.ID,
		Slug:        d.Slug,
		Name:        d.Name,
		Tags:        names(d.Tags),
		Tools:       names(d.Tools),
		PrepMinutes: ParseMinutes(string(d.PrepTime)),
		CookMinutes: cook,
		StepCount:   len(d.Instructions),
		LastMade:    string(d.LastMade),
	}
}

func names(items []Named) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.Name != "" {
			out = append(out, it.Name)
		}
	}
	return out
}

// FetchRecipes fetches the whole catalog. The listing omits instructions, so
// details are fetched for every recipe with bounded concurrency.
func (c *mealieClient) FetchRecipes(ctx context.Context) ([]recipe.Recipe, error) {
	items, err := fetchAll[RecipeDetail](ctx, c, "/recipes", nil, recipesPerPage)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i := range items {
		if len(items[i].Instructions) > 0 || items[i].Slug == "" {
			continue
		}
		g.Go(func() error {
			detail, err := c.FetchRecipeDetail(ctx, items[i].Slug)
			if err != nil {
				return err
			}
			items[i] = *detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recipes := make([]recipe.Recipe, len(items))
	for i, it := range items {
		recipes[i] = it.ToRecipe()
	}
	return recipes, nil
}

// FetchRecipeDetail fetches one recipe by slug.
func (c *mealieClient) FetchRecipeDetail(ctx context.Context, slug string) (*RecipeDetail, error) {
	var d RecipeDetail
	if _, err := c.do(ctx, http.MethodGet, "/recipes/"+url.PathEscape(slug), nil, nil, &d); err != nil {
		return nil, fmt.Errorf("failed to fetch recipe %s: %w", slug, err)
	}
	return &d, nil
}

// FetchRecipesCreatedSince lists recipes added on or after since, with details.
func (c *mealieClient) FetchRecipesCreatedSince(ctx context.Context, since time.Time) ([]RecipeDetail, error) {
	query := url.Values{}
	query.Set("queryFilter", fmt.Sprintf(`createdAt >= "%s"`, since.Format("2006-01-02T15:04:05")))

	items, err := fetchAll[RecipeDetail](ctx, c, "/recipes", query, recipesPerPage)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i := range items {
		g.Go(func() error {
			detail, err := c.FetchRecipeDetail(gctx, items[i].Slug)
			if err != nil {
				return err
			}
			items[i] = *detail
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

var (
	isoDuration = regexp.MustCompile(`^P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	textAmount  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(days?|d|hours?|hrs?|h|minutes?|mins?|m)\b`)
)

// ParseMinutes converts Mealie's free-form durations into minutes. It accepts
// ISO-8601 durations ("PT1H30M"), text ("1 hour 30 minutes", "45 min") and
// bare numbers. Anything else is 0.
func ParseMinutes(value string) float64 {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}

	if m := isoDuration.FindStringSubmatch(strings.ToUpper(value)); m != nil {
		return num(m[1])*24*60 + num(m[2])*60 + num(m[3]) + num(m[4])/60
	}

	total := 0.0
	for _, m := range textAmount.FindAllStringSubmatch(value, -1) {
		n := num(m[1])
		switch {
		case strings.HasPrefix(m[2], "d"):
			total += n * 24 * 60
		case strings.HasPrefix(m[2], "h"):
			total += n * 60
		default:
			total += n
		}
	}
	return total
}

func num(s string) float64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseFloat(s, 64)
	return n
}
