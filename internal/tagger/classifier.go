package tagger

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/PuerkitoBio/goquery"

	"mealie-planner/internal/llm"
	"mealie-planner/internal/mealie"
)

//go:embed classifier_prompt.md
var classifierPrompt string

var promptTemplate = template.Must(template.New("classifier").
	Funcs(template.FuncMap{"join": func(items []string) string { return strings.Join(items, ", ") }}).
	Parse(classifierPrompt))

// Classification is the model's answer for one recipe.
type Classification struct {
	Cuisine     string     `json:"cuisine"`
	MainCarb    string     `json:"main_carb"`
	MainProtein stringList `json:"main_protein"`
	MealTime    string     `json:"meal_time"`
}

// TagNames flattens the classification, skipping empty and "None" values.
func (c Classification) TagNames() []string {
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !strings.EqualFold(v, "none") {
			out = append(out, v)
		}
	}
	add(c.Cuisine)
	add(c.MainCarb)
	for _, p := range c.MainProtein {
		add(p)
	}
	add(c.MealTime)
	return out
}

// stringList accepts a JSON string or an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

type promptData struct {
	Cuisines, Carbs, Proteins, MealTimes []string
	Name                                 string
	Ingredients                          []string
	Instructions                         string
}

// Classifier asks a TextGenerator to place recipes in the taxonomy.
type Classifier struct {
	gen llm.TextGenerator
}

// NewClassifier creates a Classifier.
func NewClassifier(gen llm.TextGenerator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify returns the classification together with the raw model response,
// which carries token usage even when decoding fails.
func (c *Classifier) Classify(ctx context.Context, r mealie.RecipeDetail) (Classification, llm.ContentResponse, error) {
	prompt, err := BuildPrompt(r)
	if err != nil {
		return Classification{}, llm.ContentResponse{}, err
	}

	resp, err := c.gen.GenerateContent(ctx, prompt)
	if err != nil {
		return Classification{}, resp, fmt.Errorf("failed to get LLM response: %w", err)
	}

	var out Classification
	if err := json.Unmarshal([]byte(stripFences(resp.Content)), &out); err != nil {
		return Classification{}, resp, fmt.Errorf("failed to unmarshal classification for %s: %w", r.Name, err)
	}
	return out, resp, nil
}

// BuildPrompt renders the classification prompt for r.
func BuildPrompt(r mealie.RecipeDetail) (string, error) {
	ingredients := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		if line := strings.TrimSpace(StripHTML(ing.Line())); line != "" {
			ingredients = append(ingredients, line)
		}
	}
	steps := make([]string, 0, len(r.Instructions))
	for _, step := range r.Instructions {
		if text := strings.TrimSpace(StripHTML(step.Text)); text != "" {
			steps = append(steps, text)
		}
	}

	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		Cuisines:     Cuisines,
		Carbs:        Carbs,
		Proteins:     Proteins,
		MealTimes:    MealTimes,
		Name:         r.Name,
		Ingredients:  ingredients,
		Instructions: strings.Join(steps, " "),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render classifier prompt: %w", err)
	}
	return buf.String(), nil
}

// StripHTML returns the text content of an HTML fragment.
func StripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
