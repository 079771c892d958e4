// Package tagger maintains the tag taxonomy in Mealie and classifies recipes
// into it with a language model.
package tagger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mealie-planner/internal/mealie"
)

// Taxonomy groups the tags recipes are classified into.
var (
	Cuisines = []string{
		"Indian", "Italian", "Chinese", "Mexican", "French",
		"Japanese", "Greek", "American", "Middle Eastern", "Filipino",
	}
	Carbs     = []string{"Rice", "Pasta", "Bread", "Potatoes", "Couscous", "Quinoa"}
	Proteins  = []string{"Chicken", "Beef", "Pork", "Lamb", "Fish", "Tofu", "Lentils", "Beans"}
	MealTimes = []string{"Breakfast", "Lunch", "Dinner", "Side", "Dessert", "Snack"}
)

// AllTags returns every taxonomy tag.
func AllTags() []string {
	out := make([]string, 0, len(Cuisines)+len(Carbs)+len(Proteins)+len(MealTimes))
	out = append(out, Cuisines...)
	out = append(out, Carbs...)
	out = append(out, Proteins...)
	return append(out, MealTimes...)
}

// CreateDefaultTags creates every taxonomy tag in Mealie. Tags that already
// exist are counted but not treated as failures.
func CreateDefaultTags(ctx context.Context, client mealie.Client, logger *zap.Logger) (created, existing int, err error) {
	for _, name := range AllTags() {
		ok, err := client.CreateTag(ctx, name)
		if err != nil {
			return created, existing, fmt.Errorf("failed to create default tags: %w", err)
		}
		if ok {
			created++
			logger.Info("created tag", zap.String("tag", name))
		} else {
			existing++
			logger.Debug("tag already exists", zap.String("tag", name))
		}
	}
	return created, existing, nil
}
