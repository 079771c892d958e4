package tagger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mealie-planner/internal/llm"
	"mealie-planner/internal/mealie"
)

// agentName labels classification calls in the usage store.
const agentName = "Classifier"

// UsageRecorder persists model token usage.
type UsageRecorder interface {
	RecordUsage(agent string, usage llm.TokenUsage, latency time.Duration) error
}

// Report summarises a tagging run.
type Report struct {
	Classified int
	Failed     int
	Tagged     int
	Skipped    []string
}

// Tagger classifies recently added recipes and applies the suggested tags.
type Tagger struct {
	client     mealie.Client
	classifier *Classifier
	limiter    *rate.Limiter
	usage      UsageRecorder
	logger     *zap.Logger
}

// New creates a Tagger. limiter paces model calls and may be nil; usage may
// be nil.
func New(client mealie.Client, classifier *Classifier, limiter *rate.Limiter, usage UsageRecorder, logger *zap.Logger) *Tagger {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{client: client, classifier: classifier, limiter: limiter, usage: usage, logger: logger}
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Run classifies every recipe created since and tags it unless dryRun. A
// failed classification is logged and skipped; Mealie errors abort the run.
func (t *Tagger) Run(ctx context.Context, since time.Time, dryRun bool) (Report, error) {
	var report Report

	lookup, err := t.client.FetchTags(ctx)
	if err != nil {
		return report, err
	}
	recipes, err := t.client.FetchRecipesCreatedSince(ctx, since)
	if err != nil {
		return report, err
	}
	if len(recipes) == 0 {
		t.logger.Info("no recipes to classify", zap.Time("since", since))
		return report, nil
	}

	for _, r := range recipes {
		if err := t.limiter.Wait(ctx); err != nil {
			return report, err
		}

		t.logger.Info("classifying recipe", zap.String("recipe", r.Name), zap.String("slug", r.Slug))
		classification, resp, err := t.classifier.Classify(ctx, r)
		t.recordUsage(resp)
		if err != nil {
			report.Failed++
			t.logger.Warn("classification failed", zap.String("recipe", r.Name), zap.Error(err))
			continue
		}
		report.Classified++

		names := classification.TagNames()
		t.logger.Info("suggested tags", zap.String("recipe", r.Name), zap.Strings("tags", names))

		tags := t.resolve(lookup, names, &report)
		if len(tags) == 0 {
			t.logger.Warn("no valid tags to apply", zap.String("recipe", r.Name))
			continue
		}
		if dryRun {
			t.logger.Info("dry run, not pushing tags", zap.String("recipe", r.Name))
			continue
		}
		if err := t.client.BulkTagRecipes(ctx, []string{r.Slug}, tags); err != nil {
			return report, fmt.Errorf("failed to tag %s: %w", r.Slug, err)
		}
		report.Tagged++
	}
	return report, nil
}

func (t *Tagger) resolve(lookup map[string]mealie.Tag, names []string, report *Report) []mealie.Tag {
	var tags []mealie.Tag
	seen := map[string]bool{}
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		tag, ok := lookup[key]
		if !ok {
			t.logger.Warn("tag not found in mealie, skipping", zap.String("tag", name))
			report.Skipped = append(report.Skipped, name)
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

func (t *Tagger) recordUsage(resp llm.ContentResponse) {
	if t.usage == nil || (resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0) {
		return
	}
	if err := t.usage.RecordUsage(agentName, resp.Usage, resp.Latency); err != nil {
		t.logger.Warn("failed to record token usage", zap.Error(err))
	}
}
