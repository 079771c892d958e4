package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mealie-planner/internal/mealie"
	"mealie-planner/internal/metrics"
	"mealie-planner/internal/tagger"
)

// classifyInterval keeps classification under the free-tier limit of 15 RPM.
const classifyInterval = 4 * time.Second

// CreateTags makes sure every taxonomy tag exists in Mealie.
func (a *App) CreateTags(ctx context.Context) error {
	if err := mealie.CheckToken(a.cfg.MealieToken, a.now()); err != nil {
		return err
	}
	created, existing, err := tagger.CreateDefaultTags(ctx, a.mealie, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created %d tags, %d already existed.\n", created, existing)
	return nil
}

// TagRecipes classifies the recipes added this month and tags them.
func (a *App) TagRecipes(ctx context.Context, dryRun bool) error {
	if a.textGen == nil {
		return errors.New("tag-recipes needs an LLM provider")
	}
	now := a.now()
	if err := mealie.CheckToken(a.cfg.MealieToken, now); err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Every(classifyInterval), 1)
	t := tagger.New(a.mealie, tagger.NewClassifier(a.textGen), limiter, a.usage, a.logger)

	report, err := t.Run(ctx, tagger.FirstOfMonth(now), dryRun || a.cfg.DryRun)
	if err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}

	runMetrics := metrics.NewRunMetrics()
	runMetrics.RecipesTagged(report.Tagged)
	runMetrics.MarkSuccess()
	if err := runMetrics.Push(a.cfg.PushgatewayURL, "tag-recipes"); err != nil {
		a.logger.Warn("failed to push run metrics", zap.Error(err))
	}

	fmt.Fprintf(a.out, "Classified %d recipes (%d failed), tagged %d.\n", report.Classified, report.Failed, report.Tagged)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(a.out, "Unknown tags skipped: %v\n", report.Skipped)
	}
	return nil
}

// History prints the most recent planning runs.
func (a *App) History(ctx context.Context, limit int) error {
	runs, err := a.plans.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No planning runs yet.")
		return nil
	}
	for _, r := range runs {
		mode := "pushed"
		if r.DryRun {
			mode = "dry run"
		}
		fmt.Fprintf(a.out, "%s  %s  start %s  %d day(s)  %s  %s  %d entries\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.ID, r.StartDate, r.Days, r.Strategy, mode, len(r.Entries))
	}
	return nil
}

// UsageReport prints LLM token usage for the last days and sends it to the
// notifier when one is configured.
func (a *App) UsageReport(days int) error {
	usage, err := a.usage.GetDailyUsage(days)
	if err != nil {
		return err
	}
	if len(usage) == 0 {
		fmt.Fprintln(a.out, "No LLM usage recorded.")
	}
	for _, d := range usage {
		fmt.Fprintf(a.out, "%s  prompt %d  completion %d  calls %d\n", d.Date, d.TotalPrompt, d.TotalCompletion, d.TotalExecution)
	}
	if a.notifier != nil {
		if err := a.notifier.SendUsage(usage); err != nil {
			a.logger.Warn("failed to send usage report", zap.Error(err))
		}
	}
	return nil
}

// CleanupMetrics removes usage records older than days.
func (a *App) CleanupMetrics(days int) error {
	affected, err := a.usage.Cleanup(days)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Successfully removed %d old metric records.\n", affected)
	return nil
}
