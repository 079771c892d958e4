package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"mealie-planner/internal/app"
	"mealie-planner/internal/config"
	"mealie-planner/internal/database"
	"mealie-planner/internal/llm"
	"mealie-planner/internal/logging"
	"mealie-planner/internal/mealie"
	"mealie-planner/internal/storage"
	"mealie-planner/internal/telegram"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, command string, args []string) error {
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	catalog, err := storage.NewCatalogStore(cfg.CatalogSnapshotPath)
	if err != nil {
		return err
	}

	var notifier app.Notifier
	if cfg.TelegramEnabled() {
		n, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			notifier = n
		}
	}

	var textGen llm.TextGenerator
	if command == "tag-recipes" {
		textGen, err = llm.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize LLM client: %w", err)
		}
		if c, ok := textGen.(llm.Closer); ok {
			defer c.Close()
		}
	}

	application := app.NewApp(cfg, profile, mealie.NewClient(cfg, logger), textGen, db, catalog, notifier, logger)

	switch command {
	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		dryRun := planCmd.Bool("dry-run", false, "Generate and store the plan without pushing it to Mealie")
		offline := planCmd.Bool("offline", false, "Plan from the last catalog snapshot")
		days := planCmd.Int("days", 0, "Number of days to plan (default from profile)")
		start := planCmd.String("start", "", "First day of the plan, YYYY-MM-DD (default next Monday)")
		seed := planCmd.Uint64("seed", 0, "Seed for reproducible selection (0 picks one)")
		planCmd.Parse(args)

		_, err := application.PlanMeals(ctx, app.PlanOptions{
			DryRun:  *dryRun,
			Offline: *offline,
			Days:    *days,
			Start:   *start,
			Seed:    *seed,
		})
		return err
	case "create-tags":
		return application.CreateTags(ctx)
	case "tag-recipes":
		tagCmd := flag.NewFlagSet("tag-recipes", flag.ExitOnError)
		dryRun := tagCmd.Bool("dry-run", false, "Classify recipes without applying tags")
		tagCmd.Parse(args)
		return application.TagRecipes(ctx, *dryRun)
	case "history":
		historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
		limit := historyCmd.Int("limit", 10, "Number of runs to show")
		historyCmd.Parse(args)
		return application.History(ctx, *limit)
	case "usage":
		usageCmd := flag.NewFlagSet("usage", flag.ExitOnError)
		days := usageCmd.Int("days", 7, "Report the last N days")
		usageCmd.Parse(args)
		return application.UsageReport(*days)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(args)
		return application.CleanupMetrics(*days)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println("Usage: mealie-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan               Generate a meal plan and push it to Mealie")
	fmt.Println("  create-tags        Create the default tag taxonomy in Mealie")
	fmt.Println("  tag-recipes        Classify this month's recipes and tag them")
	fmt.Println("  history            List recent planning runs")
	fmt.Println("  usage              Show LLM token usage")
	fmt.Println("  metrics-cleanup    Remove old metric records")
}
