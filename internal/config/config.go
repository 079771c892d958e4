package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Config holds the configuration for the application.
type Config struct {
	MealieServer string
	MealieToken  string

	LLMProvider  string
	GeminiAPIKey string
	GroqAPIKey   string

	DatabasePath        string
	CatalogSnapshotPath string
	ProfilePath         string

	// Telegram Config
	TelegramBotToken string
	TelegramChatID   int64

	PushgatewayURL string
	LogLevel       string
	DryRun         bool
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	mealieServer := strings.TrimRight(os.Getenv("MEALIE_SERVER"), "/")
	if mealieServer == "" {
		return nil, fmt.Errorf("MEALIE_SERVER environment variable not set")
	}

	mealieToken := os.Getenv("MEALIE_TOKEN")
	if mealieToken == "" {
		return nil, fmt.Errorf("MEALIE_TOKEN environment variable not set")
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderGroq))
	if provider != ProviderGroq && provider != ProviderGemini {
		return nil, fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGroq, ProviderGemini, provider)
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		chatID = id
	}

	var dryRun bool
	if raw := os.Getenv("DRY_RUN"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("DRY_RUN must be a boolean: %w", err)
		}
		dryRun = v
	}

	return &Config{
		MealieServer:        mealieServer,
		MealieToken:         mealieToken,
		LLMProvider:         provider,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		DatabasePath:        getEnv("DATABASE_PATH", "data/mealie-planner.db"),
		CatalogSnapshotPath: getEnv("CATALOG_SNAPSHOT_PATH", "data/catalog.json"),
		ProfilePath:         os.Getenv("PLAN_PROFILE"),
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:      chatID,
		PushgatewayURL:      os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DryRun:              dryRun,
	}, nil
}

// LLMAPIKey returns the key of the configured provider.
func (c *Config) LLMAPIKey() (string, error) {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return "", fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
		return c.GeminiAPIKey, nil
	default:
		if c.GroqAPIKey == "" {
			return "", fmt.Errorf("GROQ_API_KEY environment variable not set")
		}
		return c.GroqAPIKey, nil
	}
}

// TelegramEnabled reports whether plan notifications can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
