// Package telegram posts finished meal plans to a Telegram chat.
package telegram

import (
	"fmt"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"mealie-planner/internal/mealplan"
	"mealie-planner/internal/metrics"
)

// Notifier sends Markdown messages to a single chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewNotifier authorizes the bot token against the Telegram API.
func NewNotifier(token string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	return NewNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, logger)
}

// NewNotifierWithEndpoint is NewNotifier against a custom Bot API endpoint,
// formatted like tgbotapi.APIEndpoint.
func NewNotifierWithEndpoint(token, endpoint string, chatID int64, logger *zap.Logger) (*Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized telegram bot", zap.String("account", api.Self.UserName))
	return &Notifier{api: api, chatID: chatID, logger: logger}, nil
}

// SendPlan posts the plan, with relaxed constraints listed under it.
func (n *Notifier) SendPlan(plan mealplan.Plan, relaxed map[string]int, dryRun bool) error {
	return n.send(FormatPlanMarkdown(plan, relaxed, dryRun))
}

// SendUsage posts the LLM usage report.
func (n *Notifier) SendUsage(usage []metrics.DailyUsage) error {
	return n.send(FormatUsageMarkdown(usage))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.logger.Debug("telegram message sent", zap.Int64("chat_id", n.chatID))
	return nil
}

// FormatPlanMarkdown renders the plan grouped by day.
func FormatPlanMarkdown(plan mealplan.Plan, relaxed map[string]int, dryRun bool) string {
	var pb strings.Builder
	pb.WriteString("📅 *Meal Plan*")
	if dryRun {
		pb.WriteString(" _(dry run)_")
	}
	pb.WriteString("\n")

	var lastDay string
	for _, e := range plan {
		day := e.DateString()
		if day != lastDay {
			pb.WriteString(fmt.Sprintf("\n*%s %s*\n", e.Date.Weekday(), day))
			lastDay = day
		}
		switch {
		case e.HasRecipe():
			pb.WriteString(fmt.Sprintf("• %s: %s\n", e.MealType, escape(e.RecipeName)))
		case e.Title != "":
			pb.WriteString(fmt.Sprintf("• %s: _%s_\n", e.MealType, escape(e.Title)))
		default:
			pb.WriteString(fmt.Sprintf("• %s: -\n", e.MealType))
		}
	}

	if len(relaxed) > 0 {
		pb.WriteString("\n⚠️ *Relaxed constraints*\n")
		for _, name := range sortedKeys(relaxed) {
			pb.WriteString(fmt.Sprintf("• %s (%d)\n", escape(name), relaxed[name]))
		}
	}
	return pb.String()
}

// FormatUsageMarkdown renders daily token usage.
func FormatUsageMarkdown(usage []metrics.DailyUsage) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage Report*\n\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}
	return sb.String()
}

var escaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escape neutralises legacy Markdown control characters.
func escape(s string) string { return escaper.Replace(s) }

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
