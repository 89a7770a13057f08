package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"sibyl/internal/domain/trade"
	"sibyl/pkg/errors"
	"sibyl/pkg/logger"
)

// Notifier pushes trade notifications to a single Telegram chat. Delivery is
// best-effort; failures are logged and never propagated to the pipeline.
type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewNotifier creates a Telegram notifier for the given bot token and chat
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	if token == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "telegram bot token is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	log := logger.Get().With("component", "telegram_notifier")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Notifier{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(20), 30),
		log:     log,
	}, nil
}

// NotifyTrade sends a formatted message for one trade record
func (n *Notifier) NotifyTrade(ctx context.Context, record *trade.Record) {
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, formatTrade(record))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.api.Send(msg); err != nil {
		n.log.Warnf("Trade notification failed: %v", err)
	}
}

func formatTrade(record *trade.Record) string {
	icon := map[trade.Action]string{
		trade.ActionBuy:  "🟢",
		trade.ActionSell: "🔴",
		trade.ActionHold: "⚪",
	}[record.Decision]

	text := fmt.Sprintf(
		"%s *%s* BTC @ $%s\nConfidence: %.0f%%\n%s",
		icon,
		record.Decision,
		humanize.CommafWithDigits(record.Price, 2),
		record.Confidence*100,
		record.Rationale,
	)

	if record.Decision == trade.ActionSell && record.ProfitLoss != nil {
		text += fmt.Sprintf("\nP/L: $%s", humanize.CommafWithDigits(*record.ProfitLoss, 2))
	}

	return text
}
