package alerting

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"push-service/internal/config"
	"push-service/internal/logging"
	"push-service/internal/models"
)

// TelegramNotifier posts operator alerts for permanently failed retry
// chains. It is optional: without a bot token it becomes a no-op.
type TelegramNotifier struct {
	cfg     config.Config
	logger  *logging.Logger
	limiter *rate.Limiter
}

func NewTelegramNotifier(cfg config.Config, logger *logging.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:    cfg,
		logger: logger,
		// Telegram bots tolerate roughly one message per second per chat.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// Enabled reports whether operator alerting is configured.
func (t *TelegramNotifier) Enabled() bool {
	return t.cfg.Telegram.BotToken != "" && t.cfg.Telegram.ChatID != 0
}

// PermanentFailure sends a best-effort alert about an exhausted retry chain.
func (t *TelegramNotifier) PermanentFailure(ctx context.Context, intent models.RetryIntent) {
	if !t.Enabled() {
		return
	}
	if err := t.limiter.Wait(ctx); err != nil {
		t.logger.Warnf("Telegram alert rate limit: %v", err)
		return
	}

	b, err := bot.New(t.cfg.Telegram.BotToken)
	if err != nil {
		t.logger.Errorf("Failed to initialize Telegram bot: %v", err)
		return
	}

	text := fmt.Sprintf(
		"*Push delivery permanently failed*\nUser: %d\nType: %s\nTitle: %s\nAttempts: %d/%d\nLast error: %s",
		intent.UserID, intent.Type, intent.Title,
		intent.AttemptCount, intent.MaxAttempts, intent.LastError,
	)
	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.cfg.Telegram.ChatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		t.logger.Errorf("Failed to send Telegram alert for intent %s: %v", intent.ID, err)
		return
	}
	t.logger.Infof("Sent Telegram alert for permanently failed intent %s", intent.ID)
}
