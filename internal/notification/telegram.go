package notification

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"github.com/brinegold/jarvis-settlement/internal/config"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

// Notifier sends ops alerts to the configured Telegram group. Settlement
// failures and partial transfers page a human; nothing here is on the
// request path's critical section.
type Notifier struct {
	botToken string
	chatID   int64
	enabled  bool
}

// NewNotifier creates a Notifier from config. With no bot token configured
// it degrades to a logged no-op so local runs do not need Telegram.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return &Notifier{enabled: false}
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		logger.GetLogger().WithError(err).Warn("Invalid Telegram chat id, notifications disabled")
		return &Notifier{enabled: false}
	}

	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   chatID,
		enabled:  true,
	}
}

// Send delivers a message to the ops group
func (n *Notifier) Send(msg string) error {
	if !n.enabled {
		logger.GetLogger().WithField("message", msg).Info("Telegram disabled, skipping ops alert")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(n.botToken)
	if err != nil {
		return err
	}

	if _, err := bot.Send(tgbotapi.NewMessage(n.chatID, msg)); err != nil {
		return err
	}
	return nil
}

// SendOrLog delivers a message and logs instead of failing the caller
func (n *Notifier) SendOrLog(msg string) {
	if err := n.Send(msg); err != nil {
		logger.GetLogger().WithError(err).WithField("message", msg).Error("Failed to send ops alert")
	}
}
