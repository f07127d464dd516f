package bot

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"avito-monitor-bot/internal/adapters/telegram"
	"avito-monitor-bot/internal/domain"
	"avito-monitor-bot/internal/infra/metrics"
)

// Notifier отправляет уведомления об объявлениях через Telegram.
type Notifier struct {
	bot Sender
	log zerolog.Logger
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт отправитель уведомлений.
func NewNotifier(bot Sender, log zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, log: log}
}

// Notify отправляет текст владельцу подписки, при необходимости частями.
func (n *Notifier) Notify(ownerID int64, text string) error {
	for _, part := range telegram.SplitMessage(text) {
		msg := tgbotapi.NewMessage(ownerID, part)
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_notification", strconv.FormatInt(ownerID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			n.log.Error().Err(err).Int64("owner", ownerID).Msg("не удалось доставить уведомление")
			return err
		}
	}
	return nil
}
