package reminders

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studiobook/internal/model"
)

// TelegramNotifier sends booking reminders as Telegram messages. The
// booking's user ID doubles as the Telegram chat ID, same as the rest of
// the notification flows.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a notifier from a bot token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

// SendReminder implements Notifier.
func (n *TelegramNotifier) SendReminder(ctx context.Context, booking model.Booking, room *model.Room) error {
	text := fmt.Sprintf(
		"Reminder: your booking in %s on %s starts at %s.",
		room.Name,
		booking.Date.Format("2006-01-02"),
		booking.StartTime,
	)

	msg := tgbotapi.NewMessage(booking.UserID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram reminder: %w", err)
	}
	return nil
}
