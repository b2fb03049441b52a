package audit

import (
	"context"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier delivers report documents to manager chats.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	managers []int64
}

// NewTelegramNotifier creates a notifier sending to the given manager
// chat IDs.
func NewTelegramNotifier(token string, managers []int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, managers: managers}, nil
}

// SendDocument sends the document to every configured manager. The data
// is buffered once so all managers receive the same bytes.
func (n *TelegramNotifier) SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error {
	payload, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var firstErr error
	for _, chatID := range n.managers {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  filename,
			Bytes: payload,
		})
		doc.Caption = caption

		if _, err := n.bot.Send(doc); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("send document to %d: %w", chatID, err)
		}
	}
	return firstErr
}
