package notification

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender pushes a text message to a telegram chat.
type TelegramSender interface {
	SendText(chatID int64, text string) error
}

// TelegramNotifier delivers notifications through the Telegram Bot API.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier authorizes the bot with the given token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

// SendText pushes a plain-text message to the chat.
func (t *TelegramNotifier) SendText(chatID int64, text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
