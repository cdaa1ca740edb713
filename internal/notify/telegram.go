package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAPI is the part of the bot client used for notifications.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender posts admin notifications to one chat.
type TelegramSender struct {
	api    TelegramAPI
	chatID int64
}

// NewTelegramSender connects a bot with token.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramSenderWithAPI(bot, chatID), nil
}

// NewTelegramSenderWithAPI wraps an existing bot client.
func NewTelegramSenderWithAPI(api TelegramAPI, chatID int64) *TelegramSender {
	return &TelegramSender{api: api, chatID: chatID}
}

// SendText posts text to the admin chat.
func (t *TelegramSender) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
