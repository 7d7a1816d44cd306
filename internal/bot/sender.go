package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender отправляет сообщения через Telegram Bot API.
type Sender struct {
	api *telego.Bot
}

// NewSender создаёт отправителя сообщений.
func NewSender(api *telego.Bot) *Sender {
	return &Sender{api: api}
}

// SendText — утилита для отправки сообщений. Ошибка только логируется.
func (s *Sender) SendText(ctx context.Context, chatID int64, text string) {
	if _, err := s.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
