// Package filters решает, какие сообщения бот вообще обрабатывает.
package filters

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только личные сообщения от пользователей:
// стрик личный, в группах бот молчит.
type ChatFilter struct{}

func NewChatFilter() *ChatFilter {
	return &ChatFilter{}
}

func (f *ChatFilter) CheckAccess(message *telego.Message) bool {
	if message == nil {
		log.WithField("component", "ChatFilter").Warn("nil message")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
	})

	if message.From == nil {
		logger.Warn("nil message.From (service/channel message?)")
		return false
	}
	if message.From.IsBot {
		logger.WithField("user_id", message.From.ID).Debug("deny: bot")
		return false
	}
	if message.Chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: not private")
		return false
	}

	logger.WithField("user_id", message.From.ID).Debug("allow: private")
	return true
}
