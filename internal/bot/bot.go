// Package bot содержит Telegram-фронтенд стрик-сервиса: long polling,
// разбор команд и маршрутизацию к обработчикам стрика.
package bot

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/bot/filters"
	"serotonyl.ru/wellness-streaks/internal/bot/middleware"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
	"serotonyl.ru/wellness-streaks/internal/pkg/ratelimit"
)

// StreakHandler — обработчики стрик-команд (реализует streak.Handler).
type StreakHandler interface {
	HandleActivity(ctx context.Context, chatID, telegramID int64, activity streak.ActivityType)
	HandleStreak(ctx context.Context, chatID, telegramID int64)
	HandleRewards(ctx context.Context, chatID, telegramID int64)
}

// activityCommands — команды, которые записывают активность.
var activityCommands = map[string]streak.ActivityType{
	"journal":  streak.ActivityJournalEntry,
	"coping":   streak.ActivityCopingToolCompleted,
	"exercise": streak.ActivityGuidedExerciseCompleted,
	"chat":     streak.ActivityAIChatMeaningfulSession,
	"checkin":  streak.ActivityDailyCheckIn,
}

const helpText = `🔥 Огонек — серия дней с заботой о себе.

Записать активность:
/journal — запись в дневнике
/coping — упражнение от стресса
/exercise — guided-практика
/chat — разговор с помощником
/checkin — отметка настроения (стрик не растит, но и не даёт ему сгореть сразу)

Посмотреть:
/streak — текущая серия и рекорд
/rewards — открытые награды`

// Bot — главная структура бота.
type Bot struct {
	api *telego.Bot
	cfg *config.Config

	chatFilter    *filters.ChatFilter
	rateLimiter   *ratelimit.RateLimiter
	streakHandler StreakHandler
	sender        streak.Sender

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(api *telego.Bot, cfg *config.Config, streakHandler StreakHandler, sender streak.Sender) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		chatFilter:    filters.NewChatFilter(),
		rateLimiter:   ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow),
		streakHandler: streakHandler,
		sender:        sender,
		parser:        NewCommandParser(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout:        b.cfg.BotUpdateTimeoutSeconds,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	message := update.Message
	if message == nil || message.Text == "" {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if !isCommand {
		return
	}

	userID := message.From.ID
	if !b.rateLimiter.Allow(streak.BotUserID(userID)) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")
	b.routeCommand(ctx, message.Chat.ID, userID, cmd)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string) {
	if activity, ok := activityCommands[cmd]; ok {
		b.streakHandler.HandleActivity(ctx, chatID, userID, activity)
		return
	}

	switch cmd {
	case "start", "help":
		b.sender.SendText(ctx, chatID, helpText)

	case "streak", "огонек":
		b.streakHandler.HandleStreak(ctx, chatID, userID)

	case "rewards", "награды":
		b.streakHandler.HandleRewards(ctx, chatID, userID)

	default:
		b.sender.SendText(ctx, chatID, "🤔 Не знаю такой команды. Список команд: /help")
	}
}

// CommandParser парсит команды с префиксами /, ! и .
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @имя_бота (/streak@my_bot) отбрасывается.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}

	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command, _, _ := strings.Cut(parts[0], "@")
	command = strings.ToLower(command)
	if command == "" {
		return "", nil, false
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return command, args, true
}
