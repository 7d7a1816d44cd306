// Package streak — handlers.go обрабатывает команды бота:
// /journal, /coping, /exercise, /chat, /checkin, /streak, /rewards.
package streak

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/config"
)

// Sender отправляет текст в чат. Реализуется ботом.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string)
}

// Handler обрабатывает команды стрик-системы.
type Handler struct {
	service  *Service
	sender   Sender
	timezone string
}

// NewHandler создаёт новый обработчик стрик-команд.
// Часовой пояс пользователей бота — APP_TIMEZONE.
func NewHandler(service *Service, sender Sender, cfg *config.Config) *Handler {
	return &Handler{service: service, sender: sender, timezone: cfg.AppTimezone}
}

// rewardTitles — названия наград для ответов бота.
var rewardTitles = map[RewardType]string{
	RewardFreezeShield:         "🛡 Щит заморозки",
	RewardDeepJournalUnlock:    "📓 Глубокий дневник",
	RewardAnxietyToolkitUnlock: "🧰 Набор от тревоги",
	RewardPremium7Days:         "⭐ Премиум на 7 дней",
	RewardPremium14Days:        "🌟 Премиум на 14 дней",
}

// RewardTitle возвращает читаемое название награды.
func RewardTitle(t RewardType) string {
	if title, ok := rewardTitles[t]; ok {
		return title
	}
	return string(t)
}

// BotUserID — userId пользователя Telegram в пространстве идентификаторов сервиса.
func BotUserID(telegramID int64) string {
	return "tg:" + strconv.FormatInt(telegramID, 10)
}

// HandleActivity записывает активность и отвечает итогом.
//
// Формат ответа:
//
//	🔥 Серия: 4 дня (рекорд: 9 дней)
//	🛡 Пропуск прощён щитом заморозки
//	🎁 Открыта награда: 🛡 Щит заморозки
func (h *Handler) HandleActivity(ctx context.Context, chatID, telegramID int64, activity ActivityType) {
	res, err := h.service.Update(ctx, BotUserID(telegramID), string(activity), h.timezone)
	if err != nil {
		switch {
		case common.IsRetryable(err):
			log.WithError(err).WithField("user_id", telegramID).Warn("Повторяемая ошибка обновления стрика")
			h.sender.SendText(ctx, chatID, "⏳ Сервис занят, попробуй ещё раз через минуту")
		case errors.Is(err, common.ErrUnknownActivityType):
			h.sender.SendText(ctx, chatID, "❌ Неизвестная активность")
		default:
			log.WithError(err).WithField("user_id", telegramID).Error("Ошибка обновления стрика")
			h.sender.SendText(ctx, chatID, "❌ Ошибка записи активности")
		}
		return
	}

	h.sender.SendText(ctx, chatID, FormatResult(res, h.service.Catalog()))
}

// HandleStreak показывает текущий стрик.
//
// Формат ответа:
//
//	🔥 Твой огонек
//	Текущая серия: 8 дней
//	Рекорд: 12 дней
//	Щиты заморозки: 1 щит
//	До награды «📓 Глубокий дневник»: 1 день
func (h *Handler) HandleStreak(ctx context.Context, chatID, telegramID int64) {
	rec, err := h.service.GetStreak(ctx, BotUserID(telegramID))
	if err != nil {
		log.WithError(err).WithField("user_id", telegramID).Error("Ошибка получения стрика")
		h.sender.SendText(ctx, chatID, "❌ Ошибка получения стрика")
		return
	}

	var sb strings.Builder
	sb.WriteString("🔥 Твой огонек\n")
	sb.WriteString(fmt.Sprintf("Текущая серия: %s\n", common.FormatDays(rec.CurrentStreak)))
	sb.WriteString(fmt.Sprintf("Рекорд: %s\n", common.FormatDays(rec.LongestStreak)))
	sb.WriteString(fmt.Sprintf("Щиты заморозки: %s", common.FormatShields(rec.FreezeShields)))
	if next, ok := h.service.Catalog().Next(rec.CurrentStreak); ok {
		left := next.Streak - rec.CurrentStreak
		sb.WriteString(fmt.Sprintf("\nДо награды «%s»: %s", RewardTitle(next.Type), common.FormatDays(left)))
	}
	h.sender.SendText(ctx, chatID, sb.String())
}

// HandleRewards показывает открытые награды.
func (h *Handler) HandleRewards(ctx context.Context, chatID, telegramID int64) {
	rec, err := h.service.GetRewards(ctx, BotUserID(telegramID))
	if err != nil {
		log.WithError(err).WithField("user_id", telegramID).Error("Ошибка получения наград")
		h.sender.SendText(ctx, chatID, "❌ Ошибка получения наград")
		return
	}

	if len(rec.UnlockedRewards) == 0 {
		h.sender.SendText(ctx, chatID, "🎁 Наград пока нет. Первая — через 3 дня подряд!")
		return
	}

	loc, err := h.service.Resolver().Location(h.timezone)
	if err != nil {
		loc = nil
	}

	var sb strings.Builder
	sb.WriteString("🎁 Твои награды:\n")
	for _, t := range rec.UnlockedRewards {
		sb.WriteString("• " + RewardTitle(t) + "\n")
	}
	if rec.ActivePremiumUntil != nil && rec.HasActivePremium(h.service.now()) {
		sb.WriteString(fmt.Sprintf("\nПремиум активен до %s", common.FormatDateTime(*rec.ActivePremiumUntil, loc)))
	}
	h.sender.SendText(ctx, chatID, strings.TrimRight(sb.String(), "\n"))
}

// FormatResult собирает ответ на записанную активность.
func FormatResult(res *Result, catalog Catalog) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔥 Серия: %s (рекорд: %s)",
		common.FormatDays(res.CurrentStreak), common.FormatDays(res.LongestStreak)))

	if res.FreezeUsed {
		sb.WriteString(fmt.Sprintf("\n🛡 Пропуск прощён щитом заморозки, осталось: %s",
			common.FormatShields(res.FreezeShields)))
	}
	for _, t := range res.RewardsUnlocked {
		sb.WriteString("\n🎁 Открыта награда: " + RewardTitle(t))
	}
	if len(res.RewardsUnlocked) == 0 {
		if next, ok := catalog.Next(res.CurrentStreak); ok && res.CurrentStreak > 0 {
			sb.WriteString(fmt.Sprintf("\nДо следующей награды: %s", common.FormatDays(next.Streak-res.CurrentStreak)))
		}
	}
	return sb.String()
}
