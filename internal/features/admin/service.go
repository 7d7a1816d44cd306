// Package admin — service.go содержит аутентификацию администратора
// и операции над записями пользователей.
package admin

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
	"serotonyl.ru/wellness-streaks/internal/pkg/ratelimit"
)

// Защита от перебора: 3 попытки в час на источник.
const (
	maxLoginAttempts   = 3
	loginAttemptWindow = time.Hour
)

// Service управляет админ-доступом.
type Service struct {
	streaks      *streak.Service
	passwordHash string
	attempts     *ratelimit.RateLimiter
	now          func() time.Time
}

// NewService создаёт админ-сервис.
func NewService(streaks *streak.Service, cfg *config.Config) *Service {
	return &Service{
		streaks:      streaks,
		passwordHash: cfg.AdminPasswordHash,
		attempts:     ratelimit.New(maxLoginAttempts, loginAttemptWindow),
		now:          time.Now,
	}
}

// Enabled — задан ли пароль администратора. Без него админ-API выключено.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// Close останавливает фоновую очистку счётчика попыток.
func (s *Service) Close() {
	s.attempts.Close()
}

// Authenticate проверяет пароль. source — откуда пришёл запрос (IP):
// после maxLoginAttempts попыток за час источник блокируется.
// Успешный вход сбрасывает счётчик.
func (s *Service) Authenticate(source, password string) error {
	if !s.Enabled() {
		return common.ErrUnauthorized
	}
	if !s.attempts.Allow(source) {
		log.WithField("source", source).Warn("Превышен лимит попыток входа администратора")
		return common.ErrTooManyAttempts
	}

	if !VerifyPassword(password, s.passwordHash) {
		log.WithField("source", source).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}

	s.attempts.Reset(source)
	return nil
}

// GetUser возвращает стрик и награды пользователя.
func (s *Service) GetUser(ctx context.Context, userID string) (*UserOverview, error) {
	rec, err := s.streaks.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	rewards, err := s.streaks.GetRewards(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserOverview{
		Streak:        rec,
		Rewards:       rewards,
		PremiumActive: rewards.HasActivePremium(s.now()),
	}, nil
}

// GrantShields начисляет пользователю щиты заморозки.
func (s *Service) GrantShields(ctx context.Context, userID string, count int) (*streak.StreakRecord, error) {
	rec, err := s.streaks.GrantShields(ctx, userID, count)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"count":   count,
	}).Info("Администратор начислил щиты")
	return rec, nil
}
