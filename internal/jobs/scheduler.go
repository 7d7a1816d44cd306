// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: периодическая очистка
// истёкших премиумов.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/config"
)

// PremiumExpirer сбрасывает истёкшие премиумы (реализует streak.Service).
type PremiumExpirer interface {
	ExpirePremium(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	expirer  PremiumExpirer
	schedule string
	location *time.Location
}

// NewScheduler создаёт планировщик задач в часовом поясе APP_TIMEZONE.
func NewScheduler(expirer PremiumExpirer, cfg *config.Config) *Scheduler {
	loc, err := time.LoadLocation(cfg.AppTimezone)
	if err != nil {
		log.WithError(err).Warnf("Не удалось загрузить %s, используем UTC", cfg.AppTimezone)
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		expirer:  expirer,
		schedule: cfg.PremiumSweepSchedule,
		location: loc,
	}
}

// Start регистрирует и запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.expirePremium(ctx) }); err != nil {
		return fmt.Errorf("некорректное расписание PREMIUM_SWEEP_SCHEDULE %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithField("schedule", s.schedule).Infof("Планировщик задач запущен (%s)", s.location)
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

func (s *Scheduler) expirePremium(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log.Debug("[CRON] Очистка истёкших премиумов")

	n, err := s.expirer.ExpirePremium(ctx)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки премиумов")
		return
	}
	if n > 0 {
		log.WithField("cleared", n).Info("[CRON] Истёкшие премиумы сброшены")
	}
}
