// Package streak — service.go связывает движок с хранилищем:
// блокировка пользователя, чтение → переход → запись с повтором при конфликте,
// таймауты вызовов хранилища, кэш для чтения.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/pkg/caching"
)

// expiredPremiumBatch — сколько пользователей обрабатывает один проход очистки.
const expiredPremiumBatch = 500

// cacheRedeleteMargin добавляется к таймауту хранилища перед повторным
// удалением ключей из кэша.
const cacheRedeleteMargin = 500 * time.Millisecond

// Service управляет стриками и наградами.
type Service struct {
	engine   *Engine
	resolver *DayKeyResolver
	store    Store
	cache    caching.Cache
	locks    *userLocks
	now      func() time.Time

	maxAttempts  int
	storeTimeout time.Duration
	cacheTTL     time.Duration

	// redeleteAfter — через сколько после сохранения ключи кэша удаляются
	// ещё раз: чтение, начатое до сохранения, успевает завершиться
	redeleteAfter time.Duration
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет часы (в тестах).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCache включает кэш чтения.
func WithCache(c caching.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// NewService создаёт сервис стриков.
func NewService(engine *Engine, store Store, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		engine:       engine,
		resolver:     NewDayKeyResolver(),
		store:        store,
		cache:        caching.Noop{},
		locks:        newUserLocks(),
		now:          time.Now,
		maxAttempts:  cfg.StreakMaxAttempts,
		storeTimeout: cfg.StreakStoreTimeout,
		cacheTTL:     cfg.CacheTTL,
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 3
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 3 * time.Second
	}
	s.redeleteAfter = s.storeTimeout + cacheRedeleteMargin
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog возвращает каталог вех.
func (s *Service) Catalog() Catalog {
	return s.engine.Catalog()
}

// Resolver возвращает резолвер ключей дней.
func (s *Service) Resolver() *DayKeyResolver {
	return s.resolver
}

// Update применяет активность activityType пользователя userID в поясе timezone.
//
// Алгоритм:
//  1. Проверяем тип активности и часовой пояс (до любых обращений к хранилищу)
//  2. Считаем «сегодня» и «вчера» в поясе пользователя
//  3. Берём блокировку пользователя в процессе
//  4. Читаем записи, применяем движок, сохраняем обе записи атомарно
//  5. При конфликте версий повторяем шаг 4 (не больше maxAttempts раз)
func (s *Service) Update(ctx context.Context, userID, activityType, timezone string) (*Result, error) {
	// Шаг 1
	activity, err := ParseActivity(activityType)
	if err != nil {
		return nil, err
	}

	// Шаг 2
	now := s.now()
	today, yesterday, err := s.resolver.Days(now, timezone)
	if err != nil {
		return nil, err
	}

	// Шаг 3
	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer unlock()

	// Шаги 4-5
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		streak, reward, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		out := s.engine.Apply(streak, reward, activity, today, yesterday, now)
		if !out.Changed {
			log.WithFields(log.Fields{
				"user_id":  userID,
				"activity": activity.Type,
				"day":      today,
			}).Debug("Активность уже засчитана сегодня")
			return &out.Result, nil
		}

		err = s.save(ctx, out.Streak, out.Reward)
		if err == nil {
			s.invalidate(ctx, userID)
			logOutcome(userID, activity, today, streak, out)
			return &out.Result, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}

		log.WithFields(log.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Warn("Конфликт версий при сохранении стрика, повторяем")
	}

	return nil, fmt.Errorf("%w: %d попыток", common.ErrConcurrentUpdateConflict, s.maxAttempts)
}

// GetStreak возвращает запись стрика или пустую запись, если её ещё нет.
func (s *Service) GetStreak(ctx context.Context, userID string) (*StreakRecord, error) {
	return caching.UseCache(ctx, s.cache, StreakCacheKey(userID), s.cacheTTL, func() (*StreakRecord, error) {
		ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()

		rec, err := s.store.GetStreak(ctx, userID)
		if err != nil {
			return nil, unavailable(err)
		}
		if rec == nil {
			rec = NewStreakRecord(userID)
		}
		return rec, nil
	})
}

// GetRewards возвращает запись наград или пустую ({unlockedRewards: [], activePremiumUntil: null}).
func (s *Service) GetRewards(ctx context.Context, userID string) (*RewardRecord, error) {
	return caching.UseCache(ctx, s.cache, RewardsCacheKey(userID), s.cacheTTL, func() (*RewardRecord, error) {
		ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		defer cancel()

		rec, err := s.store.GetRewards(ctx, userID)
		if err != nil {
			return nil, unavailable(err)
		}
		if rec == nil {
			rec = NewRewardRecord(userID)
		}
		if rec.UnlockedRewards == nil {
			rec.UnlockedRewards = []RewardType{}
		}
		return rec, nil
	})
}

// GrantShields начисляет n щитов заморозки (админ-операция).
func (s *Service) GrantShields(ctx context.Context, userID string, n int) (*StreakRecord, error) {
	if n <= 0 {
		return nil, common.ErrInvalidAmount
	}

	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		return nil, unavailable(err)
	}
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		streak, _, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}

		updated := streak.Clone()
		updated.FreezeShields += n
		updated.UpdatedAt = s.now()

		err = s.save(ctx, updated, nil)
		if err == nil {
			s.invalidate(ctx, userID)
			log.WithFields(log.Fields{
				"user_id": userID,
				"granted": n,
				"shields": updated.FreezeShields,
			}).Info("Начислены щиты заморозки")
			return updated, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %d попыток", common.ErrConcurrentUpdateConflict, s.maxAttempts)
}

// ExpirePremium сбрасывает activePremiumUntil у всех, чей премиум закончился.
// Запускается кроном. Возвращает число очищенных записей.
func (s *Service) ExpirePremium(ctx context.Context) (int, error) {
	now := s.now()

	listCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	ids, err := s.store.ListExpiredPremium(listCtx, now, expiredPremiumBatch)
	cancel()
	if err != nil {
		return 0, unavailable(err)
	}

	cleared := 0
	for _, userID := range ids {
		ok, err := s.expireOne(ctx, userID, now)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка очистки премиума")
			continue
		}
		if ok {
			cleared++
		}
	}
	return cleared, nil
}

func (s *Service) expireOne(ctx context.Context, userID string, now time.Time) (bool, error) {
	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		return false, unavailable(err)
	}
	defer unlock()

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		_, reward, err := s.load(ctx, userID)
		if err != nil {
			return false, err
		}
		// Премиум могли продлить между поиском и блокировкой
		if reward.ActivePremiumUntil == nil || reward.ActivePremiumUntil.After(now) {
			return false, nil
		}

		updated := reward.Clone()
		updated.ActivePremiumUntil = nil
		updated.UpdatedAt = now

		err = s.save(ctx, nil, updated)
		if err == nil {
			s.invalidate(ctx, userID)
			return true, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return false, err
		}
	}
	return false, fmt.Errorf("%w: %d попыток", common.ErrConcurrentUpdateConflict, s.maxAttempts)
}

// load читает обе записи (создавая пустые при отсутствии) под таймаутом.
func (s *Service) load(ctx context.Context, userID string) (*StreakRecord, *RewardRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	streak, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	if streak == nil {
		streak = NewStreakRecord(userID)
	}

	reward, err := s.store.GetRewards(ctx, userID)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	if reward == nil {
		reward = NewRewardRecord(userID)
	}
	return streak, reward, nil
}

// save сохраняет записи под таймаутом. Конфликт версий возвращается как есть.
func (s *Service) save(ctx context.Context, streak *StreakRecord, reward *RewardRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := s.store.Save(ctx, streak, reward)
	if err == nil || errors.Is(err, common.ErrVersionConflict) {
		return err
	}
	return unavailable(err)
}

// invalidate удаляет записи пользователя из кэша. Ошибка кэша не ломает запрос.
//
// Чтение, которое промахнулось мимо кэша до сохранения, может положить туда
// старую запись уже после первого удаления. Такое чтение ограничено таймаутом
// хранилища, поэтому через redeleteAfter ключи удаляются ещё раз.
func (s *Service) invalidate(ctx context.Context, userID string) {
	keys := []string{StreakCacheKey(userID), RewardsCacheKey(userID)}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось сбросить кэш")
	}

	if _, ok := s.cache.(caching.Noop); ok {
		return
	}
	time.AfterFunc(s.redeleteAfter, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
		defer cancel()
		if err := s.cache.Delete(ctx, keys...); err != nil {
			log.WithError(err).WithField("user_id", userID).Debug("Повторный сброс кэша не удался")
		}
	})
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", common.ErrRecordStoreUnavailable, err)
}

// StreakCacheKey — ключ кэша записи стрика.
func StreakCacheKey(userID string) string {
	return "streak:" + userID
}

// RewardsCacheKey — ключ кэша записи наград.
func RewardsCacheKey(userID string) string {
	return "rewards:" + userID
}

func logOutcome(userID string, activity Activity, today string, before *StreakRecord, out Outcome) {
	fields := log.Fields{
		"user_id":  userID,
		"activity": activity.Type,
		"day":      today,
		"streak":   out.Result.CurrentStreak,
		"longest":  out.Result.LongestStreak,
		"shields":  out.Result.FreezeShields,
	}

	switch {
	case out.Result.FreezeUsed:
		log.WithFields(fields).Info("Пропуск прощён щитом заморозки")
	case out.Result.CurrentStreak < before.CurrentStreak:
		log.WithFields(fields).WithField("previous", before.CurrentStreak).Info("Стрик сброшен")
	case out.Result.CurrentStreak > before.CurrentStreak:
		log.WithFields(fields).Debug("Стрик увеличен")
	default:
		log.WithFields(fields).Debug("Активность записана")
	}

	for _, t := range out.Result.RewardsUnlocked {
		log.WithFields(log.Fields{
			"user_id": userID,
			"reward":  t,
			"streak":  out.Result.CurrentStreak,
		}).Info("Открыта награда за веху")
	}
}
