// Package streak — store.go описывает хранилище записей и его
// реализацию в памяти (для тестов и локального запуска без БД).
package streak

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/wellness-streaks/internal/common"
)

// RecordStore — хранилище записей стрика и наград по userId.
//
// Get* возвращают (nil, nil), если записи ещё нет.
// Save сохраняет обе записи атомарно (nil — запись не трогаем) и сверяет
// Version каждой: если запись в хранилище уже другая — ErrVersionConflict,
// и ни одна из записей не сохраняется. После успеха Version записей растёт на 1.
type RecordStore interface {
	GetStreak(ctx context.Context, userID string) (*StreakRecord, error)
	GetRewards(ctx context.Context, userID string) (*RewardRecord, error)
	Save(ctx context.Context, streak *StreakRecord, reward *RewardRecord) error
}

// Store — хранилище с поиском истёкших премиумов (для фоновой очистки).
type Store interface {
	RecordStore
	ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// MemoryStore хранит записи в памяти процесса.
type MemoryStore struct {
	mu      sync.RWMutex
	streaks map[string]*StreakRecord
	rewards map[string]*RewardRecord
}

// NewMemoryStore создаёт пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streaks: make(map[string]*StreakRecord),
		rewards: make(map[string]*RewardRecord),
	}
}

// GetStreak возвращает копию записи стрика.
func (m *MemoryStore) GetStreak(ctx context.Context, userID string) (*StreakRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streaks[userID].Clone(), nil
}

// GetRewards возвращает копию записи наград.
func (m *MemoryStore) GetRewards(ctx context.Context, userID string) (*RewardRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rewards[userID].Clone(), nil
}

// Save сохраняет записи, проверяя версии обеих до записи любой из них.
func (m *MemoryStore) Save(ctx context.Context, streak *StreakRecord, reward *RewardRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if streak != nil && storedVersion(m.streaks[streak.UserID]) != streak.Version {
		return common.ErrVersionConflict
	}
	if reward != nil && storedRewardVersion(m.rewards[reward.UserID]) != reward.Version {
		return common.ErrVersionConflict
	}

	if streak != nil {
		streak.Version++
		m.streaks[streak.UserID] = streak.Clone()
	}
	if reward != nil {
		reward.Version++
		m.rewards[reward.UserID] = reward.Clone()
	}
	return nil
}

// ListExpiredPremium возвращает пользователей, у которых премиум закончился к now.
func (m *MemoryStore) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, r := range m.rewards {
		if r.ActivePremiumUntil != nil && !r.ActivePremiumUntil.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func storedVersion(s *StreakRecord) int64 {
	if s == nil {
		return 0
	}
	return s.Version
}

func storedRewardVersion(r *RewardRecord) int64 {
	if r == nil {
		return 0
	}
	return r.Version
}
