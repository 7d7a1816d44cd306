package streak

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/wellness-streaks/internal/common"
)

func TestMemoryStore_MissingRecords(t *testing.T) {
	m := NewMemoryStore()

	s, err := m.GetStreak(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, s)

	r, err := m.GetRewards(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestMemoryStore_SaveBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	s := NewStreakRecord("u1")
	s.CurrentStreak = 1
	r := NewRewardRecord("u1")
	require.NoError(t, m.Save(ctx, s, r))
	assert.Equal(t, int64(1), s.Version)
	assert.Equal(t, int64(1), r.Version)

	stored, err := m.GetStreak(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentStreak)
	assert.Equal(t, int64(1), stored.Version)

	// Изменение возвращённой копии не трогает хранилище
	stored.CurrentStreak = 99
	again, _ := m.GetStreak(ctx, "u1")
	assert.Equal(t, 1, again.CurrentStreak)
}

func TestMemoryStore_ConflictLeavesBothRecords(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Save(ctx, NewStreakRecord("u1"), NewRewardRecord("u1")))

	// Устаревшая версия наград: не должна сохраниться и запись стрика
	s, _ := m.GetStreak(ctx, "u1")
	s.CurrentStreak = 5
	stale := NewRewardRecord("u1")

	err := m.Save(ctx, s, stale)
	assert.ErrorIs(t, err, common.ErrVersionConflict)

	stored, _ := m.GetStreak(ctx, "u1")
	assert.Equal(t, 0, stored.CurrentStreak)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemoryStore()

	_, err := m.GetStreak(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.Save(ctx, NewStreakRecord("u1"), nil), context.Canceled)
}

func TestMemoryStore_ListExpiredPremium(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for id, until := range map[string]time.Time{
		"b": now.Add(-time.Hour),
		"a": now,
		"c": now.Add(time.Hour),
	} {
		r := NewRewardRecord(id)
		u := until
		r.ActivePremiumUntil = &u
		require.NoError(t, m.Save(ctx, nil, r))
	}
	require.NoError(t, m.Save(ctx, nil, NewRewardRecord("d")))

	ids, err := m.ListExpiredPremium(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = m.ListExpiredPremium(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestUserLocks(t *testing.T) {
	l := newUserLocks()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())

	// Второй захват ждёт и отваливается по таймауту
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Другой пользователь не блокируется
	other, err := l.Lock(ctx, "u2")
	require.NoError(t, err)
	other()

	unlock()
	assert.Equal(t, 0, l.size())
}

func TestUserLocks_Serializes(t *testing.T) {
	l := newUserLocks()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "u1")
			if err != nil {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.size())
}
