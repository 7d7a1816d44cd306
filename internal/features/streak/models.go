// Package streak управляет стриками «значимой активности», щитами заморозки
// и разовыми наградами за вехи.
// models.go описывает записи, которые хранятся по userId, и результат обновления.
package streak

import "time"

// StreakRecord — запись стрика пользователя. Создаётся лениво при первой активности.
type StreakRecord struct {
	UserID             string    `json:"userId"`
	CurrentStreak      int       `json:"currentStreak"`      // Текущая серия (дней подряд)
	LongestStreak      int       `json:"longestStreak"`      // Личный рекорд, никогда не убывает
	LastMeaningfulDate *string   `json:"lastMeaningfulDate"` // Последний день значимой активности
	LastCheckInDate    *string   `json:"lastCheckInDate"`    // Последний день отметки
	FreezeShields      int       `json:"freezeShields"`      // Доступные щиты заморозки
	UpdatedAt          time.Time `json:"updatedAt"`

	// Version — номер версии для оптимистичной блокировки. 0 — записи ещё нет в хранилище.
	Version int64 `json:"-"`
}

// NewStreakRecord возвращает пустую запись (все счётчики 0, даты null).
func NewStreakRecord(userID string) *StreakRecord {
	return &StreakRecord{UserID: userID}
}

// Clone возвращает глубокую копию записи.
func (s *StreakRecord) Clone() *StreakRecord {
	if s == nil {
		return nil
	}
	c := *s
	c.LastMeaningfulDate = cloneString(s.LastMeaningfulDate)
	c.LastCheckInDate = cloneString(s.LastCheckInDate)
	return &c
}

// RewardRecord — открытые награды пользователя.
type RewardRecord struct {
	UserID              string       `json:"userId"`
	UnlockedRewards     []RewardType `json:"unlockedRewards"`     // Без повторов, в порядке открытия
	ActivePremiumUntil  *time.Time   `json:"activePremiumUntil"`  // Окончание премиума
	LastRewardClaimedAt *time.Time   `json:"lastRewardClaimedAt"` // Время последнего открытия
	UpdatedAt           time.Time    `json:"updatedAt"`

	Version int64 `json:"-"`
}

// NewRewardRecord возвращает пустую запись наград.
func NewRewardRecord(userID string) *RewardRecord {
	return &RewardRecord{UserID: userID, UnlockedRewards: []RewardType{}}
}

// Clone возвращает глубокую копию записи.
func (r *RewardRecord) Clone() *RewardRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.UnlockedRewards = append(make([]RewardType, 0, len(r.UnlockedRewards)), r.UnlockedRewards...)
	c.ActivePremiumUntil = cloneTime(r.ActivePremiumUntil)
	c.LastRewardClaimedAt = cloneTime(r.LastRewardClaimedAt)
	return &c
}

// HasReward — открыта ли награда t.
func (r *RewardRecord) HasReward(t RewardType) bool {
	for _, u := range r.UnlockedRewards {
		if u == t {
			return true
		}
	}
	return false
}

// HasActivePremium — действует ли премиум в момент now.
func (r *RewardRecord) HasActivePremium(now time.Time) bool {
	return r.ActivePremiumUntil != nil && r.ActivePremiumUntil.After(now)
}

// Result — то, что движок сообщает вызывающему после обновления.
type Result struct {
	CurrentStreak  int         `json:"currentStreak"`
	LongestStreak  int         `json:"longestStreak"`
	FreezeUsed     bool        `json:"freezeUsed"`
	RewardUnlocked *RewardType `json:"rewardUnlocked"`
	// RewardsUnlocked — все награды, открытые этим обновлением (обычно одна)
	RewardsUnlocked []RewardType `json:"rewardsUnlocked,omitempty"`
	// FreezeShields — остаток щитов после обновления
	FreezeShields int `json:"freezeShields"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
