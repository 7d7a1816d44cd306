// Package streak — engine.go содержит функцию перехода состояния стрика.
// Движок чистый: он не ходит в хранилище и не смотрит на часы,
// всё (записи, ключи дней, момент now) приходит аргументами.
package streak

import "time"

// Outcome — новое состояние записей и отчёт для вызывающего.
type Outcome struct {
	Streak *StreakRecord
	Reward *RewardRecord
	Result Result
	// Changed == false — сохранять нечего (повторная активность в тот же день)
	Changed bool
}

// Engine применяет активность к записям пользователя.
type Engine struct {
	catalog Catalog
}

// NewEngine создаёт движок с заданным каталогом вех.
func NewEngine(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog возвращает каталог вех движка.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Apply вычисляет новое состояние. Входные записи не изменяются.
//
// Алгоритм:
//  1. Значимая активность:
//     - уже была сегодня → ничего не меняем;
//     - была вчера или это первая активность → стрик +1;
//     - пропущен день и есть щит → тратим щит, стрик не растёт
//       (даже нулевой: щит тратится при любом стрике);
//     - иначе → стрик начинается заново с 1.
//  2. Отметка: всегда запоминаем день. При первой отметке за день, если
//     значимой активности не было ни вчера, ни сегодня → тратим щит
//     или обнуляем стрик (в 0, не в 1).
//  3. Вехи: точное совпадение стрика с порогом, каждая награда — один раз.
func (e *Engine) Apply(streak *StreakRecord, reward *RewardRecord, activity Activity, today, yesterday string, now time.Time) Outcome {
	s := streak.Clone()
	r := reward.Clone()
	var res Result
	changed := false

	switch activity.Kind {
	case KindMeaningful:
		// Шаг 1: тот же день (или день раньше уже засчитанного при смене пояса)
		if s.LastMeaningfulDate != nil && !dayAfter(today, *s.LastMeaningfulDate) {
			return Outcome{Streak: s, Reward: r, Result: resultOf(s, res)}
		}

		switch {
		case s.LastMeaningfulDate == nil || *s.LastMeaningfulDate == yesterday:
			s.CurrentStreak++
		case s.FreezeShields > 0:
			s.FreezeShields--
			res.FreezeUsed = true
		default:
			s.CurrentStreak = 1
		}

		s.LastMeaningfulDate = cloneString(&today)
		if s.CurrentStreak > s.LongestStreak {
			s.LongestStreak = s.CurrentStreak
		}
		changed = true

	case KindCheckIn:
		// Шаг 2: правило «давности» срабатывает только на первую отметку за день,
		// иначе каждая отметка съедала бы по щиту
		firstToday := s.LastCheckInDate == nil || dayAfter(today, *s.LastCheckInDate)
		if s.LastCheckInDate == nil || *s.LastCheckInDate != today {
			s.LastCheckInDate = cloneString(&today)
			changed = true
		}

		if firstToday && !recentlyMeaningful(s, today, yesterday) {
			switch {
			case s.FreezeShields > 0:
				s.FreezeShields--
				res.FreezeUsed = true
			default:
				s.CurrentStreak = 0
			}
		}
	}

	// Шаг 3: вехи
	for _, m := range e.catalog.At(s.CurrentStreak) {
		if r.HasReward(m.Type) {
			continue
		}
		r.UnlockedRewards = append(r.UnlockedRewards, m.Type)
		r.LastRewardClaimedAt = cloneTime(&now)

		if shields := m.ShieldGrant(); shields > 0 {
			s.FreezeShields += shields
		}
		if days := m.PremiumDays(); days > 0 {
			// Перезаписываем, а не продлеваем действующий премиум
			until := now.AddDate(0, 0, days)
			r.ActivePremiumUntil = &until
		}

		t := m.Type
		res.RewardUnlocked = &t
		res.RewardsUnlocked = append(res.RewardsUnlocked, t)
		r.UpdatedAt = now
		changed = true
	}

	if changed {
		s.UpdatedAt = now
	}
	return Outcome{Streak: s, Reward: r, Result: resultOf(s, res), Changed: changed}
}

// recentlyMeaningful — была ли значимая активность вчера, сегодня
// (или «позже сегодня» после смены часового пояса).
func recentlyMeaningful(s *StreakRecord, today, yesterday string) bool {
	if s.LastMeaningfulDate == nil {
		return false
	}
	last := *s.LastMeaningfulDate
	return last == yesterday || !dayAfter(today, last)
}

func resultOf(s *StreakRecord, res Result) Result {
	res.CurrentStreak = s.CurrentStreak
	res.LongestStreak = s.LongestStreak
	res.FreezeShields = s.FreezeShields
	return res
}
