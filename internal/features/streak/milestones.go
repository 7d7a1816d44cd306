// Package streak — milestones.go содержит каталог вех: длина стрика → награда.
// Каталог — неизменяемое значение, которое передаётся движку при создании,
// поэтому в тестах пороги можно подменить.
package streak

import (
	"errors"
	"fmt"
	"sort"
)

// RewardType — идентификатор награды.
type RewardType string

const (
	RewardFreezeShield         RewardType = "FREEZE_SHIELD"
	RewardDeepJournalUnlock    RewardType = "DEEP_JOURNAL_UNLOCK"
	RewardAnxietyToolkitUnlock RewardType = "ANXIETY_TOOLKIT_UNLOCK"
	RewardPremium7Days         RewardType = "PREMIUM_UNLOCK_7_DAYS"
	RewardPremium14Days        RewardType = "PREMIUM_UNLOCK_14_DAYS"
)

// Milestone — веха: при первом достижении ровно Streak дней открывается Type.
// Value — числовая нагрузка: число щитов или дней премиума.
type Milestone struct {
	Streak int        `json:"streak"`
	Type   RewardType `json:"type"`
	Value  int        `json:"value,omitempty"`
}

// ShieldGrant — сколько щитов заморозки даёт веха (0, если не щит).
func (m Milestone) ShieldGrant() int {
	if m.Type != RewardFreezeShield {
		return 0
	}
	if m.Value > 0 {
		return m.Value
	}
	return 1
}

// PremiumDays — на сколько дней веха открывает премиум (0, если не премиум).
func (m Milestone) PremiumDays() int {
	var days int
	switch m.Type {
	case RewardPremium7Days:
		days = 7
	case RewardPremium14Days:
		days = 14
	default:
		return 0
	}
	if m.Value > 0 {
		days = m.Value
	}
	return days
}

// Catalog — упорядоченная по возрастанию порога таблица вех.
type Catalog struct {
	milestones []Milestone
}

// NewCatalog проверяет и копирует вехи.
// Порог должен быть положительным, тип — непустым и уникальным:
// награда открывается один раз, второй такой же вехи не достичь.
func NewCatalog(milestones ...Milestone) (Catalog, error) {
	seen := make(map[RewardType]struct{}, len(milestones))
	out := make([]Milestone, 0, len(milestones))
	for _, m := range milestones {
		if m.Streak <= 0 {
			return Catalog{}, fmt.Errorf("веха %q: порог должен быть > 0, получено %d", m.Type, m.Streak)
		}
		if m.Type == "" {
			return Catalog{}, errors.New("веха без типа награды")
		}
		if m.Value < 0 {
			return Catalog{}, fmt.Errorf("веха %q: отрицательное значение %d", m.Type, m.Value)
		}
		if _, dup := seen[m.Type]; dup {
			return Catalog{}, fmt.Errorf("веха %q указана дважды", m.Type)
		}
		seen[m.Type] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Streak < out[j].Streak })
	return Catalog{milestones: out}, nil
}

// DefaultCatalog возвращает стандартную таблицу вех.
//
//	 3 дня  → щит заморозки (+1)
//	 7 дней → глубокий дневник
//	14 дней → набор от тревоги
//	30 дней → премиум на 7 дней
//	60 дней → премиум на 14 дней
func DefaultCatalog() Catalog {
	c, err := NewCatalog(
		Milestone{Streak: 3, Type: RewardFreezeShield, Value: 1},
		Milestone{Streak: 7, Type: RewardDeepJournalUnlock},
		Milestone{Streak: 14, Type: RewardAnxietyToolkitUnlock},
		Milestone{Streak: 30, Type: RewardPremium7Days, Value: 7},
		Milestone{Streak: 60, Type: RewardPremium14Days, Value: 14},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Milestones возвращает копию таблицы.
func (c Catalog) Milestones() []Milestone {
	out := make([]Milestone, len(c.milestones))
	copy(out, c.milestones)
	return out
}

// At возвращает вехи с порогом ровно streak (точное совпадение, не «не меньше»).
func (c Catalog) At(streak int) []Milestone {
	var out []Milestone
	for _, m := range c.milestones {
		if m.Streak == streak {
			out = append(out, m)
		}
	}
	return out
}

// Next возвращает ближайшую веху с порогом больше streak.
func (c Catalog) Next(streak int) (Milestone, bool) {
	for _, m := range c.milestones {
		if m.Streak > streak {
			return m, true
		}
	}
	return Milestone{}, false
}
