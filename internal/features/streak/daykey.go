// Package streak — daykey.go переводит момент времени в «ключ дня»:
// календарную дату YYYY-MM-DD в часовом поясе пользователя.
// Ключ дня — атомарная единица стрика: всё, что случилось в один
// локальный день, считается одним днём.
package streak

import (
	"fmt"
	"strings"
	"sync"
	"time"
	// База IANA встроена в бинарник, чтобы не зависеть от tzdata хоста
	_ "time/tzdata"

	"serotonyl.ru/wellness-streaks/internal/common"
)

// DayKeyLayout — формат ключа дня.
const DayKeyLayout = "2006-01-02"

// DefaultTimezone используется, когда клиент не прислал часовой пояс.
const DefaultTimezone = "UTC"

// DayKeyResolver вычисляет ключи дней. Загруженные *time.Location кэшируются.
type DayKeyResolver struct {
	locations sync.Map // string → *time.Location
}

// NewDayKeyResolver создаёт резолвер ключей дней.
func NewDayKeyResolver() *DayKeyResolver {
	return &DayKeyResolver{}
}

// Location возвращает часовой пояс по имени IANA.
// Пустое имя означает UTC. "Local" отклоняется: результат зависел бы от хоста.
func (r *DayKeyResolver) Location(timezone string) (*time.Location, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		timezone = DefaultTimezone
	}
	if cached, ok := r.locations.Load(timezone); ok {
		return cached.(*time.Location), nil
	}
	if timezone == "Local" {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidTimezone, timezone)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidTimezone, timezone)
	}
	r.locations.Store(timezone, loc)
	return loc, nil
}

// DayKey возвращает локальную дату момента instant в поясе timezone.
//
// Пример:
//
//	DayKey(2024-01-01T18:40Z, "Asia/Kolkata") → "2024-01-02"
func (r *DayKeyResolver) DayKey(instant time.Time, timezone string) (string, error) {
	loc, err := r.Location(timezone)
	if err != nil {
		return "", err
	}
	return instant.In(loc).Format(DayKeyLayout), nil
}

// Yesterday возвращает день, предшествующий DayKey(instant, timezone).
//
// Считается календарно (день-1 от локального полудня), а не вычитанием 24 часов:
// в дни перевода часов сутки длятся 23 или 25 часов, и «минус 24 часа»
// может вернуть тот же день или перепрыгнуть через день.
func (r *DayKeyResolver) Yesterday(instant time.Time, timezone string) (string, error) {
	loc, err := r.Location(timezone)
	if err != nil {
		return "", err
	}
	return previousDay(instant.In(loc)), nil
}

// Days возвращает пару (сегодня, вчера) за один вызов.
func (r *DayKeyResolver) Days(instant time.Time, timezone string) (today, yesterday string, err error) {
	loc, err := r.Location(timezone)
	if err != nil {
		return "", "", err
	}
	local := instant.In(loc)
	return local.Format(DayKeyLayout), previousDay(local), nil
}

func previousDay(local time.Time) string {
	y, m, d := local.Date()
	// time.Date нормализует d-1 == 0 в последний день прошлого месяца
	return time.Date(y, m, d-1, 12, 0, 0, 0, local.Location()).Format(DayKeyLayout)
}

// dayAfter — true, если день a строго позже дня b.
// Формат YYYY-MM-DD сравнивается лексикографически.
func dayAfter(a, b string) bool {
	return a > b
}
