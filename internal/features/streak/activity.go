// Package streak — activity.go описывает типы активностей пользователя.
// Каждая активность относится ровно к одному виду: «значимая» (растит стрик)
// или «отметка» (лёгкий чек-ин, сам по себе стрик не растит).
package streak

import (
	"fmt"
	"strings"

	"serotonyl.ru/wellness-streaks/internal/common"
)

// ActivityType — тип активности, который присылает клиент.
type ActivityType string

// Значимые активности
const (
	ActivityJournalEntry            ActivityType = "JOURNAL_ENTRY"
	ActivityCopingToolCompleted     ActivityType = "COPING_TOOL_COMPLETED"
	ActivityGuidedExerciseCompleted ActivityType = "GUIDED_EXERCISE_COMPLETED"
	ActivityAIChatMeaningfulSession ActivityType = "AI_CHAT_MEANINGFUL_SESSION"
)

// ActivityDailyCheckIn — ежедневная отметка настроения.
const ActivityDailyCheckIn ActivityType = "DAILY_CHECK_IN"

// ActivityKind — вид активности.
type ActivityKind int

const (
	// KindMeaningful — значимая активность, растит стрик
	KindMeaningful ActivityKind = iota + 1
	// KindCheckIn — только отметка, стрик не растит
	KindCheckIn
)

func (k ActivityKind) String() string {
	switch k {
	case KindMeaningful:
		return "meaningful"
	case KindCheckIn:
		return "check_in"
	default:
		return "unknown"
	}
}

// activityKinds — фиксированная классификация. Не настраивается.
var activityKinds = map[ActivityType]ActivityKind{
	ActivityJournalEntry:            KindMeaningful,
	ActivityCopingToolCompleted:     KindMeaningful,
	ActivityGuidedExerciseCompleted: KindMeaningful,
	ActivityAIChatMeaningfulSession: KindMeaningful,
	ActivityDailyCheckIn:            KindCheckIn,
}

// Activity — распознанная активность: тип и его вид.
type Activity struct {
	Type ActivityType
	Kind ActivityKind
}

// ParseActivity распознаёт строку клиента.
// Всё, что не входит в перечень, отклоняется с ErrUnknownActivityType —
// молча считать такое отметкой нельзя.
func ParseActivity(raw string) (Activity, error) {
	t := ActivityType(strings.TrimSpace(raw))
	kind, ok := activityKinds[t]
	if !ok {
		return Activity{}, fmt.Errorf("%w: %q", common.ErrUnknownActivityType, raw)
	}
	return Activity{Type: t, Kind: kind}, nil
}

// IsMeaningful — true для активностей, которые растят стрик.
func (a Activity) IsMeaningful() bool {
	return a.Kind == KindMeaningful
}
