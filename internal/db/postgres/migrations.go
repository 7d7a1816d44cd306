package postgres

// Migration — одна SQL-миграция.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations возвращает миграции в порядке применения.
// SQL встроен в код для упрощения деплоя.
func Migrations() []Migration {
	return []Migration{
		{1, "streak_records", migration001StreakRecords},
		{2, "reward_records", migration002RewardRecords},
		{3, "premium_expiry_index", migration003PremiumIndex},
	}
}

// Даты стрика хранятся как DATE: это локальный день пользователя, без пояса.
var migration001StreakRecords = `
CREATE TABLE IF NOT EXISTS streak_records (
    user_id TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_meaningful_date DATE,
    last_check_in_date DATE,
    freeze_shields INTEGER NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT streak_current_le_longest CHECK (current_streak <= longest_streak),
    CONSTRAINT streak_non_negative CHECK (current_streak >= 0 AND freeze_shields >= 0)
);
`

var migration002RewardRecords = `
CREATE TABLE IF NOT EXISTS reward_records (
    user_id TEXT PRIMARY KEY,
    unlocked_rewards TEXT[] NOT NULL DEFAULT '{}',
    active_premium_until TIMESTAMPTZ,
    last_reward_claimed_at TIMESTAMPTZ,
    version BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration003PremiumIndex = `
CREATE INDEX IF NOT EXISTS idx_reward_records_premium_until
    ON reward_records(active_premium_until)
    WHERE active_premium_until IS NOT NULL;
`
