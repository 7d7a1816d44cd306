// Package streak — repository.go выполняет операции с таблицами
// streak_records и reward_records.
// Обе записи сохраняются в одной транзакции: либо обе, либо ни одной.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/wellness-streaks/internal/common"
)

// Repository — реализация Store поверх PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий стриков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetStreak возвращает запись стрика или nil, если её нет.
// Даты читаются текстом YYYY-MM-DD — это и есть ключ дня.
func (r *Repository) GetStreak(ctx context.Context, userID string) (*StreakRecord, error) {
	query := `
		SELECT user_id, current_streak, longest_streak,
		       to_char(last_meaningful_date, 'YYYY-MM-DD'),
		       to_char(last_check_in_date, 'YYYY-MM-DD'),
		       freeze_shields, version, updated_at
		FROM streak_records
		WHERE user_id = $1
	`
	var s StreakRecord
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.CurrentStreak, &s.LongestStreak,
		&s.LastMeaningfulDate, &s.LastCheckInDate,
		&s.FreezeShields, &s.Version, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения стрика (user_id=%s): %w", userID, err)
	}
	return &s, nil
}

// GetRewards возвращает запись наград или nil, если её нет.
func (r *Repository) GetRewards(ctx context.Context, userID string) (*RewardRecord, error) {
	query := `
		SELECT user_id, unlocked_rewards, active_premium_until,
		       last_reward_claimed_at, version, updated_at
		FROM reward_records
		WHERE user_id = $1
	`
	var (
		rec      RewardRecord
		unlocked []string
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rec.UserID, &unlocked, &rec.ActivePremiumUntil,
		&rec.LastRewardClaimedAt, &rec.Version, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения наград (user_id=%s): %w", userID, err)
	}

	rec.UnlockedRewards = make([]RewardType, 0, len(unlocked))
	for _, u := range unlocked {
		rec.UnlockedRewards = append(rec.UnlockedRewards, RewardType(u))
	}
	return &rec, nil
}

// Save сохраняет записи в одной транзакции с проверкой версий.
//
// Версия 0 — записи ещё нет: INSERT ... ON CONFLICT DO NOTHING, и если строка
// уже есть (её создал параллельный запрос) — это конфликт.
// Иначе UPDATE ... WHERE version = $N: 0 затронутых строк — конфликт.
func (r *Repository) Save(ctx context.Context, streak *StreakRecord, reward *RewardRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx) //nolint:errcheck

	if streak != nil {
		if err := saveStreak(ctx, tx, streak); err != nil {
			return err
		}
	}
	if reward != nil {
		if err := saveReward(ctx, tx, reward); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	// Версии двигаем только после успешного коммита
	if streak != nil {
		streak.Version++
	}
	if reward != nil {
		reward.Version++
	}
	return nil
}

func saveStreak(ctx context.Context, tx pgx.Tx, s *StreakRecord) error {
	var query string
	if s.Version == 0 {
		query = `
			INSERT INTO streak_records (user_id, current_streak, longest_streak,
			                            last_meaningful_date, last_check_in_date,
			                            freeze_shields, version, updated_at)
			VALUES ($1, $2, $3, $4::text::date, $5::text::date, $6, 1, $7)
			ON CONFLICT (user_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE streak_records
			SET current_streak = $2, longest_streak = $3,
			    last_meaningful_date = $4::text::date, last_check_in_date = $5::text::date,
			    freeze_shields = $6, updated_at = $7, version = version + 1
			WHERE user_id = $1 AND version = $8
		`
	}

	args := []any{
		s.UserID, s.CurrentStreak, s.LongestStreak,
		s.LastMeaningfulDate, s.LastCheckInDate,
		s.FreezeShields, updatedAt(s.UpdatedAt),
	}
	if s.Version != 0 {
		args = append(args, s.Version)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка сохранения стрика: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVersionConflict
	}
	return nil
}

func saveReward(ctx context.Context, tx pgx.Tx, rec *RewardRecord) error {
	var query string
	if rec.Version == 0 {
		query = `
			INSERT INTO reward_records (user_id, unlocked_rewards, active_premium_until,
			                            last_reward_claimed_at, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (user_id) DO NOTHING
		`
	} else {
		query = `
			UPDATE reward_records
			SET unlocked_rewards = $2, active_premium_until = $3,
			    last_reward_claimed_at = $4, updated_at = $5, version = version + 1
			WHERE user_id = $1 AND version = $6
		`
	}

	unlocked := make([]string, 0, len(rec.UnlockedRewards))
	for _, u := range rec.UnlockedRewards {
		unlocked = append(unlocked, string(u))
	}

	args := []any{
		rec.UserID, unlocked, rec.ActivePremiumUntil,
		rec.LastRewardClaimedAt, updatedAt(rec.UpdatedAt),
	}
	if rec.Version != 0 {
		args = append(args, rec.Version)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка сохранения наград: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrVersionConflict
	}
	return nil
}

// ListExpiredPremium возвращает пользователей, чей премиум закончился к now.
func (r *Repository) ListExpiredPremium(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `
		SELECT user_id
		FROM reward_records
		WHERE active_premium_until IS NOT NULL AND active_premium_until <= $1
		ORDER BY active_premium_until
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истёкших премиумов: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// updatedAt подставляет текущее время, если движок не выставил своё.
func updatedAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
