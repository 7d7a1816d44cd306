// Package admin — служебный доступ к стрикам: просмотр записей пользователя
// и начисление щитов заморозки. Вход по паролю (Argon2id) с защитой от перебора.
// models.go описывает ответы админ-API.
package admin

import "serotonyl.ru/wellness-streaks/internal/features/streak"

// UserOverview — всё, что известно о пользователе: стрик и награды.
type UserOverview struct {
	Streak  *streak.StreakRecord `json:"streak"`
	Rewards *streak.RewardRecord `json:"rewards"`
	// PremiumActive — действует ли премиум прямо сейчас
	PremiumActive bool `json:"premiumActive"`
}

// GrantRequest — тело POST /admin/users/:id/shields.
type GrantRequest struct {
	Count int `json:"count"`
}
