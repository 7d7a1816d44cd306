// Package common — pluralize.go содержит готовые строки «число + слово»
// для ответов бота. Сама логика склонения лежит в helpers.go.
package common

import "fmt"

// FormatDays создаёт строку вида "5 дней", "1 день", "22 дня".
func FormatDays(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeDays(n))
}

// FormatShields создаёт строку вида "2 щита".
func FormatShields(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeShields(n))
}
