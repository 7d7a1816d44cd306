// Package common — errors.go определяет ошибки, которые используются
// движком стриков, HTTP API и Telegram-ботом.
// Обработчики различают их через errors.Is и отвечают клиенту
// понятным кодом: 400 для ошибок ввода, 409/503 для повторяемых сбоев.
package common

import "errors"

// Ошибки ввода (клиент прислал что-то не то)
var (
	// ErrUnknownActivityType — тип активности вне фиксированного перечня
	ErrUnknownActivityType = errors.New("неизвестный тип активности")
	// ErrInvalidTimezone — имя часового пояса не найдено в базе IANA
	ErrInvalidTimezone = errors.New("неизвестный часовой пояс")
	// ErrInvalidAmount — количество должно быть положительным
	ErrInvalidAmount = errors.New("количество должно быть положительным")
)

// Ошибки хранилища
var (
	// ErrVersionConflict — запись изменилась с момента чтения (оптимистичная блокировка)
	ErrVersionConflict = errors.New("версия записи устарела")
	// ErrConcurrentUpdateConflict — попытки повторить обновление исчерпаны
	ErrConcurrentUpdateConflict = errors.New("конфликт параллельного обновления, повторите запрос")
	// ErrRecordStoreUnavailable — хранилище записей недоступно или не ответило вовремя
	ErrRecordStoreUnavailable = errors.New("хранилище записей недоступно")
)

// Ошибки доступа
var (
	// ErrUnauthorized — нет или неверный токен сессии
	ErrUnauthorized = errors.New("требуется авторизация")
	// ErrWrongPassword — неверный пароль администратора
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите")
)

// IsRetryable сообщает, имеет ли смысл клиенту повторить запрос.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdateConflict) || errors.Is(err, ErrRecordStoreUnavailable)
}
