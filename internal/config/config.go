// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры,
// а godotenv — чтобы локально подхватить файл .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // APP_TIMEZONE проверяется и на хостах без системной tzdata

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"streaks"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"wellness"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	// Часовой пояс по умолчанию для бота и планировщика
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- HTTP ---
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:"0.0.0.0:8080"`
	HTTPOriginsRaw string `envconfig:"HTTP_ORIGINS" default:"*"`
	JWTSecret      string `envconfig:"JWT_SECRET" required:"true"`

	// --- Admin ---
	// Argon2id-хеш, получить: streakd hash-password <пароль>
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Redis (кэш чтения) ---
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// --- Telegram ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Streak ---
	StreakMaxAttempts  int           `envconfig:"STREAK_MAX_ATTEMPTS" default:"3"`
	StreakStoreTimeout time.Duration `envconfig:"STREAK_STORE_TIMEOUT" default:"3s"`
	// Очистка истёкших премиумов (cron, в поясе APP_TIMEZONE)
	PremiumSweepSchedule string `envconfig:"PREMIUM_SWEEP_SCHEDULE" default:"0 * * * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Feature Flags ---
	FeatureBotEnabled   bool `envconfig:"FEATURE_BOT_ENABLED" default:"false"`
	FeatureCacheEnabled bool `envconfig:"FEATURE_CACHE_ENABLED" default:"false"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// HTTPOrigins — список разрешённых CORS-источников.
func (c *Config) HTTPOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.HTTPOriginsRaw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.StreakMaxAttempts <= 0 {
		return errors.New("STREAK_MAX_ATTEMPTS должен быть > 0")
	}
	if c.StreakStoreTimeout <= 0 {
		return errors.New("STREAK_STORE_TIMEOUT должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return errors.New("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET должен быть не короче 16 символов")
	}
	if c.FeatureBotEnabled {
		if c.TelegramBotToken == "" {
			return errors.New("FEATURE_BOT_ENABLED=true, но TELEGRAM_BOT_TOKEN не задан")
		}
		if c.BotMaxInflight <= 0 {
			return errors.New("BOT_MAX_INFLIGHT должен быть > 0")
		}
		if c.BotUpdateTimeoutSeconds <= 0 {
			return errors.New("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
		}
	}
	if _, err := time.LoadLocation(c.AppTimezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения, заполняет Config.
// Переменные окружения важнее значений из .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
