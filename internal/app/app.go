// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, кэш, сервисы, HTTP API,
// Telegram-бота и планировщик, и запускает их вместе.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mymmrac/telego"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/wellness-streaks/internal/api"
	"serotonyl.ru/wellness-streaks/internal/bot"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/db/postgres"
	"serotonyl.ru/wellness-streaks/internal/features/admin"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
	"serotonyl.ru/wellness-streaks/internal/jobs"
	"serotonyl.ru/wellness-streaks/internal/pkg/caching"
	"serotonyl.ru/wellness-streaks/internal/pkg/ratelimit"
)

// shutdownTimeout — сколько ждём завершения HTTP-запросов при остановке.
const shutdownTimeout = 10 * time.Second

// App содержит все компоненты приложения.
type App struct {
	cfg *config.Config

	DB        *pgxpool.Pool
	Redis     redis.UniversalClient
	Streaks   *streak.Service
	Admin     *admin.Service
	Server    *http.Server
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler

	limiter *ratelimit.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.DB = pool

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Кэш чтения (опционально) ===
	var opts []streak.Option
	if cfg.FeatureCacheEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// Кэш — только ускорение, без него сервис работает
			log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("Redis недоступен, кэш выключен")
			client.Close() //nolint:errcheck
		} else {
			a.Redis = client
			opts = append(opts, streak.WithCache(caching.NewCacheRedis(client, false)))
			log.WithField("addr", cfg.RedisAddr).Info("Кэш Redis подключён")
		}
	}

	// === 3. Сервисы ===
	a.Streaks = streak.NewService(
		streak.NewEngine(streak.DefaultCatalog()),
		streak.NewRepository(pool),
		cfg,
		opts...,
	)
	a.Admin = admin.NewService(a.Streaks, cfg)
	if !a.Admin.Enabled() {
		log.Warn("ADMIN_PASSWORD_HASH не задан, админ-API выключено")
	}

	// === 4. HTTP API ===
	a.limiter = ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow)
	a.Server = &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.New(&api.Config{
			Streaks:   a.Streaks,
			Admin:     a.Admin,
			JWTSecret: cfg.JWTSecret,
			Origins:   cfg.HTTPOrigins(),
			Limiter:   a.limiter,
			Debug:     cfg.AppEnv == "development",
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// === 5. Telegram-бот (опционально) ===
	if cfg.FeatureBotEnabled {
		botAPI, err := telego.NewBot(cfg.TelegramBotToken, telego.WithDiscardLogger())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		me, err := botAPI.GetMe(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка авторизации бота: %w", err)
		}
		log.Infof("Авторизован как @%s", me.Username)

		sender := bot.NewSender(botAPI)
		a.Bot = bot.New(botAPI, cfg, streak.NewHandler(a.Streaks, sender, cfg), sender)
	}

	// === 6. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(a.Streaks, cfg)

	return a, nil
}

// Run запускает HTTP-сервер, бота и планировщик и ждёт отмены ctx
// или падения любого из них.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	errWg, errCtx := errgroup.WithContext(ctx)

	errWg.Go(func() error {
		log.Infof("ListenAndServe: %s (%s)", a.cfg.HTTPAddr, a.cfg.AppEnv)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP-сервер: %w", err)
		}
		return nil
	})

	errWg.Go(func() error {
		<-errCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	if a.Bot != nil {
		errWg.Go(func() error {
			return a.Bot.Start(errCtx)
		})
	}

	return errWg.Wait()
}

// Close освобождает ресурсы: пул БД, Redis, ограничители.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.Admin != nil {
		a.Admin.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Migrate подключается к БД и применяет миграции (команда migrate).
func Migrate(ctx context.Context, cfg *config.Config) error {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	defer pool.Close()

	return postgres.RunMigrations(ctx, pool)
}
