// Package main — точка входа стрик-сервиса.
//
// Команды:
//
//	streakd serve                  HTTP API + бот + планировщик
//	streakd migrate                применить миграции и выйти
//	streakd hash-password <пароль> Argon2id-хеш для ADMIN_PASSWORD_HASH
//
// serve поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"serotonyl.ru/wellness-streaks/internal/app"
	"serotonyl.ru/wellness-streaks/internal/config"
	"serotonyl.ru/wellness-streaks/internal/features/admin"
)

func main() {
	setupLogging()

	streakd := &cli.App{
		Name:  "streakd",
		Usage: "стрики значимой активности, щиты заморозки и награды",
		Commands: []*cli.Command{
			commandServe(),
			commandMigrate(),
			commandHashPassword(),
		},
	}

	if err := streakd.Run(os.Args); err != nil {
		log.WithError(err).Fatal("Команда завершилась с ошибкой")
	}
}

func commandServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "запустить HTTP API, бота и планировщик",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "адрес HTTP (по умолчанию HTTP_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			log.Info("=== Сервис запускается ===")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}

			// Контекст с отменой для graceful shutdown (Ctrl+C, docker stop)
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("не удалось инициализировать приложение: %w", err)
			}
			defer application.Close()

			log.Info("=== Сервис готов к работе ===")
			if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			log.Info("=== Сервис остановлен ===")
			return nil
		},
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "применить миграции БД",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return app.Migrate(c.Context, cfg)
		},
	}
}

func commandHashPassword() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "вывести Argon2id-хеш пароля для ADMIN_PASSWORD_HASH",
		ArgsUsage: "<пароль>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("Использование: streakd hash-password <пароль>", 1)
			}

			hash, err := admin.HashPassword(c.Args().First())
			if err != nil {
				return err
			}

			fmt.Println("Хеш пароля (вставьте в .env как ADMIN_PASSWORD_HASH):")
			fmt.Println(hash)
			return nil
		},
	}
}

// loadConfig загружает конфигурацию и применяет уровень логирования из неё.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.AppLogLevel).Warn("Неизвестный APP_LOG_LEVEL, оставляем debug")
	}
	return cfg, nil
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
