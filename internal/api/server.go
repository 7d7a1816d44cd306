// Package api — HTTP API стрик-сервиса на echo.
//
// Маршруты:
//
//	POST /api/v1/streak/activity   записать активность
//	GET  /api/v1/streak            запись стрика
//	GET  /api/v1/rewards           открытые награды
//	GET  /api/v1/milestones        таблица вех
//	GET  /admin/users/:id          записи пользователя (Basic auth)
//	POST /admin/users/:id/shields  начислить щиты (Basic auth)
//	GET  /healthz
package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"serotonyl.ru/wellness-streaks/internal/features/admin"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
	"serotonyl.ru/wellness-streaks/internal/pkg/ratelimit"
)

type Config struct {
	Streaks   *streak.Service
	Admin     *admin.Service
	JWTSecret string
	Origins   []string
	// Limiter ограничивает запись активностей на пользователя (nil — без лимита)
	Limiter *ratelimit.RateLimiter
	Debug   bool
}

func New(cfg *Config) http.Handler {
	r := echo.New()
	r.HideBanner = true
	r.HidePort = true
	r.Debug = cfg.Debug
	r.HTTPErrorHandler = errorHandler

	r.Pre(middleware.RemoveTrailingSlash())
	r.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	r.Use(requestLogger())
	r.Use(middleware.Recover())

	r.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	routesAPIv1 := r.Group("/api/v1")
	{
		routesAPIv1.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.Origins,
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
			MaxAge:           60 * 60,
		}))
		routesAPIv1.Use(Authn(cfg.JWTSecret))

		s := groupStreak{streaks: cfg.Streaks}
		routesAPIv1.POST("/streak/activity", s.RecordActivity, rateLimit(cfg.Limiter))
		routesAPIv1.GET("/streak", s.GetStreak)
		routesAPIv1.GET("/rewards", s.GetRewards)
		routesAPIv1.GET("/milestones", s.GetMilestones)
	}

	if cfg.Admin != nil && cfg.Admin.Enabled() {
		routesAdmin := r.Group("/admin")
		routesAdmin.Use(AdminAuth(cfg.Admin))

		a := groupAdmin{admin: cfg.Admin}
		routesAdmin.GET("/users/:id", a.GetUser)
		routesAdmin.POST("/users/:id/shields", a.GrantShields)
	}

	return r
}
