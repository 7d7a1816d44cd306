package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/features/admin"
	"serotonyl.ru/wellness-streaks/internal/pkg/ratelimit"
)

type ctxKey string

var ctxKeyUserID ctxKey = "USER_ID"

// errRateLimited — слишком много записей активности подряд.
var errRateLimited = errors.New("слишком много запросов")

// Authn проверяет Bearer-токен (HS256) и кладёт userId (claim sub) в контекст.
func Authn(secret string) echo.MiddlewareFunc {
	keyFunc := func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				return abort(c, nil, common.ErrUnauthorized)
			}

			claims := &jwt.RegisteredClaims{}
			if _, err := parser.ParseWithClaims(token, claims, keyFunc); err != nil {
				// Подробности клиенту не отдаём
				log.WithError(err).Debug("Невалидный токен")
				return abort(c, nil, common.ErrUnauthorized)
			}
			if claims.Subject == "" {
				return abort(c, nil, common.ErrUnauthorized)
			}

			ctx := context.WithValue(c.Request().Context(), ctxKeyUserID, claims.Subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// UserID возвращает userId, положенный Authn.
func UserID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(ctxKeyUserID).(string)
	if !ok || id == "" {
		return "", common.ErrUnauthorized
	}
	return id, nil
}

// AdminAuth — HTTP Basic auth по паролю администратора. Имя пользователя не проверяется.
func AdminAuth(svc *admin.Service) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "streaks-admin",
		Validator: func(_, password string, c echo.Context) (bool, error) {
			err := svc.Authenticate(c.RealIP(), password)
			switch {
			case err == nil:
				return true, nil
			case errors.Is(err, common.ErrTooManyAttempts):
				return false, err
			default:
				return false, nil
			}
		},
	})
}

// rateLimit ограничивает частоту запросов пользователя.
func rateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil {
				return next(c)
			}
			userID, err := UserID(c.Request().Context())
			if err != nil {
				return abort(c, nil, err)
			}
			if !limiter.Allow(userID) {
				return abort(c, nil, errRateLimited)
			}
			return next(c)
		}
	}
}

// requestLogger пишет access-лог через logrus.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			entry := log.WithFields(log.Fields{
				"request_id": res.Header().Get(echo.HeaderXRequestID),
				"method":     req.Method,
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency":    time.Since(start).String(),
			})
			if res.Status >= 500 {
				entry.Warn("HTTP-запрос завершился ошибкой")
			} else {
				entry.Debug("HTTP-запрос")
			}
			return nil
		}
	}
}
