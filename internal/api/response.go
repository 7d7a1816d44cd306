package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/wellness-streaks/internal/common"
)

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// abort отвечает data со статусом 200 или ошибкой с подходящим кодом.
func abort(c echo.Context, data any, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, data)
	}

	status := statusOf(err)
	body := errorBody{Error: err.Error(), Retryable: common.IsRetryable(err)}
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("uri", c.Request().RequestURI).Error("Ошибка обработки запроса")
		if !body.Retryable {
			// Внутренние подробности наружу не отдаём
			body.Error = http.StatusText(status)
		}
	}
	return c.JSON(status, body)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrUnknownActivityType),
		errors.Is(err, common.ErrInvalidTimezone),
		errors.Is(err, common.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrTooManyAttempts), errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrConcurrentUpdateConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrRecordStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler отвечает на ошибки самого echo (404, 405, Basic auth) тем же JSON.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		if he.Code == http.StatusUnauthorized {
			// Basic auth ждёт заголовок с realm, echo уже выставил его
			msg = common.ErrUnauthorized.Error()
		}
		//nolint:errcheck
		c.JSON(he.Code, errorBody{Error: msg})
		return
	}
	//nolint:errcheck
	abort(c, nil, err)
}
