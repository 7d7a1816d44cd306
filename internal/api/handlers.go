package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"serotonyl.ru/wellness-streaks/internal/common"
	"serotonyl.ru/wellness-streaks/internal/features/admin"
	"serotonyl.ru/wellness-streaks/internal/features/streak"
)

type groupStreak struct {
	streaks *streak.Service
}

type activityRequest struct {
	ActivityType string `json:"activityType"`
	Timezone     string `json:"timezone"`
}

func (gr *groupStreak) RecordActivity(c echo.Context) error {
	userID, err := UserID(c.Request().Context())
	if err != nil {
		return abort(c, nil, err)
	}

	var req activityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "некорректное тело запроса"})
	}
	if req.Timezone == "" {
		req.Timezone = streak.DefaultTimezone
	}

	res, err := gr.streaks.Update(c.Request().Context(), userID, req.ActivityType, req.Timezone)
	return abort(c, res, err)
}

func (gr *groupStreak) GetStreak(c echo.Context) error {
	userID, err := UserID(c.Request().Context())
	if err != nil {
		return abort(c, nil, err)
	}
	rec, err := gr.streaks.GetStreak(c.Request().Context(), userID)
	return abort(c, rec, err)
}

func (gr *groupStreak) GetRewards(c echo.Context) error {
	userID, err := UserID(c.Request().Context())
	if err != nil {
		return abort(c, nil, err)
	}
	rec, err := gr.streaks.GetRewards(c.Request().Context(), userID)
	return abort(c, rec, err)
}

func (gr *groupStreak) GetMilestones(c echo.Context) error {
	return abort(c, gr.streaks.Catalog().Milestones(), nil)
}

type groupAdmin struct {
	admin *admin.Service
}

func (gr *groupAdmin) GetUser(c echo.Context) error {
	overview, err := gr.admin.GetUser(c.Request().Context(), c.Param("id"))
	return abort(c, overview, err)
}

func (gr *groupAdmin) GrantShields(c echo.Context) error {
	var req admin.GrantRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "некорректное тело запроса"})
	}
	if req.Count <= 0 {
		return abort(c, nil, fmt.Errorf("%w: count=%d", common.ErrInvalidAmount, req.Count))
	}

	rec, err := gr.admin.GrantShields(c.Request().Context(), c.Param("id"), req.Count)
	return abort(c, rec, err)
}
