package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/achievement"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/notification"
)

type NotificationHandler struct {
	JWTUtil             *auth.JWTUtil
	NotificationUseCase notification.NotificationUseCase
}

func NewNotificationHandler(JWTUtil *auth.JWTUtil, NotificationUseCase notification.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{JWTUtil, NotificationUseCase}
}

// HandleList ?unread=true limits to unread notifications
func (nh *NotificationHandler) HandleList(c echo.Context) error {
	claims := mustClaims(nh.JWTUtil, c)
	result, err := nh.NotificationUseCase.List(c.Request().Context(), claims.UID, c.QueryParam("unread") == "true")
	if err != nil {
		return err
	}
	if result == nil {
		result = []*notification.Notification{}
	}
	return c.JSON(http.StatusOK, result)
}

func (nh *NotificationHandler) HandleMarkRead(c echo.Context) error {
	claims := mustClaims(nh.JWTUtil, c)
	if err := nh.NotificationUseCase.MarkRead(c.Request().Context(), claims.UID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (nh *NotificationHandler) HandleMarkAllRead(c echo.Context) error {
	claims := mustClaims(nh.JWTUtil, c)
	n, err := nh.NotificationUseCase.MarkAllRead(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"updated": n})
}

type AchievementHandler struct {
	JWTUtil            *auth.JWTUtil
	AchievementUseCase achievement.AchievementUseCase
}

func NewAchievementHandler(JWTUtil *auth.JWTUtil, AchievementUseCase achievement.AchievementUseCase) *AchievementHandler {
	return &AchievementHandler{JWTUtil, AchievementUseCase}
}

func (ah *AchievementHandler) HandleList(c echo.Context) error {
	claims := mustClaims(ah.JWTUtil, c)
	result, err := ah.AchievementUseCase.List(c.Request().Context(), claims.UID)
	if err != nil {
		return err
	}
	if result == nil {
		result = []*achievement.UserAchievement{}
	}
	return c.JSON(http.StatusOK, result)
}
