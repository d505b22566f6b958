package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learnhub/internal/cache"
	"github.com/pot-code/learnhub/internal/infrastructure/auth"
	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"github.com/pot-code/learnhub/internal/realtime"
	"go.uber.org/zap"
)

// CacheHandler query cache control and the realtime channel
type CacheHandler struct {
	JWTUtil *auth.JWTUtil
	Cache   *cache.Manager
	Hub     *realtime.Hub
}

func NewCacheHandler(JWTUtil *auth.JWTUtil, Cache *cache.Manager, Hub *realtime.Hub) *CacheHandler {
	return &CacheHandler{JWTUtil, Cache, Hub}
}

type cacheClearResult struct {
	Cleared  int `json:"cleared"`
	Notified int `json:"notified"`
}

// HandleClear drop every cached query and tell connected clients to drop theirs
func (ch *CacheHandler) HandleClear(c echo.Context) error {
	cleared := ch.Cache.Len()
	ch.Cache.ClearAll()
	notified := ch.Hub.Broadcast(map[string]string{"type": realtime.TypeCacheCleared})

	logging.ExtractLoggerFromContext(c.Request().Context()).Info("Cache cleared",
		zap.String("user.id", mustClaims(ch.JWTUtil, c).UID),
		zap.Int("cache.entries", cleared),
		zap.Int("websocket.notified", notified))
	return c.JSON(http.StatusOK, &cacheClearResult{Cleared: cleared, Notified: notified})
}

// HandleWebsocket the connection belongs to the token owner
func (ch *CacheHandler) HandleWebsocket() echo.HandlerFunc {
	return ch.Hub.Handler(func(c echo.Context) string {
		if claims := ch.JWTUtil.GetContextToken(c); claims != nil {
			return claims.UID
		}
		return ""
	})
}
