package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pot-code/learnhub/internal/infrastructure/logging"
	"go.uber.org/zap"
)

const (
	// RoleCacheKey storage key of the cached role
	RoleCacheKey = "user-role-cache"
	// RoleCacheExpiry cached role lifetime
	RoleCacheExpiry = 2 * time.Hour
)

type roleEntry struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// RoleCache single slot role cache on top of a session Storage.
//
// Storage failures are logged and reported as a miss.
type RoleCache struct {
	storage Storage
	expiry  time.Duration
	now     func() time.Time
}

// RoleCacheOption configures a RoleCache
type RoleCacheOption func(*RoleCache)

// WithRoleExpiry override RoleCacheExpiry
func WithRoleExpiry(expiry time.Duration) RoleCacheOption {
	return func(rc *RoleCache) {
		if expiry > 0 {
			rc.expiry = expiry
		}
	}
}

// WithRoleClock replace time.Now
func WithRoleClock(now func() time.Time) RoleCacheOption {
	return func(rc *RoleCache) {
		if now != nil {
			rc.now = now
		}
	}
}

func NewRoleCache(storage Storage, options ...RoleCacheOption) *RoleCache {
	rc := &RoleCache{
		storage: storage,
		expiry:  RoleCacheExpiry,
		now:     time.Now,
	}
	for _, option := range options {
		option(rc)
	}
	return rc
}

// Set replace the slot with role of userID
func (rc *RoleCache) Set(ctx context.Context, userID, role string) {
	logger := logging.ExtractLoggerFromContext(ctx)
	payload, err := json.Marshal(&roleEntry{
		UserID:    userID,
		Role:      role,
		Timestamp: rc.now().UnixNano() / int64(time.Millisecond),
	})
	if err != nil {
		logger.Warn("Failed to encode role cache", zap.Error(err))
		return
	}
	if err := rc.storage.SetItem(ctx, RoleCacheKey, string(payload)); err != nil {
		logger.Warn("Failed to write role cache", zap.Error(err), zap.String("user.id", userID))
	}
}

// Get returns the cached role only if it belongs to userID and has not expired,
// otherwise the slot is cleared
func (rc *RoleCache) Get(ctx context.Context, userID string) (string, bool) {
	logger := logging.ExtractLoggerFromContext(ctx)
	raw, err := rc.storage.GetItem(ctx, RoleCacheKey)
	if errors.Is(err, ErrItemNotFound) {
		return "", false
	}
	if err != nil {
		logger.Warn("Failed to read role cache", zap.Error(err), zap.String("user.id", userID))
		return "", false
	}

	var entry roleEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Warn("Malformed role cache", zap.Error(err))
		rc.Clear(ctx)
		return "", false
	}
	age := rc.now().Sub(time.Unix(0, entry.Timestamp*int64(time.Millisecond)))
	if entry.UserID != userID || age >= rc.expiry {
		rc.Clear(ctx)
		return "", false
	}
	return entry.Role, true
}

// Clear remove the slot
func (rc *RoleCache) Clear(ctx context.Context) {
	if err := rc.storage.RemoveItem(ctx, RoleCacheKey); err != nil {
		logging.ExtractLoggerFromContext(ctx).Warn("Failed to clear role cache", zap.Error(err))
	}
}
