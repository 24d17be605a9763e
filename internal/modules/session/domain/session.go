package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "memestickers/internal/platform/errors"
)

// SessionType names the multi-step flow a session belongs to. The store does
// not interpret it.
type SessionType string

const (
	TypeDeleteConfirm SessionType = "delete_confirm"
	TypeGenerate      SessionType = "generate"
)

// UserSession is per-user conversational state. At most one exists per user.
type UserSession struct {
	UserID    string            `json:"user_id"`
	Type      SessionType       `json:"type"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func NewUserSession(userID string, sessionType SessionType, data map[string]string, now time.Time, timeout time.Duration) (UserSession, error) {
	if strings.TrimSpace(userID) == "" {
		return UserSession{}, fmt.Errorf("%w: user id is required", apperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(string(sessionType)) == "" {
		return UserSession{}, fmt.Errorf("%w: session type is required", apperrors.ErrInvalidInput)
	}
	if timeout <= 0 {
		return UserSession{}, fmt.Errorf("%w: session timeout must be positive", apperrors.ErrInvalidInput)
	}
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	return UserSession{
		UserID:    userID,
		Type:      sessionType,
		Data:      copied,
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
	}, nil
}

// Expired reports whether s is no longer valid at now. A session is valid
// strictly before its expiry.
func (s UserSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s UserSession) Value(key string) string {
	return s.Data[key]
}
