package out

import (
	"context"
	"time"

	"memestickers/internal/modules/session/domain"
)

// SessionRepository stores at most one session per user. Implementations do
// not check expiry on Get; the service does.
type SessionRepository interface {
	Put(ctx context.Context, session domain.UserSession) error
	Get(ctx context.Context, userID string) (domain.UserSession, bool, error)
	Delete(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
