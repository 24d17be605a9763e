package service

import (
	"context"
	"log/slog"
	"time"

	"memestickers/internal/modules/session/domain"
	sessionout "memestickers/internal/modules/session/port/out"
	"memestickers/internal/platform/clock"
	"memestickers/internal/platform/logging"
)

const (
	DefaultTimeout       = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

type SessionService struct {
	clock   clock.Clock
	repo    sessionout.SessionRepository
	timeout time.Duration
	logger  *slog.Logger
}

func NewSessionService(clk clock.Clock, repo sessionout.SessionRepository, timeout time.Duration, logger *slog.Logger) *SessionService {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SessionService{clock: clk, repo: repo, timeout: timeout, logger: logging.OrDiscard(logger)}
}

// Create stores a new session for userID, replacing any existing one.
// replaced reports whether a live session was overwritten.
func (s *SessionService) Create(ctx context.Context, userID string, sessionType domain.SessionType, data map[string]string) (domain.UserSession, bool, error) {
	session, err := domain.NewUserSession(userID, sessionType, data, s.clock.Now(), s.timeout)
	if err != nil {
		return domain.UserSession{}, false, err
	}
	_, replaced, err := s.Get(ctx, userID)
	if err != nil {
		return domain.UserSession{}, false, err
	}
	if err := s.repo.Put(ctx, session); err != nil {
		return domain.UserSession{}, false, err
	}
	return session, replaced, nil
}

// Get returns the live session of userID. Expired sessions are deleted on
// the way out and reported as absent.
func (s *SessionService) Get(ctx context.Context, userID string) (domain.UserSession, bool, error) {
	session, ok, err := s.repo.Get(ctx, userID)
	if err != nil || !ok {
		return domain.UserSession{}, false, err
	}
	if session.Expired(s.clock.Now()) {
		if err := s.repo.Delete(ctx, userID); err != nil {
			return domain.UserSession{}, false, err
		}
		return domain.UserSession{}, false, nil
	}
	return session, true, nil
}

// Save overwrites the data of a live session without touching its expiry.
func (s *SessionService) Save(ctx context.Context, session domain.UserSession) error {
	return s.repo.Put(ctx, session)
}

func (s *SessionService) Clear(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

func (s *SessionService) Sweep(ctx context.Context) (int, error) {
	return s.repo.DeleteExpired(ctx, s.clock.Now())
}

// RunSweeper removes expired sessions every interval until ctx is done.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				s.logger.WarnContext(ctx, "session sweep failed", "err", err)
				continue
			}
			if removed > 0 {
				s.logger.DebugContext(ctx, "swept expired sessions", "removed", removed)
			}
		}
	}
}
