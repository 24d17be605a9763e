package out

import (
	"context"
	"sync"
	"time"

	"memestickers/internal/modules/session/domain"
	sessionout "memestickers/internal/modules/session/port/out"
)

type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.UserSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]domain.UserSession{}}
}

var _ sessionout.SessionRepository = (*MemorySessionRepository)(nil)

func (r *MemorySessionRepository) Put(_ context.Context, session domain.UserSession) error {
	r.mu.Lock()
	r.sessions[session.UserID] = session
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, userID string) (domain.UserSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[userID]
	return session, ok, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	delete(r.sessions, userID)
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for userID, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, userID)
			removed++
		}
	}
	return removed, nil
}
