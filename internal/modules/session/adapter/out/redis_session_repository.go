package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"memestickers/internal/modules/session/domain"
	sessionout "memestickers/internal/modules/session/port/out"
	"memestickers/internal/platform/clock"
)

const (
	sessionKeyPrefix = "memestickers:session:"
	scanBatch        = 100
)

// RedisSessionRepository keeps one JSON document per user. Keys also carry a
// redis TTL of the time the session has left, so abandoned sessions
// disappear even without a sweeper.
type RedisSessionRepository struct {
	client redis.UniversalClient
	clock  clock.Clock
}

func NewRedisSessionRepository(client redis.UniversalClient, clk clock.Clock) *RedisSessionRepository {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &RedisSessionRepository{client: client, clock: clk}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

var _ sessionout.SessionRepository = (*RedisSessionRepository)(nil)

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// Put stores session until its ExpiresAt. A session that has already
// expired replaces nothing: its key is removed instead.
func (r *RedisSessionRepository) Put(ctx context.Context, session domain.UserSession) error {
	ttl := session.ExpiresAt.Sub(r.clock.Now())
	if ttl < time.Millisecond {
		return r.Delete(ctx, session.UserID)
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.UserID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) Get(ctx context.Context, userID string) (domain.UserSession, bool, error) {
	payload, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserSession{}, false, nil
	}
	if err != nil {
		return domain.UserSession{}, false, fmt.Errorf("read session: %w", err)
	}
	var session domain.UserSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.UserSession{}, false, fmt.Errorf("decode session: %w", err)
	}
	return session, true, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired scans the session keys and removes those expired at now.
// Undecodable entries are removed as well.
func (r *RedisSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		payload, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("read session: %w", err)
		}
		var session domain.UserSession
		if err := json.Unmarshal(payload, &session); err == nil && !session.Expired(now) {
			continue
		}
		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return removed, fmt.Errorf("delete session: %w", err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan sessions: %w", err)
	}
	return removed, nil
}
