package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"admindeck-backend/internal/models"
)

const sessionKeyPrefix = "session:"

// sweepGrace keeps expired rows in redis long enough for PurgeExpired to
// observe and count them, mirroring the relational store where expired rows
// persist until a sweep.
const sweepGrace = 24 * time.Hour

// RedisSessionRepo is the redis-backed session store, for deployments that
// keep session state out of the dashboard database. Sessions are JSON values
// keyed by the token digest; revocation flips is_active in place and keeps
// the remaining TTL.
type RedisSessionRepo struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSessionRepo creates a redis-backed session repository.
func NewRedisSessionRepo(client *redis.Client) *RedisSessionRepo {
	return &RedisSessionRepo{client: client, now: time.Now}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + hashToken(token)
}

// Insert creates a new session record for the given plain token.
func (r *RedisSessionRepo) Insert(token string, s *models.Session) error {
	ctx := context.Background()
	s.TokenHash = hashToken(token)

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := s.ExpiresAt.Sub(r.now()) + sweepGrace
	ok, err := r.client.SetNX(ctx, sessionKey(token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if !ok {
		return fmt.Errorf("insert session: token already exists")
	}
	return nil
}

// FindValid retrieves the session for the given plain token if it is still
// active and unexpired at lookup time.
func (r *RedisSessionRepo) FindValid(token string) (*models.Session, error) {
	s, err := r.get(context.Background(), sessionKey(token))
	if err != nil {
		return nil, err
	}
	if s == nil || !s.Valid(r.now()) {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// TouchActivity updates last_activity if the session still matches the
// validity criteria; anything else is a no-op.
func (r *RedisSessionRepo) TouchActivity(token string) error {
	ctx := context.Background()
	key := sessionKey(token)
	s, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	if s == nil || !s.Valid(r.now()) {
		return nil
	}
	s.LastActivity = r.now()
	return r.put(ctx, key, s)
}

// Revoke marks the session inactive, keeping the record until it ages out or
// a sweep removes it. Unknown tokens are not an error.
func (r *RedisSessionRepo) Revoke(token string) error {
	ctx := context.Background()
	key := sessionKey(token)
	s, err := r.get(ctx, key)
	if err != nil {
		return err
	}
	if s == nil || !s.IsActive {
		return nil
	}
	s.IsActive = false
	return r.put(ctx, key, s)
}

// PurgeExpired scans the session keyspace and deletes every record past its
// expiry, returning the number actually removed. Records redis already aged
// out on its own are not counted; they are gone either way.
func (r *RedisSessionRepo) PurgeExpired() (int64, error) {
	ctx := context.Background()
	now := r.now()

	var deleted int64
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		s, err := r.get(ctx, key)
		if err != nil {
			return deleted, fmt.Errorf("purge expired sessions: %w", err)
		}
		if s == nil || !s.ExpiresAt.Before(now) {
			continue
		}

		n, err := r.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("purge expired sessions: %w", err)
		}
		deleted += n
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("purge expired sessions: %w", err)
	}
	return deleted, nil
}

// get loads the session stored under key. The token digest is not part of
// the JSON value, so it is restored from the key itself.
func (r *RedisSessionRepo) get(ctx context.Context, key string) (*models.Session, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	s.TokenHash = strings.TrimPrefix(key, sessionKeyPrefix)
	return &s, nil
}

// put writes the session back under the key it was read from.
func (r *RedisSessionRepo) put(ctx context.Context, key string, s *models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}
