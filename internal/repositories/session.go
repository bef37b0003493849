package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
)

// SessionRepository keeps browser session values in Redis hashes.
type SessionRepository struct {
	client *redis.Client
	exp    time.Duration // idle expiration of a session
}

// NewSessionRepository creates a repository whose sessions expire after exp of inactivity.
func NewSessionRepository(client *redis.Client, expiration time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		exp:    expiration,
	}
}

func sessionKey(id string) string {
	return "session:" + id
}

// Load returns the values of the session, empty when it does not exist or expired.
func (r *SessionRepository) Load(ctx context.Context, id string) (map[string]string, error) {
	key := sessionKey(id)
	values, err := r.client.HGetAll(ctx, key).Result()

	logger.FromContext(ctx).Debugw("session loaded",
		"key", key,
		"fields", len(values),
		"error", err,
	)

	if err != nil {
		return nil, err
	}
	return values, nil
}

// Save replaces the session values and refreshes its expiration.
func (r *SessionRepository) Save(ctx context.Context, id string, values map[string]string) error {
	key := sessionKey(id)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			args := make([]any, 0, 2*len(values))
			for k, v := range values {
				args = append(args, k, v)
			}
			pipe.HSet(ctx, key, args...)
			pipe.Expire(ctx, key, r.exp)
		}
		return nil
	})

	logger.FromContext(ctx).Debugw("session saved",
		"key", key,
		"fields", len(values),
		"error", err,
	)

	return err
}

// Delete removes the session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	key := sessionKey(id)
	err := r.client.Del(ctx, key).Err()

	logger.FromContext(ctx).Debugw("session deleted",
		"key", key,
		"error", err,
	)

	return err
}

// Ping checks that Redis is reachable.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
