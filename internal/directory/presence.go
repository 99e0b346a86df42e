package directory

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence stores the last-seen marker for users.
type Presence interface {
	Touch(ctx context.Context, userID int) error
	LastSeen(ctx context.Context, ids []int) (map[int]time.Time, error)
}

// presence key: chat:presence:<user>
// Value: unix millis of the last activity, TTL bounds how long it counts.
func presenceKey(userID int) string { return "chat:presence:" + strconv.Itoa(userID) }

// RedisPresence keeps last-seen markers in redis.
type RedisPresence struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisPresence constructs a RedisPresence.
func NewRedisPresence(client *redis.Client, ttl time.Duration) *RedisPresence {
	return &RedisPresence{client: client, ttl: ttl, now: time.Now}
}

// Touch records now as the user's last activity and renews the TTL.
func (p *RedisPresence) Touch(ctx context.Context, userID int) error {
	ms := p.now().UTC().UnixMilli()
	return errors.Wrap(p.client.Set(ctx, presenceKey(userID), ms, p.ttl).Err(), "touch presence")
}

// LastSeen returns markers for the ids that have one.
func (p *RedisPresence) LastSeen(ctx context.Context, ids []int) (map[int]time.Time, error) {
	out := make(map[int]time.Time, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, presenceKey(id))
	}
	vals, err := p.client.MGet(ctx, keys...).Result()
	if errors.Is(err, redis.Nil) {
		return out, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read presence")
	}
	for i, val := range vals {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[ids[i]] = time.UnixMilli(ms).UTC()
	}
	return out, nil
}

// NoopPresence is used when no redis is configured.
type NoopPresence struct{}

func (NoopPresence) Touch(context.Context, int) error { return nil }

func (NoopPresence) LastSeen(_ context.Context, _ []int) (map[int]time.Time, error) {
	return map[int]time.Time{}, nil
}
