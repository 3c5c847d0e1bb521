package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance pointing at the same redis.
// Keys expire after TTL so a crashed holder cannot block an invoice forever.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

// RedisOption customizes a RedisLocker.
type RedisOption func(*RedisLocker)

func WithPrefix(p string) RedisOption { return func(l *RedisLocker) { l.prefix = p } }

func WithRetryInterval(d time.Duration) RedisOption { return func(l *RedisLocker) { l.retry = d } }

func WithLogger(log zerolog.Logger) RedisOption { return func(l *RedisLocker) { l.log = log } }

func NewRedisLocker(client *redis.Client, ttl time.Duration, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client: client,
		prefix: "invoicing:lock:",
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Connect parses a redis URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// release with a fresh context: the caller's may already be cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.log.Warn().Err(err).Str("key", key).Msg("release lock")
		}
	}, nil
}
