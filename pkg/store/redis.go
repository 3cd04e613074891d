package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOpts configures the Redis connection for serve mode.
type RedisOpts struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration // default 5s
}

// Redis backs both the KV (idempotency marks) and Blob (ledgers) interfaces
// with a single go-redis client. Marks rely on Redis-native TTLs; ledgers
// are plain string values rewritten whole on every append.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(opts RedisOpts) (*Redis, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &Redis{rdb: rdb}, nil
}

// NewRedisWithClient wraps an existing client. Intended for tests.
func NewRedisWithClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *Redis) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

// AsBlob exposes the Redis store under the Blob interface. Keys are
// flattened because ledger keys carry slashes.
func (r *Redis) AsBlob() Blob { return redisBlob{r} }

type redisBlob struct{ r *Redis }

func (b redisBlob) Get(ctx context.Context, key string) (string, error) {
	val, _, err := b.r.Get(ctx, sanitizeKey(key))
	return val, err
}

func (b redisBlob) Put(ctx context.Context, key, content string) error {
	return b.r.rdb.Set(ctx, sanitizeKey(key), content, 0).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
