package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keshon/cmdguard/internal/cooldown"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps cooldown records in one sorted set, member = id and
// score = expiry in unix milliseconds.
type RedisStore struct {
	rdb   *redis.Client
	key   string
	owned bool
}

type RedisOption func(*RedisStore)

// WithRedisPrefix namespaces the sorted set key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		prefix = strings.Trim(prefix, ":")
		if prefix != "" {
			s.key = prefix + ":cooldowns"
		}
	}
}

// OpenRedis dials and pings a Redis server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	s := NewRedisStore(rdb, WithRedisPrefix(opts.Prefix))
	s.owned = true
	return s, nil
}

// NewRedisStore wraps an existing client; Close leaves the client open.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, key: "cmdguard:cooldowns"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Driver() string { return DriverRedis }

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	// "(" makes the bound exclusive: records expiring exactly at before stay
	maxScore := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	n, err := s.rdb.ZRemRangeByScore(ctx, s.key, "-inf", maxScore).Result()
	if err != nil {
		return 0, fmt.Errorf("redis delete expired: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) LoadAll(ctx context.Context) ([]cooldown.Record, error) {
	zs, err := s.rdb.ZRangeWithScores(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}

	out := make([]cooldown.Record, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, cooldown.Record{ID: id, Expires: time.UnixMilli(int64(z.Score)).UTC()})
	}
	return out, nil
}

func (s *RedisStore) Upsert(ctx context.Context, rec cooldown.Record) error {
	err := s.rdb.ZAdd(ctx, s.key, redis.Z{
		Score:  float64(rec.Expires.UnixMilli()),
		Member: rec.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.ZRem(ctx, s.key, id).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
