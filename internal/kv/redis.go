package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisScanCount is the SCAN page size hint.
const redisScanCount = 200

// RedisOptions configures a redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisBackend stores every namespace in one redis database. Keys are laid out
// as <prefix><namespace>:<key>; expiry uses native TTLs.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to redis and verifies the connection.
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, errors.New("kv: redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: redis ping: %w", errPing)
	}
	return NewRedisBackendFromClient(client, opts.KeyPrefix), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// Namespace returns the store for name.
func (b *RedisBackend) Namespace(name string) Store {
	return &redisStore{client: b.client, base: b.prefix + name + ":"}
}

// Close closes the redis client.
func (b *RedisBackend) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

type redisStore struct {
	client *redis.Client
	base   string
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.base+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv: redis get %s: %w", key, err)
	}
	return value, nil
}

func (s *redisStore) Put(ctx context.Context, key string, value []byte, opts ...PutOption) error {
	options := resolvePutOptions(opts)
	if err := s.client.Set(ctx, s.base+key, value, options.TTL).Err(); err != nil {
		return fmt.Errorf("kv: redis set %s: %w", key, err)
	}
	return nil
}

func (s *redisStore) PutIfAbsent(ctx context.Context, key string, value []byte, opts ...PutOption) (bool, error) {
	options := resolvePutOptions(opts)
	created, err := s.client.SetNX(ctx, s.base+key, value, options.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("kv: redis setnx %s: %w", key, err)
	}
	return created, nil
}

func (s *redisStore) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.base+prefix) + "*"
	iter := s.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), s.base)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv: redis scan %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.base+key).Err(); err != nil {
		return fmt.Errorf("kv: redis del %s: %w", key, err)
	}
	return nil
}

// escapeGlob escapes the characters redis MATCH treats as pattern syntax.
func escapeGlob(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
