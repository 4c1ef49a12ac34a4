package attribution

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store holds per-session attribution values that are written at most once.
type Store interface {
	Get(ctx context.Context, session, key string) (string, bool, error)
	SetIfAbsent(ctx context.Context, session, key, value string) (bool, error)
}

const keyPrefix = "attr:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(session, key string) string {
	return keyPrefix + session + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, session, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(session, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) SetIfAbsent(ctx context.Context, session, key, value string) (bool, error) {
	return s.client.SetNX(ctx, s.key(session, key), value, s.ttl).Result()
}

// MemoryStore is an in-process Store for tests and single-node setups
// without Redis. Entries never expire.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, session, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[session+":"+key]
	return v, ok, nil
}

func (s *MemoryStore) SetIfAbsent(_ context.Context, session, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := session + ":" + key
	if _, ok := s.values[k]; ok {
		return false, nil
	}
	s.values[k] = value
	return true, nil
}
