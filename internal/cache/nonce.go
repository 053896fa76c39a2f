package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers keys for a while.
type NonceStore interface {
	// Remember stores key for ttl. It reports false when key is already
	// remembered and has not expired.
	Remember(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var (
	_ NonceStore = (*MemoryNonceStore)(nil)
	_ NonceStore = (*RedisNonceStore)(nil)
)

// MemoryNonceStore keeps nonces in process. Expired entries are purged lazily
// on writes. Suitable for single-instance deployments.
type MemoryNonceStore struct {
	mu        sync.Mutex
	items     map[string]time.Time
	lastPurge time.Time
	now       func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

func (m *MemoryNonceStore) Remember(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiresAt, ok := m.items[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	m.items[key] = now.Add(ttl)

	if now.Sub(m.lastPurge) >= ttl {
		for k, expiresAt := range m.items {
			if !now.Before(expiresAt) {
				delete(m.items, k)
			}
		}
		m.lastPurge = now
	}
	return true, nil
}

// Len reports the number of remembered nonces, expired ones included.
func (m *MemoryNonceStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// RedisNonceStore shares nonces between instances through SET NX.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore connects to Redis and fails when it does not answer a PING.
func NewRedisNonceStore(opts *redis.Options, prefix string) (*RedisNonceStore, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return &RedisNonceStore{client: client, prefix: prefix}, nil
}

func (r *RedisNonceStore) Remember(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := r.client.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("remember nonce: %w", err)
	}
	return stored, nil
}

func (r *RedisNonceStore) Close() error {
	return r.client.Close()
}
