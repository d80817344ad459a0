package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the shared counter/lock capability behind sender rate limits,
// per-panel throttling and command cooldowns. The redis implementation is
// safe across process instances; the in-memory fallback is single-instance
// only.
type Store interface {
	// TryAcquire counts one hit against key's window and reports whether
	// the count stays within limit. When denied, retryAfter is the time
	// until the window frees up.
	TryAcquire(ctx context.Context, key string, limit int, window time.Duration) (ok bool, retryAfter time.Duration, err error)

	// SetNX places an expiring lock. Returns false when an unexpired lock
	// already exists.
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// TTL returns the remaining life of a lock, zero when absent or expired.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type redisStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStore) TryAcquire(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	k := s.prefix + ":" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}
	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return false, ttl, nil
}

func (s *redisStore) SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+":"+key, "1", ttl).Result()
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.prefix+":"+key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

type memoryStore struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	locks  map[string]time.Time
	nextGC time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		hits:   make(map[string][]time.Time),
		locks:  make(map[string]time.Time),
		nextGC: time.Now().Add(10 * time.Minute),
	}
}

func (s *memoryStore) TryAcquire(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gc(now)

	cutoff := now.Add(-window)
	kept := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		s.hits[key] = kept
		return false, kept[0].Add(window).Sub(now), nil
	}

	s.hits[key] = append(kept, now)
	return true, 0, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gc(now)

	if exp, ok := s.locks[key]; ok && exp.After(now) {
		return false, nil
	}
	s.locks[key] = now.Add(ttl)
	return true, nil
}

func (s *memoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.locks[key]
	if !ok || !exp.After(now) {
		return 0, nil
	}
	return exp.Sub(now), nil
}

func (s *memoryStore) gc(now time.Time) {
	if now.Before(s.nextGC) {
		return
	}
	for key, exp := range s.locks {
		if exp.Before(now) {
			delete(s.locks, key)
		}
	}
	for key, hits := range s.hits {
		if len(hits) == 0 || hits[len(hits)-1].Add(time.Hour).Before(now) {
			delete(s.hits, key)
		}
	}
	s.nextGC = now.Add(10 * time.Minute)
}

// New builds a redis-backed store and falls back to in-memory on failure.
func New(addr, pass string, db int) (Store, error) {
	if addr == "" {
		return newMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return newMemoryStore(), err
	}

	return &redisStore{client: client, prefix: "smm"}, nil
}

// NewMemory returns the in-memory implementation directly. Used in tests
// and single-instance deployments without redis.
func NewMemory() Store {
	return newMemoryStore()
}
