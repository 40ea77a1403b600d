package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	cfg "github.com/voicevision/voicevision/config"
)

const redisKeyPrefix = "vv:session:"

var ErrNotFound = errors.New("session not found")

type Store interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, s *State) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open builds the store named in the configuration.
func Open(ctx context.Context, c cfg.Session, log *logrus.Logger) (Store, error) {
	ttl := cfg.DurSeconds(c.TTL)
	switch c.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect redis %s: %w", c.RedisAddr, err)
		}
		log.WithField("addr", c.RedisAddr).Info("session store: redis")
		return NewRedisStore(client, ttl), nil
	case "memory", "":
		log.Info("session store: memory")
		return NewMemoryStore(ttl), nil
	}
	return nil, fmt.Errorf("unknown session store %q", c.Store)
}

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps encoded sessions in a map. Entries expire ttl after
// their last save.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: map[string]memEntry{}, ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*State, error) {
	m.mu.Lock()
	e, ok := m.items[id]
	if ok && m.ttl > 0 && !m.now().Before(e.expires) {
		delete(m.items, id)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s State
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *State) error {
	now := m.now()
	s.UpdatedAt = now
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	m.items[s.ID] = memEntry{data: b, expires: now.Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many went.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.items {
		if !now.Before(e.expires) {
			delete(m.items, id)
			n++
		}
	}
	return n
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *MemoryStore) Close() error { return nil }

// RedisStore keeps each session as one JSON string whose TTL is refreshed on
// every save.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Get(ctx context.Context, id string) (*State, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *State) error {
	s.UpdatedAt = time.Now()
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *RedisStore) Close() error { return r.client.Close() }
