package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

// IdempotencyRecord is a finished response kept for replay.
type IdempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// ReserveResult is one of three outcomes: the caller now owns the key (Reserved),
// an earlier request finished (Record set), or an earlier request is still running.
type ReserveResult struct {
	Reserved bool
	Record   *IdempotencyRecord
}

func (r ReserveResult) InProgress() bool { return !r.Reserved && r.Record == nil }

// IdempotencyStore holds a key as pending for the pendingTTL given to Reserve, then
// keeps the finished record for the ttl given to Complete. A pending marker that
// outlives its request expires on its own.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, pendingTTL time.Duration) (ReserveResult, error)
	Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

const pendingMarker = "pending"

type redisIdempotencyStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewIdempotencyStore(log *logger.Logger, rdb goredis.UniversalClient, prefix string) IdempotencyStore {
	return &redisIdempotencyStore{
		log:    log.With("service", "RedisIdempotencyStore"),
		rdb:    rdb,
		prefix: prefix,
	}
}

func (s *redisIdempotencyStore) key(k string) string {
	if s.prefix == "" {
		return "idem:" + k
	}
	return s.prefix + ":idem:" + k
}

func (s *redisIdempotencyStore) Reserve(ctx context.Context, key string, pendingTTL time.Duration) (ReserveResult, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(key), pendingMarker, pendingTTL).Result()
	if err != nil {
		return ReserveResult{}, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return ReserveResult{Reserved: true}, nil
	}
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err = s.rdb.SetNX(ctx, s.key(key), pendingMarker, pendingTTL).Result()
		if err != nil {
			return ReserveResult{}, fmt.Errorf("idempotency reserve: %w", err)
		}
		return ReserveResult{Reserved: ok}, nil
	}
	if err != nil {
		return ReserveResult{}, fmt.Errorf("idempotency lookup: %w", err)
	}
	if string(raw) == pendingMarker {
		return ReserveResult{}, nil
	}
	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.log.Warn("Dropping unreadable idempotency record", "error", err)
		return ReserveResult{}, nil
	}
	return ReserveResult{Record: &rec}, nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(key), raw, ttl).Err()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

type memoryEntry struct {
	rec     *IdempotencyRecord
	expires time.Time
}

// MemoryIdempotencyStore serves single-instance deployments without redis.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, pendingTTL time.Duration) (ReserveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if e.rec == nil {
			return ReserveResult{}, nil
		}
		rec := *e.rec
		return ReserveResult{Record: &rec}, nil
	}
	s.entries[key] = memoryEntry{expires: now.Add(pendingTTL)}
	s.sweep(now)
	return ReserveResult{Reserved: true}, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, rec IdempotencyRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{rec: &rec, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryIdempotencyStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
