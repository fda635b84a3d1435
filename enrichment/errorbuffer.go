package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/actionmesh/core"
	"github.com/redis/go-redis/v9"
)

// ErrorBuffer keeps the most recent client-side errors of chat sessions.
// Implementations bound the number of entries per session and drop entries
// older than their TTL.
type ErrorBuffer interface {
	Add(ctx context.Context, sessionID string, e core.PlatformError) error
	// Recent returns the live entries of a session, oldest first.
	Recent(ctx context.Context, sessionID string) ([]core.PlatformError, error)
}

// RingBuffer is a process-local ErrorBuffer guarded by a mutex.
type RingBuffer struct {
	mu       sync.Mutex
	size     int
	ttl      time.Duration
	now      func() time.Time
	sessions map[string][]core.PlatformError
}

var _ ErrorBuffer = (*RingBuffer)(nil)

// NewRingBuffer creates a buffer holding at most size entries per session for
// at most ttl.
func NewRingBuffer(size int, ttl time.Duration) *RingBuffer {
	if size <= 0 {
		size = 10
	}
	return &RingBuffer{size: size, ttl: ttl, now: time.Now, sessions: make(map[string][]core.PlatformError)}
}

// Add implements ErrorBuffer.
func (b *RingBuffer) Add(_ context.Context, sessionID string, e core.PlatformError) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := append(b.sessions[sessionID], e)
	if len(entries) > b.size {
		entries = slices.Clone(entries[len(entries)-b.size:])
	}
	b.sessions[sessionID] = entries
	return nil
}

// Recent implements ErrorBuffer.
func (b *RingBuffer) Recent(_ context.Context, sessionID string) ([]core.PlatformError, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.pruneLocked(sessionID)
	return slices.Clone(live), nil
}

// Prune drops expired entries of every session.
func (b *RingBuffer) Prune() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.sessions {
		b.pruneLocked(id)
	}
}

func (b *RingBuffer) pruneLocked(sessionID string) []core.PlatformError {
	entries := b.sessions[sessionID]
	if b.ttl > 0 {
		cutoff := b.now().Add(-b.ttl)
		entries = slices.DeleteFunc(entries, func(e core.PlatformError) bool { return e.OccurredAt.Before(cutoff) })
	}
	if len(entries) == 0 {
		delete(b.sessions, sessionID)
		return nil
	}
	b.sessions[sessionID] = entries
	return entries
}

// Run prunes the buffer every interval until ctx is cancelled.
func (b *RingBuffer) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Prune()
		}
	}
}

// RedisBuffer is an ErrorBuffer shared across instances through Redis lists.
type RedisBuffer struct {
	client redis.Cmdable
	size   int
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

var _ ErrorBuffer = (*RedisBuffer)(nil)

// NewRedisBuffer creates a Redis backed buffer.
func NewRedisBuffer(client redis.Cmdable, size int, ttl time.Duration) *RedisBuffer {
	if size <= 0 {
		size = 10
	}
	return &RedisBuffer{client: client, size: size, ttl: ttl, prefix: "actionmesh:errors:", now: time.Now}
}

func (b *RedisBuffer) key(sessionID string) string { return b.prefix + sessionID }

// Add implements ErrorBuffer. The list is capped and its expiry refreshed in
// the same transaction.
func (b *RedisBuffer) Add(ctx context.Context, sessionID string, e core.PlatformError) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.now()
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode platform error: %w", err)
	}
	key := b.key(sessionID)
	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, int64(b.size-1))
	if b.ttl > 0 {
		pipe.Expire(ctx, key, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis error buffer: %w", err)
	}
	return nil
}

// Recent implements ErrorBuffer.
func (b *RedisBuffer) Recent(ctx context.Context, sessionID string) ([]core.PlatformError, error) {
	vals, err := b.client.LRange(ctx, b.key(sessionID), 0, int64(b.size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error buffer: %w", err)
	}
	cutoff := b.now().Add(-b.ttl)
	out := make([]core.PlatformError, 0, len(vals))
	// LPUSH stores newest first.
	for i := len(vals) - 1; i >= 0; i-- {
		var e core.PlatformError
		if err := json.Unmarshal([]byte(vals[i]), &e); err != nil {
			continue
		}
		if b.ttl > 0 && e.OccurredAt.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
