package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sechic/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

// releaseScript deletes the flag only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisSyncLock implements integration.SyncLock with SET NX and a TTL.
// The stored value is the owner token.
type RedisSyncLock struct {
	client *redis.Client
}

// NewRedisSyncLock creates a sync lock on an existing client
func NewRedisSyncLock(client *redis.Client) *RedisSyncLock {
	return &RedisSyncLock{client: client}
}

// Acquire sets the flag unless it is already held
func (l *RedisSyncLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire sync flag: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release clears the flag if token still owns it
func (l *RedisSyncLock) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release sync flag: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory
// ---------------------------------------------------------------------------

type heldFlag struct {
	token     string
	expiresAt time.Time
}

// InMemorySyncLock implements integration.SyncLock for a single process.
// Expired flags are swept by a background goroutine until Close.
type InMemorySyncLock struct {
	mu        sync.Mutex
	held      map[string]heldFlag
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySyncLock creates an in-memory sync lock sweeping expired flags every interval
func NewInMemorySyncLock(interval time.Duration) *InMemorySyncLock {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	l := &InMemorySyncLock{
		held:     make(map[string]heldFlag),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.sweepLoop(interval)
	return l
}

// Acquire sets the flag unless an unexpired one is held
func (l *InMemorySyncLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if flag, ok := l.held[key]; ok && now.Before(flag.expiresAt) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = heldFlag{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release clears the flag if token still owns it
func (l *InMemorySyncLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if flag, ok := l.held[key]; ok && flag.token == token {
		delete(l.held, key)
	}
	return nil
}

// Held reports how many unexpired flags are set
func (l *InMemorySyncLock) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	now := l.now()
	for _, flag := range l.held {
		if now.Before(flag.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemorySyncLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemorySyncLock) sweepLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *InMemorySyncLock) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, flag := range l.held {
		if !now.Before(flag.expiresAt) {
			delete(l.held, key)
		}
	}
}

var (
	_ integration.SyncLock = (*RedisSyncLock)(nil)
	_ integration.SyncLock = (*InMemorySyncLock)(nil)
)
