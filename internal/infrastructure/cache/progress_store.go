package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sechic/backend/internal/domain/integration"
)

const (
	progressKeyPrefix = "sync_progress_"

	// maxWatchRetries bounds optimistic retries of one progress write
	maxWatchRetries = 10
)

// ErrProgressContention is returned when a progress write keeps losing optimistic races
var ErrProgressContention = errors.New("cache: progress record modified concurrently")

// ProgressKey returns the key holding a company's refresh progress
func ProgressKey(companyID string) string {
	return progressKeyPrefix + companyID
}

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

// RedisProgressStore keeps refresh progress records in Redis.
// Writes are read-modify-write cycles guarded by WATCH.
type RedisProgressStore struct {
	client *redis.Client
}

// NewRedisProgressStore creates a progress store on an existing client
func NewRedisProgressStore(client *redis.Client) *RedisProgressStore {
	return &RedisProgressStore{client: client}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readProgress(ctx context.Context, r stringGetter, key string) (*integration.RefreshProgress, error) {
	data, err := r.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, integration.ErrNoRefresh
		}
		return nil, fmt.Errorf("failed to load refresh progress: %w", err)
	}
	return decodeProgress(data)
}

// Get returns the record, or integration.ErrNoRefresh
func (s *RedisProgressStore) Get(ctx context.Context, companyID string) (*integration.RefreshProgress, error) {
	return readProgress(ctx, s.client, ProgressKey(companyID))
}

// TryStart stores p unless a running record exists
func (s *RedisProgressStore) TryStart(ctx context.Context, companyID string, p *integration.RefreshProgress) (bool, error) {
	key := ProgressKey(companyID)
	data, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("failed to encode refresh progress: %w", err)
	}

	var started bool
	err = s.watch(ctx, key, func(tx *redis.Tx) error {
		started = false
		current, err := readProgress(ctx, tx, key)
		if err != nil && !errors.Is(err, integration.ErrNoRefresh) {
			return err
		}
		if current != nil && current.Running() {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, p.TTL())
			return nil
		})
		started = err == nil
		return err
	})
	return started, err
}

// Update applies fn to the stored record and writes it back with the TTL of its new state
func (s *RedisProgressStore) Update(ctx context.Context, companyID string, fn func(p *integration.RefreshProgress)) (*integration.RefreshProgress, error) {
	key := ProgressKey(companyID)

	var updated *integration.RefreshProgress
	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		p, err := readProgress(ctx, tx, key)
		if err != nil {
			return err
		}
		fn(p)
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode refresh progress: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, p.TTL())
			return nil
		})
		if err == nil {
			updated = p
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisProgressStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for range maxWatchRetries {
		err := s.client.Watch(ctx, fn, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return ErrProgressContention
}

func decodeProgress(data []byte) (*integration.RefreshProgress, error) {
	var p integration.RefreshProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode refresh progress: %w", err)
	}
	return &p, nil
}

// ---------------------------------------------------------------------------
// In-memory
// ---------------------------------------------------------------------------

type storedProgress struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryProgressStore keeps refresh progress records in process memory
type InMemoryProgressStore struct {
	mu      sync.Mutex
	records map[string]storedProgress
	now     func() time.Time
}

// NewInMemoryProgressStore creates an in-memory progress store
func NewInMemoryProgressStore() *InMemoryProgressStore {
	return &InMemoryProgressStore{
		records: make(map[string]storedProgress),
		now:     time.Now,
	}
}

// load must be called with mu held
func (s *InMemoryProgressStore) load(companyID string) (*integration.RefreshProgress, error) {
	stored, ok := s.records[companyID]
	if !ok {
		return nil, integration.ErrNoRefresh
	}
	if !s.now().Before(stored.expiresAt) {
		delete(s.records, companyID)
		return nil, integration.ErrNoRefresh
	}
	return decodeProgress(stored.data)
}

// store must be called with mu held
func (s *InMemoryProgressStore) store(companyID string, p *integration.RefreshProgress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode refresh progress: %w", err)
	}
	s.records[companyID] = storedProgress{data: data, expiresAt: s.now().Add(p.TTL())}
	return nil
}

// Get returns a copy of the record, or integration.ErrNoRefresh
func (s *InMemoryProgressStore) Get(_ context.Context, companyID string) (*integration.RefreshProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(companyID)
}

// TryStart stores p unless a running record exists
func (s *InMemoryProgressStore) TryStart(_ context.Context, companyID string, p *integration.RefreshProgress) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(companyID)
	if err != nil && !errors.Is(err, integration.ErrNoRefresh) {
		return false, err
	}
	if current != nil && current.Running() {
		return false, nil
	}
	if err := s.store(companyID, p); err != nil {
		return false, err
	}
	return true, nil
}

// Update applies fn to the stored record under the store lock
func (s *InMemoryProgressStore) Update(_ context.Context, companyID string, fn func(p *integration.RefreshProgress)) (*integration.RefreshProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load(companyID)
	if err != nil {
		return nil, err
	}
	fn(p)
	if err := s.store(companyID, p); err != nil {
		return nil, err
	}
	return p, nil
}

var (
	_ integration.ProgressStore = (*RedisProgressStore)(nil)
	_ integration.ProgressStore = (*InMemoryProgressStore)(nil)
)
