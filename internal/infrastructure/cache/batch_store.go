package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sechic/backend/internal/domain/catalog"
)

const (
	// DefaultBatchTTL is how long an untouched draft batch is kept
	DefaultBatchTTL = 24 * time.Hour

	batchKeyPrefix = "batch:"
)

// ---------------------------------------------------------------------------
// Redis
// ---------------------------------------------------------------------------

// RedisBatchStore keeps draft batches as JSON documents with a sliding TTL
type RedisBatchStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBatchStore creates a batch store on an existing client
func NewRedisBatchStore(client *redis.Client, ttl time.Duration) *RedisBatchStore {
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}
	return &RedisBatchStore{client: client, ttl: ttl}
}

// FindByID returns the batch or catalog.ErrBatchNotFound
func (s *RedisBatchStore) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Batch, error) {
	data, err := s.client.Get(ctx, batchKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, catalog.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}
	return decodeBatch(data)
}

// Save stores the batch and restarts its TTL.
// The version check and the write run under WATCH on the batch key.
func (s *RedisBatchStore) Save(ctx context.Context, batch *catalog.Batch) error {
	key := batchKeyPrefix + batch.ID.String()
	data, err := encodeNextVersion(batch)
	if err != nil {
		return err
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if err := checkVersion(current, batch.Version); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return catalog.ErrBatchConflict
	case errors.Is(err, catalog.ErrBatchConflict), errors.Is(err, catalog.ErrBatchNotFound):
		return err
	case err != nil:
		return fmt.Errorf("failed to save batch: %w", err)
	}
	batch.Version++
	return nil
}

// Delete removes the batch
func (s *RedisBatchStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Del(ctx, batchKeyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

// encodeNextVersion encodes batch as it will be stored after a successful save
func encodeNextVersion(batch *catalog.Batch) ([]byte, error) {
	next := *batch
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	return data, nil
}

// checkVersion compares the stored document, nil when absent, with the version the caller loaded
func checkVersion(stored []byte, loaded int64) error {
	if stored == nil {
		if loaded != 0 {
			return catalog.ErrBatchNotFound
		}
		return nil
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(stored, &head); err != nil {
		return fmt.Errorf("failed to decode batch: %w", err)
	}
	if head.Version != loaded {
		return catalog.ErrBatchConflict
	}
	return nil
}

func decodeBatch(data []byte) (*catalog.Batch, error) {
	var batch catalog.Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &batch, nil
}

// ---------------------------------------------------------------------------
// In-memory
// ---------------------------------------------------------------------------

type storedBatch struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryBatchStore keeps draft batches in process memory.
// Batches are stored encoded so callers never share a copy.
type InMemoryBatchStore struct {
	mu      sync.Mutex
	batches map[uuid.UUID]storedBatch
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryBatchStore creates an in-memory batch store
func NewInMemoryBatchStore(ttl time.Duration) *InMemoryBatchStore {
	if ttl <= 0 {
		ttl = DefaultBatchTTL
	}
	return &InMemoryBatchStore{
		batches: make(map[uuid.UUID]storedBatch),
		ttl:     ttl,
		now:     time.Now,
	}
}

// FindByID returns the batch or catalog.ErrBatchNotFound
func (s *InMemoryBatchStore) FindByID(_ context.Context, id uuid.UUID) (*catalog.Batch, error) {
	s.mu.Lock()
	stored, ok := s.batches[id]
	if ok && !s.now().Before(stored.expiresAt) {
		delete(s.batches, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, catalog.ErrBatchNotFound
	}
	return decodeBatch(stored.data)
}

// Save stores the batch and restarts its TTL
func (s *InMemoryBatchStore) Save(_ context.Context, batch *catalog.Batch) error {
	data, err := encodeNextVersion(batch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	var current []byte
	if stored, ok := s.batches[batch.ID]; ok {
		current = stored.data
	}
	if err := checkVersion(current, batch.Version); err != nil {
		return err
	}
	s.batches[batch.ID] = storedBatch{data: data, expiresAt: s.now().Add(s.ttl)}
	batch.Version++
	return nil
}

// Delete removes the batch
func (s *InMemoryBatchStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, id)
	return nil
}

// evictExpired must be called with mu held
func (s *InMemoryBatchStore) evictExpired() {
	now := s.now()
	for id, stored := range s.batches {
		if !now.Before(stored.expiresAt) {
			delete(s.batches, id)
		}
	}
}

var (
	_ catalog.BatchRepository = (*RedisBatchStore)(nil)
	_ catalog.BatchRepository = (*InMemoryBatchStore)(nil)
)
