package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sechic/backend/internal/domain/catalog"
	"github.com/sechic/backend/internal/domain/integration"
	"github.com/sechic/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Stores bundles the short-lived state stores of the service
type Stores struct {
	Batches  catalog.BatchRepository
	Progress integration.ProgressStore
	Lock     integration.SyncLock

	// Backend names the implementation in use: "redis" or "memory"
	Backend string

	closers []func() error
	ping    func(ctx context.Context) error
}

// Ping checks the backing store. In-memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the Redis client or stops in-memory sweepers
func (s *Stores) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StoreFactory creates the state stores based on configuration
type StoreFactory struct {
	redisConfig           config.RedisConfig
	batchTTL              time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithBatchTTL sets how long untouched draft batches are kept
func WithBatchTTL(ttl time.Duration) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.batchTTL = ttl
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig:           cfg,
		batchTTL:              DefaultBatchTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStores creates Redis-backed stores sharing one client
func (f *StoreFactory) CreateRedisStores() (*Stores, error) {
	client, err := NewRedisClient(f.redisConfig)
	if err != nil {
		return nil, err
	}
	return NewRedisStores(client, f.batchTTL), nil
}

// NewRedisStores creates Redis-backed stores on an existing client
func NewRedisStores(client *redis.Client, batchTTL time.Duration) *Stores {
	return &Stores{
		Batches:  NewRedisBatchStore(client, batchTTL),
		Progress: NewRedisProgressStore(client),
		Lock:     NewRedisSyncLock(client),
		Backend:  "redis",
		closers:  []func() error{client.Close},
		ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// CreateInMemoryStores creates process-local stores.
// State is not shared across instances, so two instances may sync the same company at once.
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	lock := NewInMemorySyncLock(0)
	return &Stores{
		Batches:  NewInMemoryBatchStore(f.batchTTL),
		Progress: NewInMemoryProgressStore(),
		Lock:     lock,
		Backend:  "memory",
		closers:  []func() error{lock.Close},
	}
}

// CreateStores uses Redis when it is enabled and reachable, and falls back to
// in-memory stores when allowed
func (f *StoreFactory) CreateStores() (*Stores, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory state stores")
		return f.CreateInMemoryStores(), nil
	}

	stores, err := f.CreateRedisStores()
	if err == nil {
		f.logger.Info("Using Redis state stores", zap.String("addr", f.redisConfig.Addr()))
		return stores, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for state stores but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory state stores. "+
		"Sync flags are not shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStores(), nil
}
