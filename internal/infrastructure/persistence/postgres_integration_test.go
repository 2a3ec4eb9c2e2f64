//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/sechic/backend/internal/domain/pricing"
	"github.com/sechic/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a PostgreSQL container and applies the embedded migrations
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sechic_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_MarkupRepository(t *testing.T) {
	db := newPostgresDB(t)
	repo := NewGormMarkupRepository(db)
	ctx := context.Background()

	_, err := repo.Activate(ctx, "Acme Lda", decimal.RequireFromString("2"), "ana")
	require.NoError(t, err)
	second, err := repo.Activate(ctx, "ACME LDA", decimal.RequireFromString("2.5"), "ana")
	require.NoError(t, err)

	active, err := repo.GetActive(ctx, "acme lda")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	history, err := repo.History(ctx, "Acme Lda")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = repo.GetActive(ctx, "Nobody")
	assert.ErrorIs(t, err, pricing.ErrMarkupNotFound)
}

func TestPostgres_ERPProductRepository(t *testing.T) {
	db := newPostgresDB(t)
	repo := NewGormERPProductRepository(db)
	ctx := context.Background()

	for i, ref := range []string{"A", "B", "C"} {
		created, err := repo.Upsert(ctx, erpProduct(int64(i+1), ref))
		require.NoError(t, err)
		assert.True(t, created)
	}
	created, err := repo.Upsert(ctx, erpProduct(2, "B2"))
	require.NoError(t, err)
	assert.False(t, created)

	deleted, err := repo.DeleteMissing(ctx, []int64{2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B2", all[0].Reference)
}
