//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/cache"
)

func TestRedisStockCache(t *testing.T) {
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := cache.NewRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := cache.NewRedisStockCache(rdb)

	_, ok, err := c.Get(ctx, "SKU-1", "B1")
	require.NoError(t, err)
	assert.False(t, ok, "clave inexistente es un miss")

	in := &entity.InventoryRecord{
		SKU:           "SKU-1",
		BranchID:      "B1",
		StockQuantity: 15,
		AverageCost:   decimal.RequireFromString("120.333333"),
		LastUpdated:   time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, c.Set(ctx, in, time.Minute))

	got, ok, err := c.Get(ctx, "SKU-1", "B1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.StockQuantity, got.StockQuantity)
	assert.True(t, in.AverageCost.Equal(got.AverageCost))
	assert.True(t, in.LastUpdated.Equal(got.LastUpdated))

	ttl, err := rdb.TTL(ctx, "pos-ledger:stock:B1:SKU-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, ok, err = c.Get(ctx, "SKU-1", "B2")
	require.NoError(t, err)
	assert.False(t, ok, "la clave incluye la sucursal")
}
