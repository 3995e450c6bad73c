// Package cache implementa la caché de lectura de stock sobre Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

const keyPrefix = "pos-ledger:stock:"

var _ ledger.StockCache = (*RedisStockCache)(nil)

// NewRedis crea el cliente desde una URL redis:// y valida la conexión.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// RedisStockCache guarda registros de inventario serializados en JSON con TTL.
type RedisStockCache struct {
	rdb *redis.Client
}

// NewRedisStockCache construye la caché.
func NewRedisStockCache(rdb *redis.Client) *RedisStockCache {
	return &RedisStockCache{rdb: rdb}
}

type cachedRecord struct {
	SKU           string    `json:"sku"`
	BranchID      string    `json:"branch_id"`
	StockQuantity int64     `json:"stock_quantity"`
	AverageCost   string    `json:"average_cost"`
	LastUpdated   time.Time `json:"last_updated"`
}

func stockKey(sku, branchID string) string {
	return keyPrefix + branchID + ":" + sku
}

// Get devuelve ok=false si la clave no está en caché.
func (c *RedisStockCache) Get(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, bool, error) {
	raw, err := c.rdb.Get(ctx, stockKey(sku, branchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	var cr cachedRecord
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, false, fmt.Errorf("redis: decodificar registro: %w", err)
	}
	rec := &entity.InventoryRecord{
		SKU:           cr.SKU,
		BranchID:      cr.BranchID,
		StockQuantity: cr.StockQuantity,
		LastUpdated:   cr.LastUpdated,
	}
	if err := rec.AverageCost.UnmarshalText([]byte(cr.AverageCost)); err != nil {
		return nil, false, fmt.Errorf("redis: costo promedio: %w", err)
	}
	return rec, true, nil
}

// Set guarda el registro con el TTL indicado.
func (c *RedisStockCache) Set(ctx context.Context, rec *entity.InventoryRecord, ttl time.Duration) error {
	raw, err := json.Marshal(cachedRecord{
		SKU:           rec.SKU,
		BranchID:      rec.BranchID,
		StockQuantity: rec.StockQuantity,
		AverageCost:   rec.AverageCost.String(),
		LastUpdated:   rec.LastUpdated,
	})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, stockKey(rec.SKU, rec.BranchID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}
