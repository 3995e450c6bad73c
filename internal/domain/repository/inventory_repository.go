package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// InventoryRepository define el puerto para consultar/actualizar stock y costo por SKU+sucursal.
// Usado dentro de transacciones para garantizar consistencia.
type InventoryRepository interface {
	// Get devuelve el registro o uno en cero si la clave no tiene historial.
	Get(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error)
	// GetForUpdate igual que Get pero marca la clave como leída para escribir (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, sku, branchID string) (*entity.InventoryRecord, error)
	// GetManyForUpdate lee en lote todas las claves de una sucursal antes de cualquier escritura.
	GetManyForUpdate(ctx context.Context, branchID string, skus []string) (map[string]*entity.InventoryRecord, error)
	Upsert(ctx context.Context, record *entity.InventoryRecord) error
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.InventoryRecord, error)
}
