package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// TransactionFilter filtros para listar filas del libro. Campos vacíos no filtran.
type TransactionFilter struct {
	SKU       string
	BranchID  string
	VoucherID string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// InventoryTransactionRepository define el puerto del libro de inventario (solo inserción).
type InventoryTransactionRepository interface {
	// Create inserta la fila y asigna ID y Seq si vienen vacíos.
	Create(ctx context.Context, row *entity.InventoryTransaction) error
	// ListByKey devuelve todas las filas de la clave en orden de Seq ascendente.
	ListByKey(ctx context.Context, sku, branchID string) ([]*entity.InventoryTransaction, error)
	// List devuelve filas filtradas, más recientes primero.
	List(ctx context.Context, filter TransactionFilter) ([]*entity.InventoryTransaction, error)
	SumDeltas(ctx context.Context, sku, branchID string) (int64, error)
}
