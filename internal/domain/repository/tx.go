package repository

import "context"

// Repos agrupa los repositorios atados a un mismo alcance: una transacción o, fuera de ella, el pool.
type Repos struct {
	Inventory InventoryRepository
	Ledger    InventoryTransactionRepository
	Vouchers  VoucherRepository
	Transfers StockTransferRepository
	Sales     SaleRepository
	Customers CustomerRepository
}

// TxRunner ejecuta fn dentro de una transacción serializable, pasando repositorios atados a ella.
// Commit si fn devuelve nil; Rollback en cualquier otro caso. Los conflictos de serialización
// se reintentan dentro del runner; si se agotan devuelve *domain.StoreConflictError.
// fn puede ejecutarse más de una vez y no debe tener efectos fuera de repos.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}
