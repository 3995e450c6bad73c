package memory

import (
	"context"
	"strings"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

const (
	collInventory = "inventory"
	collVoucher   = "voucher"
	collTransfer  = "transfer"
	collSale      = "sale"
	collCustomer  = "customer"
)

func readKey(coll, id string) string { return coll + "/" + id }

func splitReadKey(key string) (coll, id string) {
	coll, id, _ = strings.Cut(key, "/")
	return coll, id
}

func inventoryKey(sku, branchID string) string { return branchID + "|" + sku }

func ledgerKey(voucherID, sku, branchID string) string {
	return voucherID + "|" + sku + "|" + branchID
}

// txState conjunto de lectura (clave -> versión vista) y buffer de escrituras de una transacción.
type txState struct {
	store *Store
	reads map[string]uint64

	inventory      map[string]entity.InventoryRecord
	ledger         []*entity.InventoryTransaction
	vouchers       map[string]*entity.Voucher
	voucherCreates map[string]bool
	transfers      map[string]*entity.StockTransfer
	transferCreate map[string]bool
	sales          map[string]*entity.Sale
	customers      map[string]entity.Customer
	customerCreate map[string]bool
}

func (tx *txState) hasWrites() bool {
	return len(tx.inventory) > 0 || len(tx.ledger) > 0 || len(tx.vouchers) > 0 ||
		len(tx.transfers) > 0 || len(tx.sales) > 0 || len(tx.customers) > 0
}

// observe registra la primera versión vista de una clave.
func (tx *txState) observe(coll, id string, version uint64) {
	key := readKey(coll, id)
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = version
	}
}

// scope abstrae dónde corre una operación de repositorio: dentro de una tx abierta
// o en una transacción propia (autocommit).
type scope interface {
	do(ctx context.Context, fn func(tx *txState) error) error
}

type txScope struct{ tx *txState }

func (s txScope) do(ctx context.Context, fn func(tx *txState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.tx)
}

type autoScope struct{ store *Store }

func (s autoScope) do(ctx context.Context, fn func(tx *txState) error) error {
	return s.store.run(ctx, fn)
}

func newRepos(sc scope) repository.Repos {
	return repository.Repos{
		Inventory: &inventoryRepo{sc: sc},
		Ledger:    &ledgerRepo{sc: sc},
		Vouchers:  &voucherRepo{sc: sc},
		Transfers: &transferRepo{sc: sc},
		Sales:     &saleRepo{sc: sc},
		Customers: &customerRepo{sc: sc},
	}
}
