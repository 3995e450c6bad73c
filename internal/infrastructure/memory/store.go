// Package memory implementa el almacén del libro en memoria con concurrencia optimista.
// Cada transacción registra la versión de lo que lee y guarda sus escrituras en un buffer;
// al confirmar, si alguna lectura quedó obsoleta la transacción se descarta y se reintenta.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// DefaultMaxAttempts intentos por transacción si no se configura otro valor.
const DefaultMaxAttempts = 5

var (
	errConflict  = errors.New("memory: lectura obsoleta al confirmar")
	errDuplicate = errors.New("memory: clave duplicada")
)

var _ repository.TxRunner = (*Store)(nil)

type versioned[T any] struct {
	version uint64
	value   T
}

// Store guarda todas las colecciones; mu protege los mapas y el reloj de versiones.
type Store struct {
	mu          sync.RWMutex
	clock       uint64
	seq         int64
	maxAttempts int

	inventory map[string]versioned[entity.InventoryRecord]
	ledger    []*entity.InventoryTransaction
	ledgerKey map[string]bool // voucher|sku|branch
	vouchers  map[string]versioned[*entity.Voucher]
	transfers map[string]versioned[*entity.StockTransfer]
	sales     map[string]versioned[*entity.Sale]
	customers map[string]versioned[entity.Customer]
}

// NewStore crea un almacén vacío. maxAttempts <= 0 usa DefaultMaxAttempts.
func NewStore(maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Store{
		maxAttempts: maxAttempts,
		inventory:   make(map[string]versioned[entity.InventoryRecord]),
		ledgerKey:   make(map[string]bool),
		vouchers:    make(map[string]versioned[*entity.Voucher]),
		transfers:   make(map[string]versioned[*entity.StockTransfer]),
		sales:       make(map[string]versioned[*entity.Sale]),
		customers:   make(map[string]versioned[entity.Customer]),
	}
}

// Run ejecuta fn en una transacción optimista. Si otra transacción confirmó primero
// sobre algo que fn leyó, se repite fn completo hasta maxAttempts.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos repository.Repos) error) error {
	return s.run(ctx, func(tx *txState) error {
		return fn(ctx, newRepos(txScope{tx: tx}))
	})
}

// Repos devuelve repositorios en modo autocommit: cada llamada es su propia transacción.
func (s *Store) Repos() repository.Repos {
	return newRepos(autoScope{store: s})
}

func (s *Store) run(ctx context.Context, fn func(tx *txState) error) error {
	attempts := 0
	op := func() error {
		attempts++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		tx := s.begin()
		if err := fn(tx); err != nil {
			return backoff.Permanent(err)
		}
		if err := s.commit(tx); err != nil {
			if errors.Is(err, errConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(s.maxAttempts-1)), ctx)
	err := backoff.Retry(op, b)
	if errors.Is(err, errConflict) {
		return &domain.StoreConflictError{Attempts: attempts, Err: err}
	}
	return err
}

func (s *Store) begin() *txState {
	return &txState{
		store:          s,
		reads:          make(map[string]uint64),
		inventory:      make(map[string]entity.InventoryRecord),
		vouchers:       make(map[string]*entity.Voucher),
		voucherCreates: make(map[string]bool),
		transfers:      make(map[string]*entity.StockTransfer),
		transferCreate: make(map[string]bool),
		sales:          make(map[string]*entity.Sale),
		customers:      make(map[string]entity.Customer),
		customerCreate: make(map[string]bool),
	}
}

// commit valida el conjunto de lectura y aplica el buffer de escrituras de forma atómica.
// Una transacción de solo lectura también valida: sus lecturas deben venir de una misma versión.
func (s *Store) commit(tx *txState) error {
	if !tx.hasWrites() {
		return s.validateReads(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, seen := range tx.reads {
		if s.versionOf(key) != seen {
			return errConflict
		}
	}
	for id := range tx.voucherCreates {
		if _, ok := s.vouchers[id]; ok {
			return fmt.Errorf("voucher %s: %w", id, errDuplicate)
		}
	}
	for id := range tx.transferCreate {
		if _, ok := s.transfers[id]; ok {
			return fmt.Errorf("traslado %s: %w", id, errDuplicate)
		}
	}
	for id := range tx.sales {
		if _, ok := s.sales[id]; ok {
			return fmt.Errorf("orden %s: %w", id, errDuplicate)
		}
	}
	for id := range tx.customerCreate {
		if _, ok := s.customers[id]; ok {
			return fmt.Errorf("cliente %s: %w", id, errDuplicate)
		}
	}
	for _, row := range tx.ledger {
		if s.ledgerKey[ledgerKey(row.VoucherID, row.SKU, row.BranchID)] {
			return fmt.Errorf("fila de libro %s/%s/%s: %w", row.VoucherID, row.SKU, row.BranchID, errDuplicate)
		}
	}

	s.clock++
	v := s.clock
	for key, rec := range tx.inventory {
		s.inventory[key] = versioned[entity.InventoryRecord]{version: v, value: rec}
	}
	for _, row := range tx.ledger {
		s.seq++
		row.Seq = s.seq
		stored := cloneTransaction(row)
		s.ledger = append(s.ledger, stored)
		s.ledgerKey[ledgerKey(row.VoucherID, row.SKU, row.BranchID)] = true
	}
	for id, vch := range tx.vouchers {
		s.vouchers[id] = versioned[*entity.Voucher]{version: v, value: cloneVoucher(vch)}
	}
	for id, t := range tx.transfers {
		s.transfers[id] = versioned[*entity.StockTransfer]{version: v, value: cloneTransfer(t)}
	}
	for id, sale := range tx.sales {
		s.sales[id] = versioned[*entity.Sale]{version: v, value: cloneSale(sale)}
	}
	for id, c := range tx.customers {
		s.customers[id] = versioned[entity.Customer]{version: v, value: c}
	}
	return nil
}

func (s *Store) validateReads(tx *txState) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, seen := range tx.reads {
		if s.versionOf(key) != seen {
			return errConflict
		}
	}
	return nil
}

// versionOf devuelve la versión actual de una clave de lectura; 0 si no existe. Requiere mu.
func (s *Store) versionOf(key string) uint64 {
	coll, id := splitReadKey(key)
	switch coll {
	case collInventory:
		return s.inventory[id].version
	case collVoucher:
		return s.vouchers[id].version
	case collTransfer:
		return s.transfers[id].version
	case collSale:
		return s.sales[id].version
	case collCustomer:
		return s.customers[id].version
	}
	return 0
}
