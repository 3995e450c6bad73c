package postgres

import (
	"context"
	"fmt"
)

// schemaStatements DDL idempotente del libro de inventario; se aplica en orden.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS inventory (
		sku            TEXT        NOT NULL,
		branch_id      TEXT        NOT NULL,
		stock_quantity BIGINT      NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		average_cost   NUMERIC(18,6) NOT NULL DEFAULT 0 CHECK (average_cost >= 0),
		last_updated   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (sku, branch_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_branch ON inventory (branch_id, sku)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id                  TEXT        PRIMARY KEY,
		seq                 BIGSERIAL   NOT NULL UNIQUE,
		voucher_id          TEXT        NOT NULL,
		sku                 TEXT        NOT NULL,
		branch_id           TEXT        NOT NULL,
		delta               BIGINT      NOT NULL,
		quantity_before     BIGINT      NOT NULL,
		quantity_after      BIGINT      NOT NULL CHECK (quantity_after >= 0),
		cost_at_transaction NUMERIC(18,6) NOT NULL,
		purchase_price      NUMERIC(18,6),
		user_id             TEXT,
		reason              TEXT        NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (voucher_id, sku, branch_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_key ON inventory_transactions (sku, branch_id, seq)`,
	`CREATE TABLE IF NOT EXISTS inventory_vouchers (
		id                  TEXT        PRIMARY KEY,
		type                TEXT        NOT NULL,
		branch_id           TEXT        NOT NULL,
		created_by          TEXT        NOT NULL,
		status              TEXT        NOT NULL,
		items               JSONB       NOT NULL,
		voucher_date        TIMESTAMPTZ NOT NULL,
		notes               TEXT,
		reference           TEXT,
		metadata            JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		reverses_voucher_id TEXT REFERENCES inventory_vouchers (id),
		cancellation        JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_vouchers_branch ON inventory_vouchers (branch_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS stock_transfers (
		id                    TEXT        PRIMARY KEY,
		source_branch_id      TEXT        NOT NULL,
		destination_branch_id TEXT        NOT NULL CHECK (destination_branch_id <> source_branch_id),
		items                 JSONB       NOT NULL,
		status                TEXT        NOT NULL,
		notes                 TEXT,
		created_by            TEXT        NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		dispatch_info         JSONB,
		receipt_info          JSONB,
		cancellation_info     JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_transfers_source ON stock_transfers (source_branch_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_transfers_destination ON stock_transfers (destination_branch_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id                    TEXT        PRIMARY KEY,
		branch_id             TEXT        NOT NULL,
		cashier_id            TEXT        NOT NULL,
		customer_id           TEXT,
		items                 JSONB       NOT NULL,
		subtotal              NUMERIC(18,2) NOT NULL,
		total_auto_discount   NUMERIC(18,2) NOT NULL,
		total_manual_discount NUMERIC(18,2) NOT NULL,
		grand_total           NUMERIC(18,2) NOT NULL,
		total_cogs            NUMERIC(18,6) NOT NULL,
		promotion_ref         TEXT,
		points_earned         BIGINT      NOT NULL DEFAULT 0,
		status                TEXT        NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id             TEXT        PRIMARY KEY,
		name           TEXT        NOT NULL,
		total_spent    NUMERIC(18,2) NOT NULL DEFAULT 0,
		loyalty_points BIGINT      NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// ApplySchema crea tablas e índices si no existen. Es seguro ejecutarlo en cada arranque.
func ApplySchema(ctx context.Context, q Querier) error {
	for _, stmt := range schemaStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}
