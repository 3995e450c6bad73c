// Package events define los eventos de dominio que se publican después de confirmar una transacción.
package events

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// Tipos de evento.
const (
	VoucherCreated     = "voucher.created"
	VoucherCancelled   = "voucher.cancelled"
	TransferCreated    = "transfer.created"
	TransferDispatched = "transfer.dispatched"
	TransferReceived   = "transfer.received"
	TransferCancelled  = "transfer.cancelled"
	SaleSettled        = "sale.settled"
)

// Event un hecho ya confirmado. Key es el id del documento (partición en Kafka).
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher puerto de salida de eventos.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher descarta los eventos (sin brokers configurados).
type NopPublisher struct{}

// Publish no hace nada.
func (NopPublisher) Publish(context.Context, ...Event) error { return nil }

// Emit publica y solo registra el fallo: la transacción ya está confirmada y no se revierte.
func Emit(ctx context.Context, pub Publisher, log *logger.Logger, evs ...Event) {
	if pub == nil || len(evs) == 0 {
		return
	}
	if err := pub.Publish(ctx, evs...); err != nil {
		log.Error().Err(err).Str("event", evs[0].Type).Str("key", evs[0].Key).Int("count", len(evs)).
			Msg("no se pudo publicar evento")
	}
}
