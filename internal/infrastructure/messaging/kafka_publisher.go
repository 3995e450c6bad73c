// Package messaging publica los eventos de dominio en Kafka.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/pkg/config"
)

var _ events.Publisher = (*KafkaPublisher)(nil)

// MessageWriter lo que el publicador necesita de kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher serializa cada evento en JSON; la clave del mensaje es el id del documento,
// así los eventos de un mismo documento caen en la misma partición y conservan el orden.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaWriter crea el writer para el tópico.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}
}

// NewKafkaPublisher construye el publicador.
func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// NewPublisher elige el publicador según la configuración: Kafka si hay brokers; si no,
// los eventos se descartan. La función devuelta libera el writer y nunca es nil.
func NewPublisher(cfg config.KafkaConfig) (events.Publisher, func() error) {
	if len(cfg.Brokers) == 0 {
		return events.NopPublisher{}, func() error { return nil }
	}
	kp := NewKafkaPublisher(NewKafkaWriter(cfg.Brokers, cfg.Topic))
	return kp, kp.Close
}

// Publish escribe todos los eventos en un solo lote.
func (p *KafkaPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(evs))
	for i, ev := range evs {
		value, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("kafka: serializar %s: %w", ev.Type, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(ev.Key),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Type)},
			},
		}
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publicar %d eventos: %w", len(msgs), err)
	}
	return nil
}

// Close libera el writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
