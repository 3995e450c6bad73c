package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/events"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/pos-ledger/pkg/config"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_ClaveYCabecera(t *testing.T) {
	w := &fakeWriter{}
	p := messaging.NewKafkaPublisher(w)
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(),
		events.Event{Type: events.VoucherCreated, Key: "GR-1", OccurredAt: at, Payload: map[string]string{"id": "GR-1"}},
		events.Event{Type: events.TransferDispatched, Key: "TRF-1", OccurredAt: at},
	)
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	assert.Equal(t, "GR-1", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, events.VoucherCreated, string(w.msgs[0].Headers[0].Value))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, events.VoucherCreated, decoded.Type)
	assert.Equal(t, "GR-1", decoded.Key)
}

func TestKafkaPublisher_ErrorDelBroker(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	err := messaging.NewKafkaPublisher(w).Publish(context.Background(), events.Event{Type: events.SaleSettled, Key: "O-1"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaPublisher_SinEventos(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, messaging.NewKafkaPublisher(w).Publish(context.Background()))
	assert.Empty(t, w.msgs)
}

func TestNewPublisher_SinBrokersDescarta(t *testing.T) {
	pub, closeFn := messaging.NewPublisher(config.KafkaConfig{Topic: "pos-ledger.events"})
	assert.IsType(t, events.NopPublisher{}, pub)
	for i := 0; i < 3; i++ {
		require.NoError(t, pub.Publish(context.Background(), events.Event{Type: events.VoucherCreated, Key: "v"}))
	}
	assert.NoError(t, closeFn())
}

func TestNewPublisher_ConBrokersUsaKafka(t *testing.T) {
	pub, closeFn := messaging.NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	assert.IsType(t, &messaging.KafkaPublisher{}, pub)
	assert.NoError(t, closeFn())
}
