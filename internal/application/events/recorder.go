package events

import (
	"context"
	"sync"
)

// Recorder guarda en memoria los eventos publicados. Solo para tests: no se vacía nunca.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error // si no es nil, Publish falla con este error
}

// Publish registra los eventos o devuelve Err.
func (r *Recorder) Publish(_ context.Context, evs ...Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, evs...)
	return nil
}

// Types devuelve los tipos publicados en orden.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Events devuelve una copia de los eventos publicados.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
