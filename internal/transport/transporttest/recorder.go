// Package transporttest provides an in-memory Transport that records deliveries.
package transporttest

import (
	"context"
	"sync"
)

type Delivery struct {
	ConnectionID string
	Data         string
}

// Recorder implements transport.Transport. Connections listed in Failures
// get the mapped error instead of a delivery.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	failures   map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[string]error)}
}

func (r *Recorder) Fail(connectionID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[connectionID] = err
}

func (r *Recorder) Post(_ context.Context, connectionID string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failures[connectionID]; ok {
		return err
	}
	r.deliveries = append(r.deliveries, Delivery{ConnectionID: connectionID, Data: string(data)})
	return nil
}

// Deliveries returns a copy of everything delivered so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}

// To returns the payloads delivered to one connection, in order.
func (r *Recorder) To(connectionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, d := range r.deliveries {
		if d.ConnectionID == connectionID {
			out = append(out, d.Data)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}
