// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"context"
	"sync"

	"github.com/ManuGH/dvrtalk/internal/message"
)

// deliveryQueue is an unbounded FIFO with a blocking, cancellable pop.
type deliveryQueue struct {
	mu    sync.Mutex
	items []message.Message
	ready chan struct{}
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{ready: make(chan struct{}, 1)}
}

func (q *deliveryQueue) push(m message.Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.signal()
}

func (q *deliveryQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop blocks until an item is available or ctx is done.
func (q *deliveryQueue) pop(ctx context.Context) (message.Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return m, nil
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *deliveryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
