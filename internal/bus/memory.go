// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
)

// MemoryBus is an in-memory pub/sub used for unit tests and local prototyping.
// Like a hosted substrate it never blocks publishers: a subscriber whose
// buffer is full loses the message and the drop is counted.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

const (
	defaultMemoryBuffer = 256
	dropLogEvery        = 100
)

var dropCount atomic.Uint64

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: defaultMemoryBuffer}
}

// WithBuffer sets the per-subscription buffer used by future subscriptions.
func (b *MemoryBus) WithBuffer(n int) *MemoryBus {
	if n > 0 {
		b.buffer = n
	}
	return b
}

func (b *MemoryBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := checkArgs(ctx, topic); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		metrics.IncBusDropReason(topic, "canceled")
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}

	b.mu.RLock()
	subs := append([]*memSub(nil), b.subs[topic]...)
	b.mu.RUnlock()

	ev := Event{Kind: EventMessage, Topic: topic, Payload: append([]byte(nil), payload...)}
	for _, s := range subs {
		if !s.offer(ev) {
			metrics.IncBusDropReason(topic, "full")
			count := dropCount.Add(1)
			if count%dropLogEvery == 1 {
				log.L().Warn().
					Str(log.FieldTopic, topic).
					Uint64("dropped", count).
					Msg("memory bus subscriber buffer full, message dropped")
			}
		}
	}
	metrics.IncBusPublished("memory")
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := checkArgs(ctx, topic); err != nil {
		return nil, err
	}
	s := &memSub{b: b, topic: topic, ch: make(chan Event, b.buffer+2)}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	// Acknowledge immediately; the buffer is empty so this never blocks.
	s.offer(Event{Kind: EventSubscribed, Topic: topic})
	return s, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub struct {
	b     *MemoryBus
	topic string

	mu     sync.RWMutex
	closed bool
	ch     chan Event
}

// offer performs a non-blocking send unless the subscription is closed.
func (s *memSub) offer(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (s *memSub) Events() <-chan Event {
	return s.ch
}

func (s *memSub) Close() error {
	s.b.mu.Lock()
	lst := s.b.subs[s.topic]
	out := lst[:0]
	for _, c := range lst {
		if c != s {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	s.b.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	select {
	case s.ch <- Event{Kind: EventUnsubscribed, Topic: s.topic}:
	default:
	}
	close(s.ch)
	return nil
}

// Ensure compliance
var _ Bus = (*MemoryBus)(nil)
