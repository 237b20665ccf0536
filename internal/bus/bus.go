// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus abstracts the hosted publish/subscribe substrate the relay peers
// talk over. Deliveries and subscription status changes arrive as events on a
// per-subscription channel fed by the substrate's own goroutine.
package bus

import (
	"context"
	"errors"
)

// EventKind classifies substrate events.
type EventKind int

const (
	// EventSubscribed acknowledges that the subscription is active.
	EventSubscribed EventKind = iota + 1
	// EventUnsubscribed reports that the subscription ended.
	EventUnsubscribed
	// EventMessage carries a payload published on the topic.
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventSubscribed:
		return "subscribed"
	case EventUnsubscribed:
		return "unsubscribed"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is a single delivery or status notification.
type Event struct {
	Kind    EventKind
	Topic   string
	Payload []byte
}

// Subscription is one active topic subscription.
//
// Events is closed once the subscription has terminated, either through Close
// or because the substrate dropped it. Close is idempotent.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Bus is a topic based publish/subscribe substrate.
// Subscribe must not wait for the substrate to acknowledge the subscription;
// the acknowledgment is delivered as EventSubscribed.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

var (
	ErrNilContext = errors.New("bus: context is nil")
	ErrEmptyTopic = errors.New("bus: topic is empty")
)

func checkArgs(ctx context.Context, topic string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if topic == "" {
		return ErrEmptyTopic
	}
	return nil
}
