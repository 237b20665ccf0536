// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/dvrtalk/internal/log"
	"github.com/ManuGH/dvrtalk/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// DialRedis creates a Redis client and verifies the connection.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisBus uses Redis PUBLISH/SUBSCRIBE as the substrate.
type RedisBus struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// NewRedisBus wraps an existing Redis client.
func NewRedisBus(client redis.UniversalClient) *RedisBus {
	return &RedisBus{client: client, logger: log.WithComponent("bus.redis")}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := checkArgs(ctx, topic); err != nil {
		return err
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish topic %q: %w", topic, err)
	}
	metrics.IncBusPublished("redis")
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := checkArgs(ctx, topic); err != nil {
		return nil, err
	}
	// Writes SUBSCRIBE without waiting for the confirmation reply.
	ps := b.client.Subscribe(ctx, topic)

	runCtx, cancel := context.WithCancel(context.Background())
	s := &redisSub{
		ps:      ps,
		topic:   topic,
		out:     make(chan Event, 256),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		cancel:  cancel,
		logger:  b.logger.With().Str(log.FieldTopic, topic).Logger(),
	}
	go s.run(runCtx)
	return s, nil
}

// Ping checks that Redis is reachable.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

type redisSub struct {
	ps     *redis.PubSub
	topic  string
	out    chan Event
	logger zerolog.Logger

	once    sync.Once
	done    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
}

func (s *redisSub) Events() <-chan Event {
	return s.out
}

func (s *redisSub) emit(ev Event) bool {
	select {
	case s.out <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *redisSub) run(ctx context.Context) {
	defer close(s.stopped)
	defer close(s.out)

	for {
		msg, err := s.ps.Receive(ctx)
		if err != nil {
			select {
			case <-s.done:
			default:
				if !errors.Is(err, context.Canceled) {
					s.logger.Warn().Err(err).Str(log.FieldEvent, "bus.receive_failed").Msg("redis subscription terminated")
				}
				s.emit(Event{Kind: EventUnsubscribed, Topic: s.topic})
			}
			return
		}

		switch m := msg.(type) {
		case *redis.Subscription:
			switch m.Kind {
			case "subscribe":
				if !s.emit(Event{Kind: EventSubscribed, Topic: m.Channel}) {
					return
				}
			case "unsubscribe":
				s.emit(Event{Kind: EventUnsubscribed, Topic: m.Channel})
				return
			}
		case *redis.Message:
			if !s.emit(Event{Kind: EventMessage, Topic: m.Channel, Payload: []byte(m.Payload)}) {
				return
			}
		case *redis.Pong:
		}
	}
}

// Close unsubscribes, closes the pubsub connection and waits for the
// receive goroutine to exit.
func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if uerr := s.ps.Unsubscribe(ctx, s.topic); uerr != nil {
			s.logger.Debug().Err(uerr).Msg("redis unsubscribe failed")
		}
		cancel()

		err = s.ps.Close()
		s.cancel()
		<-s.stopped
	})
	return err
}

var _ Bus = (*RedisBus)(nil)
