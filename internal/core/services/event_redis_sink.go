package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/umardraz9/mlmpk-sub009/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisEventSink publishes ledger events on a Redis channel for the
// notification dispatcher. A circuit breaker stops hammering an unreachable
// Redis; while open, events are dropped.
type RedisEventSink struct {
	client  redis.Cmdable
	channel string
	breaker *gobreaker.CircuitBreaker
}

// NewRedisEventSink creates a Redis sink
func NewRedisEventSink(client redis.Cmdable, channel string, log *logger.Logger) *RedisEventSink {
	settings := gobreaker.Settings{
		Name:     "redis-events",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("⚠️ Circuit breaker %s -> %s", from, to)
		},
	}

	return &RedisEventSink{
		client:  client,
		channel: channel,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name implements EventSink
func (s *RedisEventSink) Name() string {
	return "redis"
}

// Send implements EventSink
func (s *RedisEventSink) Send(ctx context.Context, event LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode ledger event: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Publish(ctx, s.channel, string(payload)).Err()
	})
	return err
}
