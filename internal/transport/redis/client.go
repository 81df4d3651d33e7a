package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

const (
	DefaultChannel = "tictactoe:events"
	queueSize      = 256
)

// Publisher fans session events out on a redis pub/sub channel. Nothing is stored.
type Publisher struct {
	logger  *slog.Logger
	client  *redis.Client
	channel string

	queue     chan entity.Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// New - connects to redis and starts the publishing loop.
func New(ctx context.Context, logger *slog.Logger, addr, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(logger, client, channel), nil
}

// NewWithClient - wraps an existing client.
func NewWithClient(logger *slog.Logger, client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}

	that := &Publisher{
		logger:  logger.With("component", "redis_publisher"),
		client:  client,
		channel: channel,
		queue:   make(chan entity.Event, queueSize),
		done:    make(chan struct{}),
	}

	go that.run()

	return that
}

// Publish - queues the event, dropping it when the queue is full. Never blocks.
func (that *Publisher) Publish(event entity.Event) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		return
	}

	select {
	case that.queue <- event:
	default:
		that.logger.Warn("event queue is full, dropping event", "type", event.Type)
	}
}

func (that *Publisher) run() {
	defer close(that.done)

	log := that.logger.With("method", "run")

	for event := range that.queue {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Error("failed to marshal event", "error", err)
			continue
		}

		if err = that.client.Publish(context.Background(), that.channel, payload).Err(); err != nil {
			log.Error("failed to publish event", "type", event.Type, "error", err)
		}
	}
}

// Subscribe - opens a subscription on the events channel.
func (that *Publisher) Subscribe(ctx context.Context) *redis.PubSub {
	return that.client.Subscribe(ctx, that.channel)
}

// Close - drains queued events and closes the redis client.
func (that *Publisher) Close() error {
	var err error

	that.closeOnce.Do(func() {
		that.mu.Lock()
		that.closed = true
		close(that.queue)
		that.mu.Unlock()

		<-that.done

		if closeErr := that.client.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close redis client: %w", closeErr)
		}
	})

	return err
}
