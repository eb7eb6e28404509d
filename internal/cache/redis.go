// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list (queue) name for finished race results.
const DefaultQueueName = "typerace_results"

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Pusher is the subset of the Redis client used for publishing.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher queues finished races for the historian. RecordRace only
// touches an in-memory buffer; Run performs the network writes.
type Publisher struct {
	rdb     Pusher
	queue   string
	pending chan models.RaceResult
	log     logrus.FieldLogger
}

func NewPublisher(rdb Pusher, queue string, buffer int, logger logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	if buffer <= 0 {
		buffer = 256
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Publisher{
		rdb:     rdb,
		queue:   queue,
		pending: make(chan models.RaceResult, buffer),
		log:     logger,
	}
}

// RecordRace implements race.ResultSink. It never blocks: when the buffer is
// full the result is dropped and logged.
func (p *Publisher) RecordRace(res models.RaceResult) {
	select {
	case p.pending <- res:
	default:
		p.log.WithFields(logrus.Fields{"room": res.RoomID, "race": res.RaceID}).Warn("result buffer full, dropping race result")
	}
}

// Run pushes buffered results until ctx is cancelled, then flushes what is
// left with a short grace period.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case res := <-p.pending:
			if err := p.Publish(ctx, res); err != nil {
				p.log.WithField("race", res.RaceID).Errorf("publish race result: %v", err)
			}
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case res := <-p.pending:
			if err := p.Publish(ctx, res); err != nil {
				p.log.WithField("race", res.RaceID).Errorf("publish race result on shutdown: %v", err)
			}
		default:
			return
		}
	}
}

// Publish serializes the given result to JSON, then pushes it to the Redis queue.
func (p *Publisher) Publish(ctx context.Context, res models.RaceResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal RaceResult: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
