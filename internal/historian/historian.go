// Package historian drains finished race results from the Redis queue and
// persists them to Postgres in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jason-s-yu/typerace/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Queue yields raw queued payloads. Pop reports ok=false when timeout
// elapsed with nothing to read.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) (payload []byte, ok bool, err error)
}

// Store persists a batch of results atomically.
type Store interface {
	InsertRaceResults(ctx context.Context, results []models.RaceResult) error
}

// RedisQueue pops from a Redis list with BLPOP.
type RedisQueue struct {
	rdb  redis.Cmdable
	name string
}

func NewRedisQueue(rdb redis.Cmdable, name string) *RedisQueue {
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, false, nil
	}
	return []byte(res[1]), true, nil
}

// Options tunes batching. Zero values select defaults.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	Logger     logrus.FieldLogger
}

// Service accumulates results and flushes them when the batch is full or
// FlushDelay has passed since the last flush.
type Service struct {
	queue      Queue
	store      Store
	batchSize  int
	flushDelay time.Duration
	popTimeout time.Duration
	maxPending int
	log        logrus.FieldLogger

	batch     []models.RaceResult
	lastFlush time.Time
}

func NewService(queue Queue, store Store, opts Options) *Service {
	s := &Service{
		queue:      queue,
		store:      store,
		batchSize:  opts.BatchSize,
		flushDelay: opts.FlushDelay,
		popTimeout: opts.PopTimeout,
		log:        opts.Logger,
	}
	if s.batchSize <= 0 {
		s.batchSize = 20
	}
	if s.flushDelay <= 0 {
		s.flushDelay = 500 * time.Millisecond
	}
	if s.popTimeout <= 0 {
		s.popTimeout = time.Second
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.maxPending = 10 * s.batchSize
	s.batch = make([]models.RaceResult, 0, s.batchSize)
	return s
}

// Run consumes the queue until ctx is cancelled, then flushes whatever is
// still pending.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("historian started")
	s.lastFlush = time.Now()

	for ctx.Err() == nil {
		payload, ok, err := s.queue.Pop(ctx, s.popTimeout)
		switch {
		case err != nil && ctx.Err() == nil:
			s.log.Errorf("pop: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		case ok:
			var res models.RaceResult
			if err := json.Unmarshal(payload, &res); err != nil {
				s.log.Warnf("invalid race result: %v", err)
			} else {
				s.batch = append(s.batch, res)
			}
		}

		if len(s.batch) >= s.batchSize || (len(s.batch) > 0 && time.Since(s.lastFlush) >= s.flushDelay) {
			s.flush(ctx)
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("historian stopped")
}

// flush writes the pending batch. On failure the batch is kept for the next
// attempt, up to maxPending results; the oldest are dropped beyond that.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.store.InsertRaceResults(ctx, s.batch); err != nil {
		s.log.WithField("pending", len(s.batch)).Errorf("flush race results: %v", err)
		if over := len(s.batch) - s.maxPending; over > 0 {
			s.log.Warnf("dropping %d oldest race results", over)
			s.batch = append(s.batch[:0], s.batch[over:]...)
		}
		return
	}
	s.log.Infof("Flushed %d race results to DB.", len(s.batch))
	s.batch = make([]models.RaceResult, 0, s.batchSize)
}
