package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/repository/ingest"
)

// Run consumes the ingest stream until ctx is cancelled. workers readers
// fetch batches; items are processed concurrently, bounded by maxInflight.
// Entries are acknowledged only once their item reaches a terminal state
// whose work is durable (record written, duplicate skipped, rejected, or
// the retry budget exhausted).
func (s *Service) Run(ctx context.Context, ingestor Ingestor, workers int, maxInflight int64) error {
	if err := ingestor.Init(ctx); err != nil {
		return fmt.Errorf("init ingestor: %w", err)
	}
	if workers <= 0 {
		workers = 1
	}
	if maxInflight <= 0 {
		maxInflight = int64(workers)
	}

	sem := semaphore.NewWeighted(maxInflight)

	var readers sync.WaitGroup
	for i := 0; i < workers; i++ {
		readers.Add(1)
		go func(worker int) {
			defer readers.Done()
			s.readLoop(ctx, ingestor, sem, worker)
		}(i)
	}

	readers.Wait()
	s.inflight.Wait() // drain items still processing on shutdown
	return ctx.Err()
}

func (s *Service) readLoop(ctx context.Context, ingestor Ingestor, sem *semaphore.Weighted, worker int) {
	log := s.logger.With(zap.Int("worker", worker))
	for {
		if ctx.Err() != nil {
			return
		}

		msgs, err := ingestor.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("Fetch failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			if msg.ParseErr != nil {
				// Malformed entries are acked and dropped, never redelivered.
				log.Warn("Dropping malformed ingest entry",
					zap.String("entry_id", msg.EntryID), zap.Error(msg.ParseErr))
				s.ack(ctx, ingestor, msg.EntryID, log)
				continue
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			s.inflight.Add(1)
			go func(msg ingest.Message) {
				defer s.inflight.Done()
				defer sem.Release(1)
				s.handle(ctx, ingestor, msg, log)
			}(msg)
		}
	}
}

// handle processes one item and decides acknowledgment. Transient failures
// (sink or store outages) leave the entry pending for redelivery; terminal
// outcomes and exhausted retry budgets acknowledge it.
func (s *Service) handle(ctx context.Context, ingestor Ingestor, msg ingest.Message, log *zap.Logger) {
	outcome, err := s.Process(ctx, msg.Item)

	switch {
	case err == nil,
		errors.Is(err, domain.ErrInsufficientContent),
		errors.Is(err, domain.ErrAnalysisUnavailable):
		if err != nil {
			log.Error("Item terminally failed",
				zap.String("item_id", msg.Item.ID()),
				zap.String("state", string(outcome.State)),
				zap.Error(err),
			)
		}
		s.ack(ctx, ingestor, msg.EntryID, log)
	default:
		log.Error("Item processing failed, leaving entry pending",
			zap.String("item_id", msg.Item.ID()),
			zap.Error(err),
		)
	}
}

func (s *Service) ack(ctx context.Context, ingestor Ingestor, entryID string, log *zap.Logger) {
	if err := ingestor.Ack(ctx, entryID); err != nil {
		log.Warn("Failed to ack ingest entry", zap.String("entry_id", entryID), zap.Error(err))
	}
}
