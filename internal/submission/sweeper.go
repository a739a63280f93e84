package submission

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-results/internal/metrics"
)

// Sweeper re-enqueues submissions stuck in RECEIVED or SCORING, covering lost
// enqueues and workers that died mid-pipeline.
type Sweeper struct {
	ledger     Ledger
	queue      Queue
	metrics    *metrics.Recorder
	logger     zerolog.Logger
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewSweeper(ledger Ledger, queue Queue, rec *metrics.Recorder, interval, staleAfter time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Sweeper{
		ledger:     ledger,
		queue:      queue,
		metrics:    rec,
		logger:     logger.With().Str("component", "submission_sweeper").Logger(),
		interval:   interval,
		staleAfter: staleAfter,
		batch:      100,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until context cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// run immediately so a restart picks up leftovers
	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns how many ids were pushed back.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ids, err := s.ledger.ListStale(ctx, s.now().Add(-s.staleAfter), s.batch)
	if err != nil {
		s.logger.Warn().Err(err).Msg("list stale submissions failed")
		return 0
	}

	n := 0
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("submission_id", id).Msg("re-enqueue failed")
			continue
		}
		n++
	}
	if n > 0 {
		s.metrics.Reenqueued(n)
		s.logger.Info().Int("count", n).Msg("stale submissions re-enqueued")
	}
	return n
}
