package submission

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Processor handles one submission id.
type Processor interface {
	Process(ctx context.Context, id string) error
}

// WorkerPool runs a fixed number of goroutines that drain the queue.
type WorkerPool struct {
	queue          Queue
	processor      Processor
	workers        int
	dequeueTimeout time.Duration
	jobTimeout     time.Duration
	retryBackoff   time.Duration
	logger         zerolog.Logger
}

// NewWorkerPool builds a pool; zero values fall back to defaults.
func NewWorkerPool(queue Queue, processor Processor, workers int, dequeueTimeout, jobTimeout time.Duration, logger zerolog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4
	}
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5 * time.Second
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}
	return &WorkerPool{
		queue:          queue,
		processor:      processor,
		workers:        workers,
		dequeueTimeout: dequeueTimeout,
		jobTimeout:     jobTimeout,
		retryBackoff:   time.Second,
		logger:         logger.With().Str("component", "submission_worker").Logger(),
	}
}

// Run blocks until ctx is cancelled and every in-flight job has finished.
func (p *WorkerPool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.loop(ctx, n)
		}(i)
	}
	p.logger.Info().Int("workers", p.workers).Msg("submission workers started")

	wg.Wait()
	p.logger.Info().Msg("submission workers stopped")
	return ctx.Err()
}

func (p *WorkerPool) loop(ctx context.Context, n int) {
	log := p.logger.With().Int("worker", n).Logger()
	for {
		if ctx.Err() != nil {
			return
		}

		id, ok, err := p.queue.Dequeue(ctx, p.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("dequeue failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryBackoff):
			}
			continue
		}
		if !ok {
			continue
		}

		p.handle(ctx, log, id)
	}
}

// handle detaches from ctx cancellation so shutdown lets the current job finish.
func (p *WorkerPool) handle(ctx context.Context, log zerolog.Logger, id string) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.jobTimeout)
	defer cancel()

	if err := p.processor.Process(jobCtx, id); err != nil {
		log.Warn().Err(err).Str("submission_id", id).Msg("submission processing failed")
	}
}
