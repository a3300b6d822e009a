package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytpub/internal/shared"
)

// Job is a self-contained unit of work. It must not depend on the submitting caller's context.
type Job func(ctx context.Context)

// PoolOpts sizes a [Pool].
type PoolOpts struct {
	Size          int // Concurrent workers (default: 2)
	Queue         int // Jobs waiting for a worker before Submit rejects (default: 16)
	RatePerMinute int // Job starts per minute across all workers; zero is unlimited
}

// Pool is a bounded worker pool dedicated to publishing.
//
// Submission never blocks: a full queue rejects the job with [shared.ErrQueueFull].
// Job starts are paced by a token bucket so bursts of publishes stay inside the API quota.
type Pool struct {
	jobs    chan Job
	limiter *rate.Limiter
	logger  *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts a [Pool] with opts.Size workers.
func NewPool(opts PoolOpts, logger *log.Logger) *Pool {
	if opts.Size <= 0 {
		opts.Size = 2
	}
	if opts.Queue <= 0 {
		opts.Queue = 16
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	limit := rate.Inf
	if opts.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RatePerMinute))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan Job, opts.Queue),
		limiter: rate.NewLimiter(limit, opts.Size),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < opts.Size; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}

	return p
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return shared.ErrPublisherShutdown
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%w: %d jobs waiting", shared.ErrQueueFull, cap(p.jobs))
	}
}

// Shutdown stops accepting jobs and waits for queued and running jobs to finish.
// If ctx ends first, running jobs are cancelled and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobs {
		// A cancelled wait still runs the job so it can record its own failure.
		if err := p.limiter.Wait(p.ctx); err != nil {
			p.logger.Warn("pool stopping before job start", "worker", id, "err", err)
		}
		p.run(id, job)
	}
}

func (p *Pool) run(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "worker", id, "panic", r)
		}
	}()
	job(p.ctx)
}
