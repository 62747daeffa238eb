// Package worker drains the mappack job queue and recomputes mappacks.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trackrank/internal/adapters/mq/queue"
	"github.com/okian/trackrank/pkg/logger"
	"github.com/okian/trackrank/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Updater recomputes one mappack. ok is false when the mappack is gone.
type Updater interface {
	UpdateMappack(ctx context.Context, id string) (ok bool, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// Activity counts busy workers.
type Activity struct {
	busy atomic.Int64
}

func (a *Activity) begin() {
	if a != nil {
		metrics.UpdateWorkerActiveCount(int(a.busy.Add(1)))
	}
}

func (a *Activity) end() {
	if a != nil {
		metrics.UpdateWorkerActiveCount(int(a.busy.Add(-1)))
	}
}

// Busy returns the number of workers currently processing a job.
func (a *Activity) Busy() int {
	if a == nil {
		return 0
	}
	return int(a.busy.Load())
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	updater  Updater
	name     string
	onDone   func(mappackID string)
	activity *Activity

	processed atomic.Int64
	failed    atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		updater:  updater,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "mappack job failed",
					logger.String("job_id", j.JobID),
					logger.String("mappack", j.MappackID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns the number of jobs handled, failed ones included.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// Failed returns the number of jobs that ended in an error.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	w.activity.begin()
	defer func() {
		w.activity.end()
		w.processed.Add(1)
		metrics.RecordWorkerProcessingLatency(time.Since(start))
		if w.onDone != nil {
			w.onDone(j.MappackID)
		}
	}()

	ok, err := w.updater.UpdateMappack(ctx, j.MappackID)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "update")
		return fmt.Errorf("update mappack %s: %w", j.MappackID, err)
	}

	w.logger.Debug(ctx, "mappack job done",
		logger.String("job_id", j.JobID),
		logger.String("mappack", j.MappackID),
		logger.Bool("updated", ok),
		logger.Duration("waited", start.Sub(j.EnqueuedAt)),
		logger.Duration("took", time.Since(start)))
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	activity *Activity
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers; below one it uses NumCPU.
// Options apply to every worker.
func NewPool(workerCount int, q Queue, updater Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		activity: &Activity{},
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		wopts = append(wopts, WithActivity(p.activity))
		p.workers[i] = NewInMemoryWorker(q, updater, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Busy returns the number of workers processing a job.
func (p *Pool) Busy() int { return p.activity.Busy() }

// Processed returns the number of jobs handled by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Failed returns the number of failed jobs across all workers.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Failed()
	}
	return n
}

// Shutdown closes the queue and waits for every worker to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var firstErr error
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
