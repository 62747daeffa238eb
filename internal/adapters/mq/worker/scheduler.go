package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trackrank/pkg/logger"
)

// Scheduler runs a task on a fixed interval until stopped.
type Scheduler struct {
	interval time.Duration
	task     func(ctx context.Context) error
	logger   logger.Logger

	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a scheduler running task every interval.
func NewScheduler(interval time.Duration, task func(ctx context.Context) error, l logger.Logger) *Scheduler {
	if l == nil {
		l = logger.Get().Named("scheduler")
	}
	return &Scheduler{
		interval: interval,
		task:     task,
		logger:   l,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the loop in the background. The first run happens after one
// interval.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.task(ctx); err != nil {
					s.logger.Warn(ctx, "scheduled task failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop ends the loop and waits for a running task to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}
