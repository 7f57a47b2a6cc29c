package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// PeriodicJob runs a named task at a fixed interval until stopped. The first
// run happens immediately on Start; a failing or panicking run is logged and
// does not stop the job.
type PeriodicJob struct {
	name     string
	interval time.Duration
	run      func(context.Context) error

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(name string, interval time.Duration, run func(context.Context) error) (*PeriodicJob, error) {
	if name == "" {
		return nil, errors.New("name must not be empty")
	}
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if run == nil {
		return nil, errors.New("run must not be nil")
	}
	return &PeriodicJob{
		name:     name,
		interval: interval,
		run:      run,
		done:     make(chan struct{}),
	}, nil
}

func (j *PeriodicJob) Start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running.Store(true)

	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		slog.Info("periodic job started", "job", j.name, "interval", j.interval.String())

		j.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("periodic job stopping", "job", j.name)
				return
			case <-ticker.C:
				j.runOnce(ctx)
			}
		}
	}()

	return true
}

func (j *PeriodicJob) Stop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running.Load() {
		return false
	}

	j.cancel()
	<-j.done
	j.running.Store(false)

	slog.Info("periodic job stopped", "job", j.name)
	return true
}

func (j *PeriodicJob) IsRunning() bool {
	return j.running.Load()
}

func (j *PeriodicJob) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("periodic job panic recovered", "job", j.name, "panic", r)
		}
	}()

	start := time.Now()
	if err := j.run(ctx); err != nil {
		slog.Error("periodic job run failed", "job", j.name, "error", err)
		return
	}
	slog.Info("periodic job run completed", "job", j.name, "duration_ms", time.Since(start).Milliseconds())
}
