package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/noxhaven/world-engine/worldengine/config"
	"github.com/noxhaven/world-engine/worldengine/logger"
)

// Job is one idempotent batch operation. Jobs must tolerate concurrent
// writes arriving mid-run and being re-run after a crash.
type Job func(ctx context.Context) error

// Scheduler owns the periodic world jobs with proper lifecycle control.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	jobs   map[string]*jobInfo
	mu     sync.RWMutex
}

type jobInfo struct {
	name     string
	interval time.Duration
	cancel   context.CancelFunc
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*jobInfo),
	}
}

// Register starts running job every interval until shutdown. Re-registering
// a name stops the previous runner first.
func (s *Scheduler) Register(name string, interval time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		slog.Warn("Job already registered, replacing", slog.String("name", name))
		existing.cancel()
		delete(s.jobs, name)
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	s.jobs[name] = &jobInfo{name: name, interval: interval, cancel: jobCancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Job panicked",
					slog.String("type", "job"),
					slog.String("name", name),
					slog.Any("panic", r))
			}
		}()

		slog.Info("Job registered",
			slog.String("type", "job"),
			slog.String("name", name),
			slog.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(name, job)
			case <-jobCtx.Done():
				return
			}
		}
	}()
}

func (s *Scheduler) runOnce(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, config.JobTimeout)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	logger.LogJob(name, time.Since(start), err)
}

// TriggerNow runs a registered-style job once, outside its schedule. Used by
// startup catch-up and admin triggers.
func (s *Scheduler) TriggerNow(name string, job Job) {
	s.runOnce(name, job)
}

// Shutdown stops all jobs and waits for in-flight runs up to timeout.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.mu.RLock()
	count := len(s.jobs)
	s.mu.RUnlock()

	slog.Info("Shutting down scheduler", slog.Int("jobs", count))
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		slog.Warn("Scheduler shutdown timed out", slog.Duration("timeout", timeout))
		return context.DeadlineExceeded
	}
}
