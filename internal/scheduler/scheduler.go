package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"post_importer/internal/domain"
)

var ErrRunInProgress = errors.New("import run already in progress")

// Runner defines the interface for import runs.
type Runner interface {
	Run(ctx context.Context) (*domain.ImportReport, error)
}

// ReportObserver is notified after every finished run, including runs
// aborted by a feed failure.
type ReportObserver interface {
	AfterImport(ctx context.Context, report *domain.ImportReport) error
}

type ObserverFunc func(ctx context.Context, report *domain.ImportReport) error

func (f ObserverFunc) AfterImport(ctx context.Context, report *domain.ImportReport) error {
	return f(ctx, report)
}

type Config struct {
	// Interval between scheduled runs; zero disables the timer.
	Interval   time.Duration
	RunTimeout time.Duration
	RunOnStart bool
}

type Scheduler struct {
	runner    Runner
	cfg       Config
	observers []ReportObserver
	logger    *slog.Logger

	// running guards against overlapping runs.
	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(runner Runner, cfg Config, logger *slog.Logger, observers ...ReportObserver) *Scheduler {
	return &Scheduler{
		runner:    runner,
		cfg:       cfg,
		observers: observers,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start runs the schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.cfg.Interval, "run_on_start", s.cfg.RunOnStart)

	if s.cfg.RunOnStart {
		s.runScheduled(ctx)
	}

	var tick <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-tick:
			s.runScheduled(ctx)
		}
	}
}

// Activate starts the schedule in the background. Any schedule started
// by an earlier Activate is cleared first.
func (s *Scheduler) Activate(ctx context.Context) {
	s.Deactivate()

	s.mu.Lock()
	defer s.mu.Unlock()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		_ = s.Start(loopCtx)
	}()
}

// Deactivate clears the schedule and waits for the loop to exit. It is a
// no-op when nothing is scheduled.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// RunNow performs one import immediately. It returns ErrRunInProgress
// instead of waiting when another run is active.
func (s *Scheduler) RunNow(ctx context.Context) (*domain.ImportReport, error) {
	if !s.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()

	return s.run(ctx)
}

func (s *Scheduler) runScheduled(ctx context.Context) {
	if _, err := s.RunNow(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Warn("skipping scheduled import, previous run still active")
			return
		}
		s.logger.Error("import failed", "error", err)
	}
}

func (s *Scheduler) run(ctx context.Context) (*domain.ImportReport, error) {
	runCtx := ctx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	report, err := s.runner.Run(runCtx)

	if report != nil {
		for _, o := range s.observers {
			if obsErr := o.AfterImport(ctx, report); obsErr != nil {
				s.logger.Warn("report observer failed", "error", obsErr)
			}
		}
	}

	return report, err
}
