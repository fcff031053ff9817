package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MY-Final/napcat-plugin-email/pkg/mail"
	"github.com/MY-Final/napcat-plugin-email/pkg/metrics"
)

// DefaultTickInterval is the scheduler scan period.
const DefaultTickInterval = 60 * time.Second

// Executor runs one due task. *Manager implements it.
type Executor interface {
	Execute(t ScheduledTask) mail.Result
}

// Scheduler is the single recurring timer that scans the store for due
// tasks and fires executions. Executions are fire-and-forget: a slow send
// never blocks the next tick. A mutex-guarded in-flight set prevents two
// overlapping ticks from firing the same task twice.
type Scheduler struct {
	store    *Store
	executor Executor
	log      *zap.SugaredLogger
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	inFlightMu sync.Mutex
	inFlight   map[string]struct{}
}

// NewScheduler creates a scheduler over the given store. A non-positive
// interval falls back to the default one-minute period.
func NewScheduler(store *Store, executor Executor, logger *zap.SugaredLogger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		store:    store,
		executor: executor,
		log:      logger.Named("scheduler"),
		interval: interval,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// Start launches the tick loop. Starting an already-running scheduler is
// refused.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("scheduler is already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	s.log.Infow("Scheduler started", "interval", s.interval)
	return nil
}

// Stop suppresses future ticks. Idempotent. In-flight executions are not
// cancelled; they run to completion unsupervised.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.log.Info("Scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.Tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one scan: load all tasks, pick the due ones and fire each in
// its own goroutine with its own error boundary.
func (s *Scheduler) Tick() {
	metrics.SchedulerTicks.Inc()

	tasks := s.store.List()
	now := s.now()

	due := 0
	for _, t := range tasks {
		if !t.Due(now) {
			continue
		}
		due++
		s.dispatch(t)
	}
	if due > 0 {
		s.log.Infow("Scheduler tick dispatched due tasks", "due", due, "total", len(tasks))
		metrics.TasksDue.Add(float64(due))
	} else {
		s.log.Debugw("Scheduler tick found no due tasks", "total", len(tasks))
	}
}

// dispatch fires one task execution unless one is already in flight for the
// same id. The in-flight entry is set before the goroutine starts and
// cleared when it finishes, closing the double-fire window between
// overlapping ticks.
func (s *Scheduler) dispatch(t ScheduledTask) {
	s.inFlightMu.Lock()
	if _, busy := s.inFlight[t.ID]; busy {
		s.inFlightMu.Unlock()
		s.log.Debugw("Skipping task, execution already in flight", "id", t.ID)
		metrics.TaskExecSkipped.Inc()
		return
	}
	s.inFlight[t.ID] = struct{}{}
	s.inFlightMu.Unlock()

	go func() {
		defer func() {
			s.inFlightMu.Lock()
			delete(s.inFlight, t.ID)
			s.inFlightMu.Unlock()

			if r := recover(); r != nil {
				s.log.Errorw("Panic in task execution recovered", "id", t.ID, "panic", r)
			}
		}()

		// Re-read right before sending; the task may have been cancelled,
		// edited or deleted since the scan.
		fresh, ok := s.store.GetByID(t.ID)
		if !ok || fresh.Status != StatusPending {
			s.log.Debugw("Task no longer pending, skipping execution", "id", t.ID)
			return
		}

		res := s.executor.Execute(fresh)
		if res.Success {
			metrics.TaskExecSuccess.Inc()
		} else {
			metrics.TaskExecFailure.Inc()
		}
	}()
}
