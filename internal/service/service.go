// Package service owns pipeline runs for the long-running server and the
// one-shot CLI. It serialises runs, keeps recent reports and drives the
// cron schedule.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/salesetl/internal/logging"
	"github.com/JonMunkholm/salesetl/internal/pipeline"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Service runs the configured pipeline steps.
type Service struct {
	pipeline *pipeline.Pipeline
	steps    []pipeline.Step
	limiter  *RunLimiter
	history  *History
	log      *slog.Logger

	wg sync.WaitGroup

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithHistory sets how many run reports are retained.
func WithHistory(n int) Option {
	return func(s *Service) { s.history = NewHistory(n) }
}

// New creates a service running steps through p, in the order given.
func New(p *pipeline.Pipeline, steps []pipeline.Step, opts ...Option) *Service {
	s := &Service{
		pipeline: p,
		steps:    steps,
		limiter:  NewRunLimiter(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.history == nil {
		s.history = NewHistory(DefaultHistory)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Entities returns the configured entity keys in run order.
func (s *Service) Entities() []string {
	keys := make([]string, len(s.steps))
	for i, st := range s.steps {
		keys[i] = st.Entity
	}
	return keys
}

// Select returns the configured steps named in only, in run order.
// An empty only selects every step.
func (s *Service) Select(only ...string) ([]pipeline.Step, error) {
	if len(only) == 0 {
		return slices.Clone(s.steps), nil
	}

	known := s.Entities()
	for _, name := range only {
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrUnknownEntity, name)
		}
	}

	var steps []pipeline.Step
	for _, st := range s.steps {
		if slices.Contains(only, st.Entity) {
			steps = append(steps, st)
		}
	}
	return steps, nil
}

// Run executes the selected steps and blocks until they finish.
func (s *Service) Run(ctx context.Context, only ...string) (pipeline.RunReport, error) {
	steps, err := s.Select(only...)
	if err != nil {
		return pipeline.RunReport{}, err
	}
	if !s.limiter.TryAcquire() {
		return pipeline.RunReport{}, ErrRunInProgress
	}
	defer s.limiter.Release()

	id := uuid.NewString()
	s.begin(id)
	return s.execute(ctx, id, steps), nil
}

// Start launches the selected steps in the background and returns the run
// ID at once. The run is detached from ctx cancellation so it outlives the
// request that started it.
func (s *Service) Start(ctx context.Context, only ...string) (string, error) {
	steps, err := s.Select(only...)
	if err != nil {
		return "", err
	}
	if !s.limiter.TryAcquire() {
		return "", ErrRunInProgress
	}

	id := uuid.NewString()
	s.begin(id)

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.limiter.Release()
		s.execute(runCtx, id, steps)
	}()
	return id, nil
}

// begin records a placeholder so the run is visible while it executes.
func (s *Service) begin(id string) {
	s.history.Put(pipeline.RunReport{ID: id, StartedAt: time.Now()})
}

func (s *Service) execute(ctx context.Context, id string, steps []pipeline.Step) pipeline.RunReport {
	ctx = logging.WithRunID(ctx, id)
	report := s.pipeline.Run(ctx, steps)
	s.history.Put(report)
	return report
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.limiter.ActiveCount() > 0
}

// Available returns how many more runs could start right now.
func (s *Service) Available() int {
	return s.limiter.Available()
}

// Runs returns recent run reports, newest first.
func (s *Service) Runs() []pipeline.RunReport {
	return s.history.List()
}

// Get returns a run report by ID. A run still in progress has a zero
// FinishedAt.
func (s *Service) Get(id string) (pipeline.RunReport, bool) {
	return s.history.Get(id)
}

// StartScheduler runs every configured step on the cron schedule spec
// until ctx is cancelled. A tick that finds a run in progress is skipped.
func (s *Service) StartScheduler(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		log := logging.Enrich(ctx, s.log)
		log.Info("scheduled run starting", "schedule", spec)
		report, err := s.Run(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			log.Warn("scheduled run skipped", "reason", err)
		case err != nil:
			log.Error("scheduled run failed", "error", err)
		case !report.OK():
			log.Error("scheduled run finished with failures", "report", report)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.log.Info("scheduler started", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		s.log.Info("scheduler stopped")
	}()
	return nil
}

// NextScheduled returns the next scheduled run time, or the zero time when
// no schedule is active.
func (s *Service) NextScheduled() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	if entries := s.cron.Entries(); len(entries) > 0 {
		return entries[0].Next
	}
	return time.Time{}
}

// Wait blocks until background runs have finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return s.limiter.WaitForDrain(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}
