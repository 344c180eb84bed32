package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled run. ctx is canceled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs a single job on a cron schedule. A tick that fires while
// the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.ScheduleParser
	chain  cron.Chain
	logger *slog.Logger

	mu    sync.Mutex
	spec  string
	entry cron.EntryID
	job   cron.Job
}

// Option customizes a Scheduler.
type Option func(*settings)

type settings struct {
	loc     *time.Location
	seconds bool
}

// WithLocation interprets the schedule in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) { s.loc = loc }
}

// WithSeconds accepts a leading seconds field in the schedule.
func WithSeconds() Option {
	return func(s *settings) { s.seconds = true }
}

// New creates a Scheduler. The job is registered by Run.
func New(spec string, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	st := settings{loc: time.Local}
	for _, opt := range opts {
		opt(&st)
	}

	fields := cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
	if st.seconds {
		fields |= cron.Second
	}
	parser := cron.NewParser(fields)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(st.loc),
		cron.WithParser(parser),
		cron.WithLogger(cl),
	)
	return &Scheduler{
		cron:   c,
		parser: parser,
		chain:  cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		logger: logger,
		spec:   spec,
	}, nil
}

// Run schedules job and blocks until ctx is done. It waits for a running
// job to return before returning itself.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	s.mu.Lock()
	// Wrapped once so a rescheduled entry shares the running guard.
	s.job = s.chain.Then(cron.FuncJob(func() { job(ctx) }))
	id, err := s.cron.AddJob(s.spec, s.job)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduling %q: %w", s.spec, err)
	}
	s.entry = id
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.spec, "next", s.Next())

	<-ctx.Done()

	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// Reschedule replaces the schedule of a running scheduler. It is a no-op if
// spec is unchanged.
func (s *Scheduler) Reschedule(spec string) error {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.spec {
		return nil
	}
	if s.job != nil {
		s.cron.Remove(s.entry)
		s.entry = s.cron.Schedule(sched, s.job)
	}
	s.logger.Info("schedule changed", "from", s.spec, "to", spec)
	s.spec = spec
	return nil
}

// Schedule returns the current schedule expression.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Next returns the next time the job will run, or the zero time if it is
// not scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
