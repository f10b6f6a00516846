package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/taskboard/internal/metrics"
	"github.com/robfig/cron/v3"
)

var ErrJobRunning = errors.New("job is already running")

// Names of the jobs the tracker schedules.
const (
	JobDeadlineScan = "deadline_scan"
	JobOverdueScan  = "overdue_scan"
	JobTokenReap    = "token_reap"
)

// JobFunc is one unit of scheduled work.
type JobFunc func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	run     JobFunc
	timeout time.Duration
	running sync.Mutex
}

// Dispatcher fires named jobs on standard five-field cron expressions. A job
// never overlaps itself: a tick that arrives while the previous run is still
// going is skipped, and so is an on-demand Run of the same name.
type Dispatcher struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	logger = logger.With("component", "dispatcher")
	return &Dispatcher{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger}),
			cron.WithChain(cron.Recover(cronLogger{logger})),
		),
		logger: logger,
		jobs:   make(map[string]*job),
		ctx:    context.Background(),
	}
}

// Add registers a job. timeout bounds a single run; zero means no bound.
func (d *Dispatcher) Add(name, spec string, timeout time.Duration, run JobFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("job %q: invalid cron expression %q: %w", name, spec, err)
	}

	j := &job{name: name, spec: spec, run: run, timeout: timeout}
	if _, err := d.cron.AddFunc(spec, func() { _ = d.fire(d.ctx, j, j.run) }); err != nil {
		return fmt.Errorf("job %q: %w", name, err)
	}
	d.jobs[name] = j
	return nil
}

// Start runs the cron loop until ctx is cancelled, then waits for running
// jobs to finish.
func (d *Dispatcher) Start(ctx context.Context) {
	d.ctx = ctx
	d.cron.Start()

	d.mu.Lock()
	for _, j := range d.jobs {
		if j.spec != "" {
			d.logger.Info("job scheduled", "job", j.name, "cron", j.spec)
		}
	}
	d.mu.Unlock()

	<-ctx.Done()
	<-d.cron.Stop().Done()
	d.logger.Info("dispatcher shut down")
}

// Run executes run under the no-overlap guard of the named job, with that
// job's timeout when it is registered. A name nothing registered gets a guard
// of its own, so on-demand callers can share it without a cron schedule.
// Run returns ErrJobRunning when the job is busy.
func (d *Dispatcher) Run(ctx context.Context, name string, run JobFunc) error {
	d.mu.Lock()
	j, ok := d.jobs[name]
	if !ok {
		j = &job{name: name}
		d.jobs[name] = j
	}
	d.mu.Unlock()

	return d.fire(ctx, j, run)
}

func (d *Dispatcher) fire(ctx context.Context, j *job, run JobFunc) error {
	if !j.running.TryLock() {
		metrics.JobRunsTotal.WithLabelValues(j.name, "skipped").Inc()
		d.logger.Warn("job still running, skipping run", "job", j.name)
		return ErrJobRunning
	}
	defer j.running.Unlock()

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	err := run(ctx)
	if err != nil {
		metrics.JobRunsTotal.WithLabelValues(j.name, "error").Inc()
		d.logger.Error("job failed", "job", j.name, "duration", time.Since(start), "error", err)
		return err
	}
	metrics.JobRunsTotal.WithLabelValues(j.name, "ok").Inc()
	metrics.JobLastSuccess.WithLabelValues(j.name).SetToCurrentTime()
	d.logger.Info("job finished", "job", j.name, "duration", time.Since(start))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
