// Package jobcore is an in-process job scheduler: cron and interval
// triggers, a transactional in-memory job store, and a worker pool, wired
// together the way the teacher wires its HTTP-polling scheduler, but
// entirely in-process (spec §1-§2).
package jobcore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/jobcore/config"
	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/clock"
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/engine"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/ErlanBelekov/jobcore/internal/listener"
	"github.com/ErlanBelekov/jobcore/internal/store"
	"github.com/ErlanBelekov/jobcore/internal/worker"
)

// Re-exported so callers never need to import the internal packages
// directly to use the scheduler's public surface.
type (
	Job                = worker.Job
	Interruptible       = worker.Interruptible
	JobExecutionContext = worker.JobExecutionContext
	JobFactory          = worker.Factory
	JobDetail           = domain.JobDetail
	Trigger             = domain.Trigger
	JobKey              = keys.JobKey
	TriggerKey          = keys.TriggerKey
	TriggerState        = domain.TriggerState
	Calendar            = calendar.Calendar
	DataMap             = datamap.DataMap

	JobListener       = listener.JobListener
	TriggerListener   = listener.TriggerListener
	SchedulerListener = listener.SchedulerListener
	KeyMatcher        = keys.KeyMatcher
)

// Scheduler is the single entry point: it owns the store, worker pool,
// listener manager and main-loop engine for one instance (spec §1).
type Scheduler struct {
	cfg    *config.EngineConfig
	store  *store.Store
	pool   *worker.Pool
	lsnr   *listener.Manager
	engine *engine.Engine
	logger *slog.Logger
}

// New wires a Scheduler from an EngineConfig and a job factory, the way the
// teacher's cmd/scheduler wires dispatcher+executor+reaper+worker from its
// Config (SPEC_FULL §6).
func New(cfg *config.EngineConfig, factory JobFactory, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	clk := clock.Real()
	st := store.New(clk)
	pool := worker.NewPool(factory, cfg.ThreadPoolSize, logger)
	lsnr := listener.NewManager(logger)

	eng := engine.New(engine.Config{
		ThreadPoolSize:   cfg.ThreadPoolSize,
		BatchTimeWindow:  cfg.BatchTimeWindow(),
		MaxBatchSize:     cfg.MaxBatchSize,
		MisfireThreshold: cfg.MisfireThreshold(),
		IdleWait:         cfg.IdleWait(),
	}, clk, st, pool, lsnr, logger)

	return &Scheduler{cfg: cfg, store: st, pool: pool, lsnr: lsnr, engine: eng, logger: logger.With("component", "jobcore")}
}

// Start transitions the scheduler to running (spec §5 "start"). Safe to
// call again after Standby.
func (s *Scheduler) Start(ctx context.Context) { s.engine.Start(ctx) }

// Standby pauses firing without discarding stored schedule data (spec §5).
func (s *Scheduler) Standby() { s.engine.Standby() }

// Shutdown stops the scheduler. If wait, it blocks until in-flight jobs
// finish; otherwise it returns at once without interrupting them (spec §5).
func (s *Scheduler) Shutdown(ctx context.Context, wait bool) { s.engine.Shutdown(ctx, wait) }

// ScheduleJob stores a job and one trigger for it in a single call, the
// common case (spec §4.4 "scheduleJob").
func (s *Scheduler) ScheduleJob(job *domain.JobDetail, tr domain.Trigger) error {
	if err := s.store.StoreJob(job, false); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	if err := s.ScheduleTrigger(tr); err != nil {
		return fmt.Errorf("schedule job: %w", err)
	}
	return nil
}

// ScheduleTrigger attaches an additional trigger to an already-stored job
// (spec §4.4 "scheduleTrigger").
func (s *Scheduler) ScheduleTrigger(tr domain.Trigger) error {
	h := tr.Header()
	if _, ok := s.store.RetrieveJob(h.JobKey); !ok {
		return domain.ErrJobNotFound
	}
	if err := tr.Validate(); err != nil {
		return fmt.Errorf("schedule trigger: %w", err)
	}
	var cal calendar.Calendar
	if h.CalendarName != "" {
		cal, _ = s.store.GetCalendar(h.CalendarName)
	}
	tr.ComputeFirstFireTime(cal)
	if err := s.store.StoreTrigger(tr, false); err != nil {
		return fmt.Errorf("schedule trigger: %w", err)
	}
	s.engine.Wake()
	return nil
}

// RescheduleTrigger replaces an existing trigger with newTrigger. The new
// trigger is validated and stored before the old key is removed, so the job
// keeps a trigger throughout (spec §4.4 "rescheduleTrigger").
func (s *Scheduler) RescheduleTrigger(key keys.TriggerKey, newTrigger domain.Trigger) error {
	if _, ok := s.store.RetrieveTrigger(key); !ok {
		return domain.ErrTriggerNotFound
	}
	if err := newTrigger.Validate(); err != nil {
		return fmt.Errorf("reschedule trigger: %w", err)
	}
	h := newTrigger.Header()
	var cal calendar.Calendar
	if h.CalendarName != "" {
		cal, _ = s.store.GetCalendar(h.CalendarName)
	}
	newTrigger.ComputeFirstFireTime(cal)
	if err := s.store.StoreTrigger(newTrigger, h.Key == key); err != nil {
		return fmt.Errorf("reschedule trigger: %w", err)
	}
	if h.Key != key {
		s.store.RemoveTrigger(key)
	}
	s.engine.Wake()
	return nil
}

// UnscheduleJob removes a job and every trigger attached to it.
func (s *Scheduler) UnscheduleJob(key keys.JobKey) bool { return s.store.RemoveJob(key) }

// UnscheduleTrigger removes a single trigger.
func (s *Scheduler) UnscheduleTrigger(key keys.TriggerKey) bool { return s.store.RemoveTrigger(key) }

// TriggerNow fires a job once immediately, independent of its schedule
// (spec §6).
func (s *Scheduler) TriggerNow(jobKey keys.JobKey, data datamap.DataMap) error {
	return s.engine.TriggerNow(jobKey, data)
}

// PauseJob, ResumeJob, PauseTrigger, ResumeTrigger, PauseAll and ResumeAll
// mirror the store's pause-state operations (spec §4.4).
func (s *Scheduler) PauseJob(key keys.JobKey)         { s.store.PauseJob(key) }
func (s *Scheduler) ResumeJob(key keys.JobKey)        { s.store.ResumeJob(key); s.engine.Wake() }
func (s *Scheduler) PauseTrigger(key keys.TriggerKey) { s.store.PauseTrigger(key) }
func (s *Scheduler) ResumeTrigger(key keys.TriggerKey) {
	s.store.ResumeTrigger(key)
	s.engine.Wake()
}
func (s *Scheduler) PauseJobs(matcher keys.KeyMatcher)     { s.store.PauseJobs(matcher) }
func (s *Scheduler) ResumeJobs(matcher keys.KeyMatcher)    { s.store.ResumeJobs(matcher); s.engine.Wake() }
func (s *Scheduler) PauseTriggers(matcher keys.KeyMatcher) { s.store.PauseTriggers(matcher) }
func (s *Scheduler) ResumeTriggers(matcher keys.KeyMatcher) {
	s.store.ResumeTriggers(matcher)
	s.engine.Wake()
}
func (s *Scheduler) PauseAll()  { s.store.PauseAll() }
func (s *Scheduler) ResumeAll() { s.store.ResumeAll(); s.engine.Wake() }

// GetTriggerState reports a trigger's current runtime state.
func (s *Scheduler) GetTriggerState(key keys.TriggerKey) domain.TriggerState {
	return s.store.GetTriggerState(key)
}

// GetTriggersOfJob returns every trigger currently attached to a job.
func (s *Scheduler) GetTriggersOfJob(key keys.JobKey) []domain.Trigger {
	return s.store.GetTriggersForJob(key)
}

// GetJobDetail returns the stored job, if any.
func (s *Scheduler) GetJobDetail(key keys.JobKey) (*domain.JobDetail, bool) {
	return s.store.RetrieveJob(key)
}

// AddCalendar registers a named calendar usable by CalendarName on any
// trigger (spec §4.4 "addCalendar").
func (s *Scheduler) AddCalendar(name string, cal calendar.Calendar) { s.store.PutCalendar(name, cal) }

// GetCalendar returns a registered calendar, if any.
func (s *Scheduler) GetCalendar(name string) (calendar.Calendar, bool) { return s.store.GetCalendar(name) }

// AddJobListener, AddTriggerListener and AddSchedulerListener register
// fan-out observers (spec §4.3 "Listeners").
func (s *Scheduler) AddJobListener(l listener.JobListener, matchers ...keys.KeyMatcher) {
	s.lsnr.AddJobListener(l, matchers...)
}
func (s *Scheduler) AddTriggerListener(l listener.TriggerListener, matchers ...keys.KeyMatcher) {
	s.lsnr.AddTriggerListener(l, matchers...)
}
func (s *Scheduler) AddSchedulerListener(l listener.SchedulerListener) {
	s.lsnr.AddSchedulerListener(l)
}
func (s *Scheduler) RemoveJobListener(name string)       { s.lsnr.RemoveJobListener(name) }
func (s *Scheduler) RemoveTriggerListener(name string)   { s.lsnr.RemoveTriggerListener(name) }
func (s *Scheduler) RemoveSchedulerListener(name string) { s.lsnr.RemoveSchedulerListener(name) }

// Interrupt asks the job running under the given fire-instance id to stop
// cooperatively (spec §5).
func (s *Scheduler) Interrupt(fireInstanceID string) error { return s.pool.Interrupt(fireInstanceID) }

// Ping satisfies health.Prober: it reports whether the main loop is
// currently running (neither shut down nor in standby).
func (s *Scheduler) Ping(ctx context.Context) error { return s.engine.Ping(ctx) }
