// Package engine implements the scheduler's single main-loop goroutine
// (spec §4.3): acquire, sleep, fire, dispatch, complete, repeat.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/clock"
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/ErlanBelekov/jobcore/internal/listener"
	"github.com/ErlanBelekov/jobcore/internal/store"
	"github.com/ErlanBelekov/jobcore/internal/worker"
)

// Config mirrors the subset of EngineConfig the main loop reads directly
// (spec §6 "Configuration options").
type Config struct {
	ThreadPoolSize     int
	BatchTimeWindow    time.Duration
	MaxBatchSize       int
	MisfireThreshold   time.Duration
	IdleWait           time.Duration
}

func DefaultConfig() Config {
	return Config{
		ThreadPoolSize:   5,
		BatchTimeWindow:  0,
		MaxBatchSize:     1,
		MisfireThreshold: 60 * time.Second,
		IdleWait:         30 * time.Second,
	}
}

type runState int

const (
	stateStandby runState = iota
	stateRunning
	stateShutdown
)

// Engine drives one scheduler instance's main loop.
type Engine struct {
	cfg    Config
	clock  clock.Clock
	store  *store.Store
	pool   *worker.Pool
	lsnr   *listener.Manager
	logger *slog.Logger

	mu      sync.Mutex
	state   runState
	started bool // main loop and completion loop launched

	wake     chan struct{} // event-driven early wake on schedule-data changes
	stopOnce sync.Once
	done     chan struct{}
}

func New(cfg Config, clk clock.Clock, st *store.Store, pool *worker.Pool, lsnr *listener.Manager, logger *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		clock:  clk,
		store:  st,
		pool:   pool,
		lsnr:   lsnr,
		logger: logger.With("component", "engine"),
		state:  stateStandby,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Wake nudges the main loop out of its sleep early (spec §4.3 step 3:
// "event-driven early wake on schedule-data changes"). Non-blocking.
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Start transitions the engine to running and, if this is the first start,
// performs the recovery sweep before launching the main loop goroutine
// (SPEC_FULL §8 "Recovery sweep").
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	first := !e.started
	e.started = true
	e.state = stateRunning
	e.mu.Unlock()

	if first {
		e.recoverStale()
		go e.run(ctx)
		go e.completionLoop(ctx)
	}
	e.Wake()
	e.lsnr.NotifySchedulerStarted(ctx)
}

// recoverStale re-queues triggers whose job RequestsRecovery and whose
// last-known state was EXECUTING when the process died mid-fire, mirroring
// the teacher's reaper re-rescuing stale claimed jobs (SPEC_FULL §8).
func (e *Engine) recoverStale() {
	now := e.clock.Now()
	for _, key := range e.store.RecoverableTriggers() {
		e.store.Recover(key, now)
	}
}

func (e *Engine) Standby() {
	e.mu.Lock()
	e.state = stateStandby
	e.mu.Unlock()
	e.Wake()
}

// Shutdown stops the main loop. If wait, it blocks until in-flight workers
// finish; otherwise it returns at once and running jobs are left to finish
// on their own: Shutdown interrupts none of them (spec §5).
func (e *Engine) Shutdown(ctx context.Context, wait bool) {
	e.mu.Lock()
	e.state = stateShutdown
	e.mu.Unlock()
	e.Wake()
	e.stopOnce.Do(func() { close(e.done) })

	if wait {
		e.pool.Wait()
	}
	e.lsnr.NotifySchedulerShutdown(ctx)
}

// Ping reports whether the main loop is currently able to fire triggers:
// an error in standby or after Shutdown, for the demo's readiness check.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case stateShutdown:
		return domain.ErrSchedulerShutdown
	case stateStandby:
		return domain.ErrSchedulerStandby
	default:
		return nil
	}
}

func (e *Engine) isShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateShutdown
}

func (e *Engine) isStandby() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateStandby
}

// run is the single dedicated main-loop goroutine (spec §4.3 steps 1-6).
func (e *Engine) run(ctx context.Context) {
	for {
		if e.isShutdown() {
			return
		}

		// Step 1: block on standby.
		if e.isStandby() {
			e.lsnr.NotifySchedulerInStandby(ctx)
			select {
			case <-e.wake:
				continue
			case <-e.done:
				return
			case <-ctx.Done():
				return
			}
		}

		e.tick(ctx)

		select {
		case <-e.done:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// tick runs one pass of steps 2-6.
func (e *Engine) tick(ctx context.Context) {
	slots := e.pool.AvailableSlots()
	if slots <= 0 {
		e.sleepUntilWake(50 * time.Millisecond)
		return
	}
	maxCount := min(slots, e.cfg.MaxBatchSize)
	if maxCount < 1 {
		maxCount = 1
	}

	now := e.clock.Now()
	acquired := e.store.AcquireNextTriggers(now, maxCount, e.cfg.BatchTimeWindow)
	if len(acquired) == 0 {
		e.sleepForIdle(now)
		return
	}

	earliest := acquired[0].Header().NextFireTime
	if earliest != nil {
		e.sleepUntilFireTime(*earliest)
	}

	batch := make([]keys.TriggerKey, 0, len(acquired))
	for _, tr := range acquired {
		h := tr.Header()
		fireAt := now
		if h.NextFireTime != nil {
			fireAt = *h.NextFireTime
		}
		if e.clock.Now().Sub(fireAt) > e.cfg.MisfireThreshold {
			e.handleMisfire(ctx, tr)
			continue
		}
		batch = append(batch, h.Key)
	}
	if len(batch) == 0 {
		return
	}

	results := e.store.TriggersFired(batch)
	for _, r := range results {
		if r.Skipped {
			if r.SkipReason != "removed" {
				e.lsnr.NotifyTriggerMisfired(ctx, r.TriggerKey)
			}
			continue
		}
		e.dispatch(ctx, r)
	}
}

func (e *Engine) sleepForIdle(now time.Time) {
	earliest, ok := e.store.EarliestWaitingFireTime()
	wait := e.cfg.IdleWait
	if ok {
		untilEarliest := earliest.Sub(now)
		if untilEarliest < wait {
			wait = untilEarliest
		}
	}
	if wait < 0 {
		wait = 0
	}
	e.sleepUntilWake(wait)
}

func (e *Engine) sleepUntilFireTime(t time.Time) {
	d := t.Sub(e.clock.Now())
	if d <= 0 {
		return
	}
	e.sleepUntilWake(d)
}

func (e *Engine) sleepUntilWake(d time.Duration) {
	timer := e.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C():
	case <-e.wake:
	case <-e.done:
	}
}

func (e *Engine) handleMisfire(ctx context.Context, tr domain.Trigger) {
	h := tr.Header()
	e.lsnr.NotifyTriggerMisfired(ctx, h.Key)
	e.store.ReleasesAcquiredTrigger(h.Key)

	var cal calendar.Calendar
	if h.CalendarName != "" {
		cal, _ = e.store.GetCalendar(h.CalendarName)
	}
	liveTrigger, ok := e.store.RetrieveTrigger(h.Key)
	if !ok {
		return
	}
	liveTrigger.UpdateAfterMisfire(cal)
	_ = e.store.StoreTrigger(liveTrigger, true)
}

func (e *Engine) dispatch(ctx context.Context, r store.TriggerFiredResult) {
	h := r.Trigger.Header()
	vetoed := e.lsnr.NotifyTriggerFired(ctx, r.TriggerKey, h.JobKey)
	if vetoed {
		e.lsnr.NotifyJobExecutionVetoed(ctx, h.JobKey, r.TriggerKey)
		e.store.TriggeredJobComplete(r.TriggerKey, h.JobKey, domain.CompletionNoop)
		return
	}

	e.lsnr.NotifyJobToBeExecuted(ctx, h.JobKey, r.TriggerKey)
	e.pool.Submit(ctx, r.TriggerKey, h.JobKey, r.Job, r.FireInstanceID, false)
}

// completionLoop drains worker completions and applies the completion
// handler (spec §4.3 "Completion handler") as they arrive.
func (e *Engine) completionLoop(ctx context.Context) {
	for {
		select {
		case res, ok := <-e.pool.Completions():
			if !ok {
				return
			}
			e.applyCompletion(ctx, res)
		case <-e.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// applyCompletion implements spec §4.3's completion-handler steps 1-5.
func (e *Engine) applyCompletion(ctx context.Context, res worker.Result) {
	if res.MutatedDataMap != nil {
		if job, ok := e.store.RetrieveJob(res.JobKey); ok && job.PersistDataAfterExecution {
			job.JobDataMap = res.MutatedDataMap
			_ = e.store.StoreJob(job, true)
		}
	}

	e.store.TriggeredJobComplete(res.TriggerKey, res.JobKey, res.Instruction)
	e.lsnr.NotifyJobWasExecuted(ctx, res.JobKey, res.TriggerKey, res.Err)
	e.lsnr.NotifyTriggerComplete(ctx, res.TriggerKey, res.Instruction)
	e.Wake()
}

// TriggerNow fires a job once immediately, out of schedule (spec §6), as an
// ad-hoc SimpleTrigger with repeat_count=0 inserted into the normal store,
// reusing the acquire/fire/complete path rather than a side channel
// (SPEC_FULL §8).
func (e *Engine) TriggerNow(jobKey keys.JobKey, data datamap.DataMap) error {
	if _, ok := e.store.RetrieveJob(jobKey); !ok {
		return domain.ErrJobNotFound
	}

	now := e.clock.Now()
	adHocKey := keys.NewTriggerKey(fmt.Sprintf("trigger-now-%d", now.UnixNano()), "TRIGGER_NOW")
	tr := domain.NewSimpleTrigger(adHocKey, jobKey, 0, 0)
	tr.StartTime = now
	if data != nil {
		tr.JobDataMap = data
	}
	tr.ComputeFirstFireTime(nil)

	if err := e.store.StoreTrigger(tr, false); err != nil {
		return err
	}
	e.Wake()
	return nil
}
