// Package worker implements the fixed-size job execution pool (spec §4.3
// "Worker", §5). It mirrors the teacher's poll-batch/spawn-goroutine/wait
// shape (internal/scheduler/worker.go), generalized to "acquire batch,
// dispatch each to the pool, pool reports back via a completion channel".
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// Job is the runnable unit a job factory resolves a JobDetail into
// (spec §4.3 "Worker": "acquires a job instance from the external
// job-factory capability").
type Job interface {
	Execute(ctx context.Context, jobCtx *JobExecutionContext) error
}

// Interruptible is the cooperative-cancellation capability (spec §5):
// Pool.Interrupt calls Interrupt on a running job that implements it, and
// cancels the job's context for one that does not.
type Interruptible interface {
	Interrupt() error
}

// JobExecutionContext is what a job's Execute receives: its own data map
// plus the firing trigger/job identity.
type JobExecutionContext struct {
	JobDetail      *domain.JobDetail
	FireInstanceID string
	ScheduledTime  interface{} // a time.Time when set; Pool.run leaves it nil
	Recovering     bool
}

// Factory resolves a JobDetail's JobClass into a runnable Job instance. The
// engine never constructs jobs itself (spec §4.3).
type Factory interface {
	NewJob(detail *domain.JobDetail) (Job, error)
}

// Result is what a worker reports back after running one job.
type Result struct {
	TriggerKey     keys.TriggerKey
	JobKey         keys.JobKey
	Instruction    domain.CompletionInstruction
	Err            error
	MutatedDataMap map[string]string
}

// Pool is a fixed-size worker pool: a buffered channel of capacity N acts
// as the concurrency semaphore, matching the teacher's sync.WaitGroup +
// goroutine-per-job pattern generalized to report completions asynchronously
// rather than blocking the caller.
type Pool struct {
	factory Factory
	logger  *slog.Logger

	sem  chan struct{}
	wg   sync.WaitGroup
	done chan Result

	mu          sync.Mutex
	interrupts  map[string]func() error
}

func NewPool(factory Factory, size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		factory:    factory,
		logger:     logger.With("component", "worker_pool"),
		sem:        make(chan struct{}, size),
		done:       make(chan Result, size*4),
		interrupts: make(map[string]func() error),
	}
}

// Completions is the channel the engine's completion handler drains.
func (p *Pool) Completions() <-chan Result { return p.done }

// AvailableSlots reports how many workers could be dispatched right now,
// used by the main loop's acquire-count calculation (spec §4.3 step 2).
func (p *Pool) AvailableSlots() int { return cap(p.sem) - len(p.sem) }

// Submit hands one fired trigger+job to the pool. It must not block the
// main loop beyond the handoff itself (spec §4.3 step 5): the caller is
// expected to have already confirmed a free slot via AvailableSlots.
func (p *Pool) Submit(ctx context.Context, triggerKey keys.TriggerKey, jobKey keys.JobKey, detail *domain.JobDetail, fireInstanceID string, recovering bool) {
	p.sem <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		p.run(ctx, triggerKey, jobKey, detail, fireInstanceID, recovering)
	}()
}

func (p *Pool) run(ctx context.Context, triggerKey keys.TriggerKey, jobKey keys.JobKey, detail *domain.JobDetail, fireInstanceID string, recovering bool) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.interrupts[fireInstanceID] = func() error { cancel(); return nil }
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.interrupts, fireInstanceID)
		p.mu.Unlock()
	}()

	result := Result{TriggerKey: triggerKey, JobKey: jobKey}

	job, err := p.factory.NewJob(detail)
	if err != nil {
		p.logger.Error("job factory failed", "job_class", detail.JobClass, "error", err)
		result.Err = err
		result.Instruction = domain.CompletionSetTriggerError
		p.done <- result
		return
	}

	if ij, ok := job.(Interruptible); ok {
		p.mu.Lock()
		p.interrupts[fireInstanceID] = ij.Interrupt
		p.mu.Unlock()
	}

	execErr := p.safeExecute(jobCtx, job, &JobExecutionContext{
		JobDetail:      detail,
		FireInstanceID: fireInstanceID,
		Recovering:     recovering,
	})

	result.MutatedDataMap = detail.JobDataMap
	result.Instruction, result.Err = translateOutcome(execErr)
	p.done <- result
}

// safeExecute treats a panic as a job-execution failure that does not
// request refire (spec §7 "A panic in a worker...").
func (p *Pool) safeExecute(ctx context.Context, job Job, jobCtx *JobExecutionContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Execute(ctx, jobCtx)
}

func translateOutcome(execErr error) (domain.CompletionInstruction, error) {
	if execErr == nil {
		return domain.CompletionNoop, nil
	}
	var jobErr *domain.JobExecutionError
	if asJobExecutionError(execErr, &jobErr) {
		switch {
		case jobErr.Refire:
			return domain.CompletionReExecuteJob, jobErr
		case jobErr.UnscheduleAll:
			return domain.CompletionSetAllJobTriggersComplete, jobErr
		case jobErr.UnscheduleThis:
			return domain.CompletionDeleteTrigger, jobErr
		default:
			return domain.CompletionSetTriggerError, jobErr
		}
	}
	return domain.CompletionSetTriggerError, execErr
}

func asJobExecutionError(err error, target **domain.JobExecutionError) bool {
	je, ok := err.(*domain.JobExecutionError)
	if !ok {
		return false
	}
	*target = je
	return true
}

// Interrupt attempts a cooperative stop of the job running under the given
// fire-instance id (spec §5). It returns ErrUnableToInterruptJob when no job
// is running under that id; otherwise it returns the job's Interrupt error
// (nil when only the job's context was cancelled).
func (p *Pool) Interrupt(fireInstanceID string) error {
	p.mu.Lock()
	fn, ok := p.interrupts[fireInstanceID]
	p.mu.Unlock()
	if !ok {
		return domain.ErrUnableToInterruptJob
	}
	return fn()
}

// Wait blocks until every dispatched job has reported completion
// (shutdown(wait=true), spec §5).
func (p *Pool) Wait() { p.wg.Wait() }
