package domain

import (
	"errors"
	"fmt"

	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// Sentinel errors for store and scheduling-surface failures, in the style
// the teacher's internal/domain package uses for its own sentinel block.
var (
	ErrObjectNotFound           = errors.New("object not found")
	ErrJobNotFound              = fmt.Errorf("job not found: %w", ErrObjectNotFound)
	ErrTriggerNotFound          = fmt.Errorf("trigger not found: %w", ErrObjectNotFound)
	ErrCalendarNotFound         = fmt.Errorf("calendar not found: %w", ErrObjectNotFound)
	ErrObjectAlreadyExists      = errors.New("object already exists")
	ErrJobAlreadyExists         = fmt.Errorf("job already exists: %w", ErrObjectAlreadyExists)
	ErrTriggerAlreadyExists     = fmt.Errorf("trigger already exists: %w", ErrObjectAlreadyExists)
	ErrTriggerJobMismatch       = errors.New("trigger references a job that does not exist")
	ErrUnableToInterruptJob     = errors.New("job cannot be cooperatively interrupted")
	ErrSchedulerConfiguration   = errors.New("invalid scheduler configuration")
	ErrSchedulerShutdown        = errors.New("scheduler is shut down")
	ErrSchedulerStandby         = errors.New("scheduler is in standby")
)

// InvalidCronExpressionError mirrors spec §7's InvalidCronExpression: a
// parse-time failure that carries positional detail a plain sentinel can't.
type InvalidCronExpressionError struct {
	Field    string
	Position int
	Reason   string
}

func (e *InvalidCronExpressionError) Error() string {
	return fmt.Sprintf("invalid cron expression at %s (position %d): %s", e.Field, e.Position, e.Reason)
}

// JobExecutionError is what a user job raises from Execute to request
// refire/unschedule behavior (spec §4.3, §7). Flags are mutually exclusive
// in effect: Refire dominates.
type JobExecutionError struct {
	Cause           error
	Refire          bool
	UnscheduleThis  bool
	UnscheduleAll   bool
}

func (e *JobExecutionError) Error() string {
	if e.Cause != nil {
		return "job execution failed: " + e.Cause.Error()
	}
	return "job execution failed"
}

func (e *JobExecutionError) Unwrap() error { return e.Cause }

// TriggerJobKeyError reports a trigger whose job key does not resolve in
// the store (spec §3 invariant: "the job key must reference an existing
// stored job at scheduling time").
type TriggerJobKeyError struct {
	Trigger keys.TriggerKey
	Job     keys.JobKey
}

func (e *TriggerJobKeyError) Error() string {
	return fmt.Sprintf("trigger %s references nonexistent job %s", e.Trigger, e.Job)
}

func (e *TriggerJobKeyError) Unwrap() error { return ErrTriggerJobMismatch }
