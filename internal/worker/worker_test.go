package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/stretchr/testify/require"
)

type fakeJob struct {
	err   error
	panic bool
}

func (j *fakeJob) Execute(ctx context.Context, jobCtx *JobExecutionContext) error {
	if j.panic {
		panic("boom")
	}
	return j.err
}

type fakeFactory struct {
	job Job
	err error
}

func (f *fakeFactory) NewJob(detail *domain.JobDetail) (Job, error) { return f.job, f.err }

func submitOne(t *testing.T, factory Factory) Result {
	t.Helper()
	p := NewPool(factory, 1, nil)
	detail := &domain.JobDetail{Key: keys.NewJobKey("j1", ""), JobDataMap: map[string]string{}}
	p.Submit(context.Background(), keys.NewTriggerKey("t1", ""), detail.Key, detail, "fi-1", false)

	select {
	case res := <-p.Completions():
		return res
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
		return Result{}
	}
}

func TestSuccessfulExecutionReportsNoop(t *testing.T) {
	res := submitOne(t, &fakeFactory{job: &fakeJob{}})
	require.NoError(t, res.Err)
	require.Equal(t, domain.CompletionNoop, res.Instruction)
}

func TestPanicTranslatesToSetTriggerErrorWithoutRefire(t *testing.T) {
	res := submitOne(t, &fakeFactory{job: &fakeJob{panic: true}})
	require.Error(t, res.Err)
	require.Equal(t, domain.CompletionSetTriggerError, res.Instruction)
}

func TestJobExecutionErrorRefireDominates(t *testing.T) {
	err := &domain.JobExecutionError{Cause: errors.New("transient"), Refire: true, UnscheduleAll: true}
	res := submitOne(t, &fakeFactory{job: &fakeJob{err: err}})
	require.Equal(t, domain.CompletionReExecuteJob, res.Instruction)
}

func TestFactoryErrorReportsSetTriggerError(t *testing.T) {
	res := submitOne(t, &fakeFactory{err: errors.New("unknown job class")})
	require.Equal(t, domain.CompletionSetTriggerError, res.Instruction)
}

func TestInterruptUnknownFireInstanceReturnsError(t *testing.T) {
	p := NewPool(&fakeFactory{job: &fakeJob{}}, 1, nil)
	err := p.Interrupt("does-not-exist")
	require.ErrorIs(t, err, domain.ErrUnableToInterruptJob)
}
