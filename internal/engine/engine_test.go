package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/clock"
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/ErlanBelekov/jobcore/internal/listener"
	"github.com/ErlanBelekov/jobcore/internal/store"
	"github.com/ErlanBelekov/jobcore/internal/worker"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs *atomic.Int32
}

func (j *countingJob) Execute(ctx context.Context, jobCtx *worker.JobExecutionContext) error {
	j.runs.Add(1)
	return nil
}

type countingFactory struct {
	runs atomic.Int32
}

func (f *countingFactory) NewJob(detail *domain.JobDetail) (worker.Job, error) {
	return &countingJob{runs: &f.runs}, nil
}

func newTestEngine(t *testing.T, clk clock.Clock, factory worker.Factory, poolSize int) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(clk)
	pool := worker.NewPool(factory, poolSize, nil)
	lsnr := listener.NewManager(nil)
	cfg := DefaultConfig()
	cfg.IdleWait = 50 * time.Millisecond
	eng := New(cfg, clk, st, pool, lsnr, nil)
	return eng, st
}

func TestEngineSimpleRepeatFiresExpectedCount(t *testing.T) {
	factory := &countingFactory{}
	eng, st := newTestEngine(t, clock.Real(), factory, 2)

	job := &domain.JobDetail{Key: keys.NewJobKey("j1", ""), JobClass: "count", JobDataMap: datamap.New()}
	require.NoError(t, st.StoreJob(job, false))

	tr := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, 20*time.Millisecond, 2)
	tr.StartTime = time.Now()
	tr.ComputeFirstFireTime(nil)
	require.NoError(t, st.StoreTrigger(tr, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	defer eng.Shutdown(context.Background(), true)

	require.Eventually(t, func() bool {
		return factory.runs.Load() == 3
	}, 2*time.Second, 10*time.Millisecond, "expected 3 total firings for repeat_count=2")

	require.Eventually(t, func() bool {
		return st.GetTriggerState(tr.Key) == domain.StateComplete
	}, time.Second, 10*time.Millisecond)
}

func TestEngineDisallowConcurrentBlocksSecondTrigger(t *testing.T) {
	factory := &countingFactory{}
	eng, st := newTestEngine(t, clock.Real(), factory, 4)

	job := &domain.JobDetail{
		Key:                    keys.NewJobKey("j1", ""),
		JobClass:               "count",
		JobDataMap:             datamap.New(),
		DisallowConcurrentExec: true,
	}
	require.NoError(t, st.StoreJob(job, false))

	start := time.Now().Add(20 * time.Millisecond)
	t1 := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, time.Hour, 0)
	t1.StartTime = start
	t1.ComputeFirstFireTime(nil)
	t2 := domain.NewSimpleTrigger(keys.NewTriggerKey("t2", ""), job.Key, time.Hour, 0)
	t2.StartTime = start
	t2.ComputeFirstFireTime(nil)
	require.NoError(t, st.StoreTrigger(t1, false))
	require.NoError(t, st.StoreTrigger(t2, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	defer eng.Shutdown(context.Background(), true)

	require.Eventually(t, func() bool {
		return factory.runs.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Exactly one of the two same-instant triggers should ever run the job
	// concurrently; disallow-concurrent means the other is BLOCKED then
	// released to WAITING/COMPLETE on completion, not executed in parallel.
	require.Eventually(t, func() bool {
		return factory.runs.Load() == 2
	}, 2*time.Second, 10*time.Millisecond, "blocked trigger should eventually run after the first completes")
}

func TestEngineTriggerNowUsesNormalDispatchPath(t *testing.T) {
	factory := &countingFactory{}
	eng, st := newTestEngine(t, clock.Real(), factory, 2)

	job := &domain.JobDetail{Key: keys.NewJobKey("j1", ""), JobClass: "count", JobDataMap: datamap.New(), Durable: true}
	require.NoError(t, st.StoreJob(job, false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	defer eng.Shutdown(context.Background(), true)

	require.NoError(t, eng.TriggerNow(job.Key, nil))

	require.Eventually(t, func() bool {
		return factory.runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
