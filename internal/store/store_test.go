package store

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/clock"
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

func newJob(name string) *domain.JobDetail {
	return &domain.JobDetail{
		Key:        keys.NewJobKey(name, ""),
		JobClass:   "noop",
		JobDataMap: datamap.New(),
	}
}

func TestStoreJobAlreadyExists(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	if err := s.StoreJob(job, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.StoreJob(job, false); err == nil {
		t.Fatal("expected ObjectAlreadyExists on duplicate store without replace")
	}
	if err := s.StoreJob(job, true); err != nil {
		t.Fatalf("replace_existing=true should succeed: %v", err)
	}
}

func TestStoreTriggerRequiresExistingJob(t *testing.T) {
	s := New(clock.Real())
	tr := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), keys.NewJobKey("missing", ""), time.Second, 0)
	if err := s.StoreTrigger(tr, false); err == nil {
		t.Fatal("expected error referencing a nonexistent job")
	}
}

func TestAcquireNextTriggersOrdering(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	_ = s.StoreJob(job, false)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	high := domain.NewSimpleTrigger(keys.NewTriggerKey("high", ""), job.Key, time.Minute, 0)
	high.StartTime = base
	high.Priority = 10
	high.ComputeFirstFireTime(nil)

	low := domain.NewSimpleTrigger(keys.NewTriggerKey("low", ""), job.Key, time.Minute, 0)
	low.StartTime = base
	low.Priority = 1
	low.ComputeFirstFireTime(nil)

	later := domain.NewSimpleTrigger(keys.NewTriggerKey("later", ""), job.Key, time.Minute, 0)
	later.StartTime = base.Add(time.Hour)
	later.ComputeFirstFireTime(nil)

	_ = s.StoreTrigger(low, false)
	_ = s.StoreTrigger(high, false)
	_ = s.StoreTrigger(later, false)

	acquired := s.AcquireNextTriggers(base, 10, 0)
	if len(acquired) != 2 {
		t.Fatalf("expected 2 triggers within the window, got %d", len(acquired))
	}
	if acquired[0].Header().Key.Name != "high" {
		t.Fatalf("expected higher-priority trigger first at same fire time, got %s", acquired[0].Header().Key.Name)
	}
	if s.GetTriggerState(high.Key) != domain.StateAcquired {
		t.Fatalf("expected acquired trigger to be in ACQUIRED state")
	}
}

func TestReleasesAcquiredTrigger(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	_ = s.StoreJob(job, false)
	tr := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, time.Minute, 0)
	tr.StartTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.ComputeFirstFireTime(nil)
	_ = s.StoreTrigger(tr, false)

	acquired := s.AcquireNextTriggers(tr.StartTime, 10, 0)
	if len(acquired) != 1 {
		t.Fatalf("expected 1 acquired trigger, got %d", len(acquired))
	}
	s.ReleasesAcquiredTrigger(tr.Key)
	if s.GetTriggerState(tr.Key) != domain.StateWaiting {
		t.Fatalf("expected trigger back in WAITING after release")
	}
	acquiredAgain := s.AcquireNextTriggers(tr.StartTime, 10, 0)
	if len(acquiredAgain) != 1 {
		t.Fatalf("expected released trigger to be acquirable again")
	}
}

func TestDisallowConcurrentBlocks(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	job.DisallowConcurrentExec = true
	_ = s.StoreJob(job, false)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, time.Minute, 0)
	t1.StartTime = start
	t1.ComputeFirstFireTime(nil)
	t2 := domain.NewSimpleTrigger(keys.NewTriggerKey("t2", ""), job.Key, time.Minute, 0)
	t2.StartTime = start
	t2.ComputeFirstFireTime(nil)
	_ = s.StoreTrigger(t1, false)
	_ = s.StoreTrigger(t2, false)

	acquired := s.AcquireNextTriggers(start, 10, 0)
	if len(acquired) != 2 {
		t.Fatalf("expected both triggers acquired, got %d", len(acquired))
	}
	keysBatch := []keys.TriggerKey{t1.Key, t2.Key}
	results := s.TriggersFired(keysBatch)

	executing, blocked := 0, 0
	for _, r := range results {
		if r.Skipped && r.SkipReason == "blocked" {
			blocked++
		} else if !r.Skipped {
			executing++
		}
	}
	if executing != 1 || blocked != 1 {
		t.Fatalf("expected exactly one EXECUTING and one BLOCKED, got executing=%d blocked=%d", executing, blocked)
	}
}

func TestPauseResumeRoundTrip(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	_ = s.StoreJob(job, false)
	tr := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, time.Minute, 0)
	tr.StartTime = time.Now()
	tr.ComputeFirstFireTime(nil)
	_ = s.StoreTrigger(tr, false)

	s.PauseTrigger(tr.Key)
	s.ResumeTrigger(tr.Key)
	s.PauseTrigger(tr.Key)

	if got := s.GetTriggerState(tr.Key); got != domain.StatePaused {
		t.Fatalf("expected PAUSED after pause-resume-pause, got %s", got)
	}
}

func TestRemoveTriggerCascadesNonDurableJob(t *testing.T) {
	s := New(clock.Real())
	job := newJob("j1")
	_ = s.StoreJob(job, false)
	tr := domain.NewSimpleTrigger(keys.NewTriggerKey("t1", ""), job.Key, time.Minute, 0)
	tr.StartTime = time.Now()
	tr.ComputeFirstFireTime(nil)
	_ = s.StoreTrigger(tr, false)

	if !s.RemoveTrigger(tr.Key) {
		t.Fatal("expected remove_trigger to succeed")
	}
	if _, ok := s.RetrieveJob(job.Key); ok {
		t.Fatal("expected non-durable job with no remaining triggers to be removed")
	}
}
