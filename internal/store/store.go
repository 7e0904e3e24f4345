// Package store implements the in-memory job/trigger index (spec §4.4).
// "Transactional" here means each exported method holds the store's single
// mutex for its whole duration: no cross-process concurrency or durability
// is in scope, so a mutex is the direct reduction of "transactionally
// scoped" for an in-memory store (see DESIGN.md).
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/clock"
	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// TriggerFiredResult is what triggers_fired returns per trigger (spec §4.4):
// either enough to dispatch it, or a signal explaining why it was dropped.
type TriggerFiredResult struct {
	TriggerKey     keys.TriggerKey
	Trigger        domain.Trigger
	Job            *domain.JobDetail
	Calendar       calendar.Calendar
	FireInstanceID string
	PrevFireTime   *time.Time

	Skipped    bool
	SkipReason string // "removed", "paused", "blocked"
}

// Store is the single in-memory index set the engine drives through its
// main loop and completion handler.
type Store struct {
	mu sync.Mutex

	clock clock.Clock

	jobs          map[keys.JobKey]*domain.JobDetail
	triggers      map[keys.TriggerKey]domain.Trigger
	triggersByJob map[keys.JobKey]map[keys.TriggerKey]struct{}
	states        map[keys.TriggerKey]domain.TriggerState
	calendars     map[string]calendar.Calendar

	pausedTriggerGroups map[string]struct{}
	pausedJobGroups     map[string]struct{}

	executingJobs map[keys.JobKey]int // count of EXECUTING triggers per job

	waiting     *fireHeap
	instanceSeq uint64
}

func New(clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.Real()
	}
	return &Store{
		clock:               clk,
		jobs:                make(map[keys.JobKey]*domain.JobDetail),
		triggers:            make(map[keys.TriggerKey]domain.Trigger),
		triggersByJob:       make(map[keys.JobKey]map[keys.TriggerKey]struct{}),
		states:              make(map[keys.TriggerKey]domain.TriggerState),
		calendars:           make(map[string]calendar.Calendar),
		pausedTriggerGroups: make(map[string]struct{}),
		pausedJobGroups:     make(map[string]struct{}),
		executingJobs:       make(map[keys.JobKey]int),
		waiting:             newFireHeap(),
	}
}

// StoreJob inserts or replaces a job (spec §4.4 store_job).
func (s *Store) StoreJob(job *domain.JobDetail, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Key]; exists && !replaceExisting {
		return fmt.Errorf("job %s: %w", job.Key, domain.ErrJobAlreadyExists)
	}
	s.jobs[job.Key] = job.Clone()
	if _, ok := s.triggersByJob[job.Key]; !ok {
		s.triggersByJob[job.Key] = make(map[keys.TriggerKey]struct{})
	}
	return nil
}

// StoreTrigger inserts or replaces a trigger (spec §4.4 store_trigger). The
// trigger's job must already exist.
func (s *Store) StoreTrigger(tr domain.Trigger, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeTriggerLocked(tr, replaceExisting)
}

func (s *Store) storeTriggerLocked(tr domain.Trigger, replaceExisting bool) error {
	h := tr.Header()
	if _, exists := s.triggers[h.Key]; exists && !replaceExisting {
		return fmt.Errorf("trigger %s: %w", h.Key, domain.ErrTriggerAlreadyExists)
	}
	if _, ok := s.jobs[h.JobKey]; !ok {
		return &domain.TriggerJobKeyError{Trigger: h.Key, Job: h.JobKey}
	}

	s.triggers[h.Key] = tr
	if _, ok := s.triggersByJob[h.JobKey]; !ok {
		s.triggersByJob[h.JobKey] = make(map[keys.TriggerKey]struct{})
	}
	s.triggersByJob[h.JobKey][h.Key] = struct{}{}

	state := domain.StateWaiting
	if _, paused := s.pausedTriggerGroups[h.Key.Group]; paused {
		state = domain.StatePaused
	}
	s.states[h.Key] = state
	if state == domain.StateWaiting {
		s.pushWaitingLocked(tr)
	}
	return nil
}

func (s *Store) pushWaitingLocked(tr domain.Trigger) {
	h := tr.Header()
	if h.NextFireTime == nil {
		return
	}
	s.waiting.pushEntry(&fireEntry{key: h.Key, fireTime: *h.NextFireTime, priority: h.Priority})
}

// RemoveJob removes a job and cascades to all of its triggers (spec §4.4).
func (s *Store) RemoveJob(key keys.JobKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[key]; !ok {
		return false
	}
	for trKey := range s.triggersByJob[key] {
		delete(s.triggers, trKey)
		delete(s.states, trKey)
	}
	delete(s.triggersByJob, key)
	delete(s.jobs, key)
	delete(s.executingJobs, key)
	return true
}

// RemoveTrigger removes a trigger; if its job is non-durable and this was
// the job's last trigger, the job is removed too (spec §4.4).
func (s *Store) RemoveTrigger(key keys.TriggerKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeTriggerLocked(key)
}

func (s *Store) removeTriggerLocked(key keys.TriggerKey) bool {
	tr, ok := s.triggers[key]
	if !ok {
		return false
	}
	jobKey := tr.Header().JobKey
	delete(s.triggers, key)
	delete(s.states, key)
	if set, ok := s.triggersByJob[jobKey]; ok {
		delete(set, key)
		if len(set) == 0 {
			if job, ok := s.jobs[jobKey]; ok && !job.Durable {
				delete(s.jobs, jobKey)
				delete(s.triggersByJob, jobKey)
				delete(s.executingJobs, jobKey)
			}
		}
	}
	return true
}

// RetrieveJob returns a by-value snapshot of a stored job.
func (s *Store) RetrieveJob(key keys.JobKey) (*domain.JobDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[key]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// RetrieveTrigger returns the live trigger snapshot via Clone, per the
// "never alias mutable state across a transaction boundary" discipline.
func (s *Store) RetrieveTrigger(key keys.TriggerKey) (domain.Trigger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.triggers[key]
	if !ok {
		return nil, false
	}
	return tr.Clone(), true
}

// GetTriggersForJob lists every trigger owned by a job.
func (s *Store) GetTriggersForJob(key keys.JobKey) []domain.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.triggersByJob[key]
	out := make([]domain.Trigger, 0, len(set))
	for trKey := range set {
		if tr, ok := s.triggers[trKey]; ok {
			out = append(out, tr.Clone())
		}
	}
	return out
}

func (s *Store) GetTriggerState(key keys.TriggerKey) domain.TriggerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[key]
	if !ok {
		return domain.StateNone
	}
	return state
}

func (s *Store) GetPausedTriggerGroups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pausedTriggerGroups))
	for g := range s.pausedTriggerGroups {
		out = append(out, g)
	}
	return out
}

// PauseTrigger: WAITING -> PAUSED, BLOCKED -> PAUSED_BLOCKED (spec §4.3).
func (s *Store) PauseTrigger(key keys.TriggerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauseTriggerLocked(key)
}

func (s *Store) pauseTriggerLocked(key keys.TriggerKey) {
	switch s.states[key] {
	case domain.StateWaiting:
		s.states[key] = domain.StatePaused
	case domain.StateBlocked:
		s.states[key] = domain.StatePausedBlocked
	}
}

// ResumeTrigger reverses PauseTrigger (spec §4.3).
func (s *Store) ResumeTrigger(key keys.TriggerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeTriggerLocked(key)
}

func (s *Store) resumeTriggerLocked(key keys.TriggerKey) {
	switch s.states[key] {
	case domain.StatePaused:
		s.states[key] = domain.StateWaiting
		if tr, ok := s.triggers[key]; ok {
			s.pushWaitingLocked(tr)
		}
	case domain.StatePausedBlocked:
		s.states[key] = domain.StateBlocked
	}
}

func (s *Store) PauseJob(key keys.JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggersByJob[key] {
		s.pauseTriggerLocked(trKey)
	}
}

func (s *Store) ResumeJob(key keys.JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggersByJob[key] {
		s.resumeTriggerLocked(trKey)
	}
}

func (s *Store) PauseTriggers(matcher keys.KeyMatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggers {
		if matcher.MatchesTrigger(trKey) {
			s.pauseTriggerLocked(trKey)
		}
	}
}

func (s *Store) ResumeTriggers(matcher keys.KeyMatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggers {
		if matcher.MatchesTrigger(trKey) {
			s.resumeTriggerLocked(trKey)
		}
	}
}

func (s *Store) PauseJobs(matcher keys.KeyMatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobKey, trSet := range s.triggersByJob {
		if !matcher.MatchesJob(jobKey) {
			continue
		}
		for trKey := range trSet {
			s.pauseTriggerLocked(trKey)
		}
	}
}

func (s *Store) ResumeJobs(matcher keys.KeyMatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobKey, trSet := range s.triggersByJob {
		if !matcher.MatchesJob(jobKey) {
			continue
		}
		for trKey := range trSet {
			s.resumeTriggerLocked(trKey)
		}
	}
}

// PauseTriggerGroup additionally records the group so newly-inserted
// triggers in it arrive PAUSED (spec §4.3 "Pause / resume").
func (s *Store) PauseTriggerGroup(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups[group] = struct{}{}
	for trKey := range s.triggers {
		if trKey.Group == group {
			s.pauseTriggerLocked(trKey)
		}
	}
}

func (s *Store) ResumeTriggerGroup(group string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedTriggerGroups, group)
	for trKey := range s.triggers {
		if trKey.Group == group {
			s.resumeTriggerLocked(trKey)
		}
	}
}

func (s *Store) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggers {
		s.pauseTriggerLocked(trKey)
	}
}

func (s *Store) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trKey := range s.triggers {
		s.resumeTriggerLocked(trKey)
	}
}

// PutCalendar stores (or replaces) a named calendar. Calendars are mutable
// only by replacement (spec §3).
func (s *Store) PutCalendar(name string, cal calendar.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[name] = cal
}

func (s *Store) GetCalendar(name string) (calendar.Calendar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, ok := s.calendars[name]
	return cal, ok
}

// AcquireNextTriggers pops up to maxCount WAITING triggers whose fire time
// is no later than noLaterThan+timeWindow (past-due ones included),
// transitioning each WAITING ->
// ACQUIRED atomically (spec §4.3 step 2).
func (s *Store) AcquireNextTriggers(noLaterThan time.Time, maxCount int, timeWindow time.Duration) []domain.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := noLaterThan.Add(timeWindow)
	var acquired []domain.Trigger
	var deferred []*fireEntry

	for len(acquired) < maxCount {
		entry := s.waiting.popEntry()
		if entry == nil {
			break
		}
		tr, ok := s.triggers[entry.key]
		if !ok || s.states[entry.key] != domain.StateWaiting {
			continue // stale entry: trigger removed, paused, or already acquired
		}
		h := tr.Header()
		if h.NextFireTime == nil || !h.NextFireTime.Equal(entry.fireTime) {
			continue // stale: trigger was rescheduled since this entry was pushed
		}
		if entry.fireTime.After(cutoff) {
			deferred = append(deferred, entry)
			break
		}
		s.states[entry.key] = domain.StateAcquired
		acquired = append(acquired, tr)
	}

	for _, e := range deferred {
		s.waiting.pushEntry(e)
	}
	return acquired
}

// ReleasesAcquiredTrigger undoes an acquisition (spec §4.4).
func (s *Store) ReleasesAcquiredTrigger(key keys.TriggerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[key] != domain.StateAcquired {
		return
	}
	s.states[key] = domain.StateWaiting
	if tr, ok := s.triggers[key]; ok {
		s.pushWaitingLocked(tr)
	}
}

// TriggersFired applies spec §4.3 step 4 to a batch of previously-acquired
// triggers, returning one TriggerFiredResult per input.
func (s *Store) TriggersFired(batch []keys.TriggerKey) []TriggerFiredResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]TriggerFiredResult, 0, len(batch))
	for _, key := range batch {
		tr, ok := s.triggers[key]
		if !ok {
			results = append(results, TriggerFiredResult{TriggerKey: key, Skipped: true, SkipReason: "removed"})
			continue
		}
		if s.states[key] == domain.StatePaused || s.states[key] == domain.StatePausedBlocked {
			results = append(results, TriggerFiredResult{TriggerKey: key, Skipped: true, SkipReason: "paused"})
			continue
		}

		h := tr.Header()
		job := s.jobs[h.JobKey]
		if job != nil && job.DisallowConcurrentExec && s.executingJobs[h.JobKey] > 0 {
			s.states[key] = domain.StateBlocked
			results = append(results, TriggerFiredResult{TriggerKey: key, Skipped: true, SkipReason: "blocked"})
			continue
		}

		var cal calendar.Calendar
		if h.CalendarName != "" {
			cal = s.calendars[h.CalendarName]
		}

		prev := h.NextFireTime
		tr.Triggered(cal)
		s.states[key] = domain.StateExecuting
		if job != nil {
			s.executingJobs[h.JobKey]++
		}

		s.instanceSeq++
		h.FireInstanceID = fmt.Sprintf("%s-%d", key, s.instanceSeq)

		results = append(results, TriggerFiredResult{
			TriggerKey:     key,
			Trigger:        tr.Clone(),
			Job:            job.Clone(),
			Calendar:       cal,
			FireInstanceID: h.FireInstanceID,
			PrevFireTime:   prev,
		})
	}
	return results
}

// TriggeredJobComplete applies the spec §4.3 "Completion handler" (also
// spec §4.4's triggered_job_complete).
func (s *Store) TriggeredJobComplete(triggerKey keys.TriggerKey, jobKey keys.JobKey, instruction domain.CompletionInstruction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.executingJobs[jobKey] > 0 {
		s.executingJobs[jobKey]--
	}

	switch instruction {
	case domain.CompletionDeleteTrigger:
		s.removeTriggerLocked(triggerKey)
	case domain.CompletionSetTriggerComplete:
		s.states[triggerKey] = domain.StateComplete
	case domain.CompletionSetAllJobTriggersComplete:
		for trKey := range s.triggersByJob[jobKey] {
			s.states[trKey] = domain.StateComplete
		}
	case domain.CompletionSetTriggerError:
		s.states[triggerKey] = domain.StateError
	case domain.CompletionSetAllJobTriggersError:
		for trKey := range s.triggersByJob[jobKey] {
			s.states[trKey] = domain.StateError
		}
	case domain.CompletionReExecuteJob:
		if tr, ok := s.triggers[triggerKey]; ok {
			now := s.clock.Now()
			h := tr.Header()
			h.NextFireTime = &now
			s.states[triggerKey] = domain.StateWaiting
			s.pushWaitingLocked(tr)
		}
	case domain.CompletionNoop:
		if tr, ok := s.triggers[triggerKey]; ok && s.states[triggerKey] == domain.StateExecuting {
			if tr.MayFireAgain() {
				s.states[triggerKey] = domain.StateWaiting
				s.pushWaitingLocked(tr)
			} else {
				s.states[triggerKey] = domain.StateComplete
			}
		}
	}

	// Step 3: if the trigger has no more fire times and its job isn't
	// durable with no other triggers, remove the job.
	if tr, ok := s.triggers[triggerKey]; ok && !tr.MayFireAgain() {
		if set, ok := s.triggersByJob[jobKey]; ok {
			if job, ok := s.jobs[jobKey]; ok && !job.Durable && len(set) <= 1 {
				delete(s.jobs, jobKey)
				delete(s.triggersByJob, jobKey)
				delete(s.executingJobs, jobKey)
			}
		}
	}

	// Step 4: unblock this job's BLOCKED triggers.
	for trKey := range s.triggersByJob[jobKey] {
		if s.states[trKey] != domain.StateBlocked {
			continue
		}
		if _, paused := s.pausedTriggerGroups[trKey.Group]; paused {
			s.states[trKey] = domain.StatePaused
			continue
		}
		s.states[trKey] = domain.StateWaiting
		if tr, ok := s.triggers[trKey]; ok {
			s.pushWaitingLocked(tr)
		}
	}
}

// RecoverableTriggers returns triggers stuck EXECUTING whose job requests
// recovery: the process died mid-fire (SPEC_FULL §8 "Recovery sweep").
func (s *Store) RecoverableTriggers() []keys.TriggerKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []keys.TriggerKey
	for trKey, state := range s.states {
		if state != domain.StateExecuting {
			continue
		}
		tr, ok := s.triggers[trKey]
		if !ok {
			continue
		}
		job, ok := s.jobs[tr.Header().JobKey]
		if !ok || !job.RequestsRecovery {
			continue
		}
		out = append(out, trKey)
	}
	return out
}

// Recover re-queues a stuck trigger with next_fire_time = now, WAITING
// (SPEC_FULL §8 "Recovery sweep").
func (s *Store) Recover(key keys.TriggerKey, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.triggers[key]
	if !ok {
		return
	}
	h := tr.Header()
	h.NextFireTime = &now
	s.states[key] = domain.StateWaiting
	s.pushWaitingLocked(tr)
}

// EarliestWaitingFireTime returns the soonest fire time among WAITING
// triggers, used by the engine's idle-sleep calculation (spec §4.3 step 2).
func (s *Store) EarliestWaitingFireTime() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		e := s.waiting.peek()
		if e == nil {
			return time.Time{}, false
		}
		tr, ok := s.triggers[e.key]
		if !ok || s.states[e.key] != domain.StateWaiting {
			s.waiting.popEntry()
			continue
		}
		h := tr.Header()
		if h.NextFireTime == nil || !h.NextFireTime.Equal(e.fireTime) {
			s.waiting.popEntry()
			continue
		}
		return e.fireTime, true
	}
}
