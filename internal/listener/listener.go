// Package listener implements the engine's three-kind listener fan-out
// (spec §4.5): ordered registration, OR-combined matchers, and a snapshot
// taken before each notification round so concurrent (un)registration never
// affects an in-flight round.
package listener

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ErlanBelekov/jobcore/internal/domain"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// JobListener observes job execution lifecycle events.
type JobListener interface {
	Name() string
	JobToBeExecuted(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey)
	JobExecutionVetoed(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey)
	JobWasExecuted(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey, execErr error)
}

// TriggerListener observes trigger lifecycle events and may veto a firing.
type TriggerListener interface {
	Name() string
	TriggerFired(ctx context.Context, triggerKey keys.TriggerKey, jobKey keys.JobKey)
	VetoJobExecution(ctx context.Context, triggerKey keys.TriggerKey, jobKey keys.JobKey) bool
	TriggerMisfired(ctx context.Context, triggerKey keys.TriggerKey)
	TriggerComplete(ctx context.Context, triggerKey keys.TriggerKey, instruction domain.CompletionInstruction)
}

// SchedulerListener observes scheduler lifecycle transitions.
type SchedulerListener interface {
	Name() string
	SchedulerStarted(ctx context.Context)
	SchedulerInStandby(ctx context.Context)
	SchedulerShutdown(ctx context.Context)
	SchedulerError(ctx context.Context, msg string, err error)
}

type jobEntry struct {
	listener JobListener
	matchers []keys.KeyMatcher // OR-combined; empty means "match everything"
}

type triggerEntry struct {
	listener TriggerListener
	matchers []keys.KeyMatcher
}

// Manager owns the three ordered, matcher-filtered listener lists.
type Manager struct {
	mu sync.RWMutex

	jobListeners       []jobEntry
	triggerListeners   []triggerEntry
	schedulerListeners []SchedulerListener

	logger *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger.With("component", "listener_manager")}
}

func (m *Manager) AddJobListener(l JobListener, matchers ...keys.KeyMatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobListeners = append(m.jobListeners, jobEntry{listener: l, matchers: matchers})
}

func (m *Manager) RemoveJobListener(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobListeners = removeByName(m.jobListeners, name, func(e jobEntry) string { return e.listener.Name() })
}

func (m *Manager) AddTriggerListener(l TriggerListener, matchers ...keys.KeyMatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerListeners = append(m.triggerListeners, triggerEntry{listener: l, matchers: matchers})
}

func (m *Manager) RemoveTriggerListener(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerListeners = removeByName(m.triggerListeners, name, func(e triggerEntry) string { return e.listener.Name() })
}

func (m *Manager) AddSchedulerListener(l SchedulerListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedulerListeners = append(m.schedulerListeners, l)
}

func (m *Manager) RemoveSchedulerListener(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedulerListeners = removeByName(m.schedulerListeners, name, func(l SchedulerListener) string { return l.Name() })
}

func removeByName[T any](list []T, name string, nameOf func(T) string) []T {
	out := list[:0:0]
	for _, e := range list {
		if nameOf(e) != name {
			out = append(out, e)
		}
	}
	return out
}

func matchesAny(matchers []keys.KeyMatcher, matchTrigger func(keys.KeyMatcher) bool) bool {
	if len(matchers) == 0 {
		return true
	}
	for _, m := range matchers {
		if matchTrigger(m) {
			return true
		}
	}
	return false
}

// snapshot copies a slice reference so mutation during iteration is
// invisible to the in-flight round (spec §4.5).
func snapshot[T any](list []T) []T {
	out := make([]T, len(list))
	copy(out, list)
	return out
}

func (m *Manager) safeCall(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("listener panicked", "listener", name, "panic", r)
		}
	}()
	fn()
}

func (m *Manager) NotifyJobToBeExecuted(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey) {
	m.mu.RLock()
	entries := snapshot(m.jobListeners)
	m.mu.RUnlock()
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesJob(jobKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.JobToBeExecuted(ctx, jobKey, triggerKey) })
	}
}

func (m *Manager) NotifyJobExecutionVetoed(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey) {
	m.mu.RLock()
	entries := snapshot(m.jobListeners)
	m.mu.RUnlock()
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesJob(jobKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.JobExecutionVetoed(ctx, jobKey, triggerKey) })
	}
}

func (m *Manager) NotifyJobWasExecuted(ctx context.Context, jobKey keys.JobKey, triggerKey keys.TriggerKey, execErr error) {
	m.mu.RLock()
	entries := snapshot(m.jobListeners)
	m.mu.RUnlock()
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesJob(jobKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.JobWasExecuted(ctx, jobKey, triggerKey, execErr) })
	}
}

// NotifyTriggerFired returns true if any trigger listener vetoed execution.
func (m *Manager) NotifyTriggerFired(ctx context.Context, triggerKey keys.TriggerKey, jobKey keys.JobKey) bool {
	m.mu.RLock()
	entries := snapshot(m.triggerListeners)
	m.mu.RUnlock()
	vetoed := false
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesTrigger(triggerKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.TriggerFired(ctx, triggerKey, jobKey) })
		m.safeCall(e.listener.Name(), func() {
			if e.listener.VetoJobExecution(ctx, triggerKey, jobKey) {
				vetoed = true
			}
		})
	}
	return vetoed
}

func (m *Manager) NotifyTriggerMisfired(ctx context.Context, triggerKey keys.TriggerKey) {
	m.mu.RLock()
	entries := snapshot(m.triggerListeners)
	m.mu.RUnlock()
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesTrigger(triggerKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.TriggerMisfired(ctx, triggerKey) })
	}
}

func (m *Manager) NotifyTriggerComplete(ctx context.Context, triggerKey keys.TriggerKey, instruction domain.CompletionInstruction) {
	m.mu.RLock()
	entries := snapshot(m.triggerListeners)
	m.mu.RUnlock()
	for _, e := range entries {
		if !matchesAny(e.matchers, func(mt keys.KeyMatcher) bool { return mt.MatchesTrigger(triggerKey) }) {
			continue
		}
		m.safeCall(e.listener.Name(), func() { e.listener.TriggerComplete(ctx, triggerKey, instruction) })
	}
}

func (m *Manager) NotifySchedulerStarted(ctx context.Context) {
	m.mu.RLock()
	entries := snapshot(m.schedulerListeners)
	m.mu.RUnlock()
	for _, l := range entries {
		m.safeCall(l.Name(), func() { l.SchedulerStarted(ctx) })
	}
}

func (m *Manager) NotifySchedulerInStandby(ctx context.Context) {
	m.mu.RLock()
	entries := snapshot(m.schedulerListeners)
	m.mu.RUnlock()
	for _, l := range entries {
		m.safeCall(l.Name(), func() { l.SchedulerInStandby(ctx) })
	}
}

func (m *Manager) NotifySchedulerShutdown(ctx context.Context) {
	m.mu.RLock()
	entries := snapshot(m.schedulerListeners)
	m.mu.RUnlock()
	for _, l := range entries {
		m.safeCall(l.Name(), func() { l.SchedulerShutdown(ctx) })
	}
}

func (m *Manager) NotifySchedulerError(ctx context.Context, msg string, err error) {
	m.mu.RLock()
	entries := snapshot(m.schedulerListeners)
	m.mu.RUnlock()
	for _, l := range entries {
		m.safeCall(l.Name(), func() { l.SchedulerError(ctx, msg, err) })
	}
}
