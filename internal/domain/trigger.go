package domain

import (
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/datamap"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// TriggerHeader holds the fields every trigger variant shares (spec §3).
// Runtime state (NextFireTime, PrevFireTime, FireInstanceID, TimesTriggered)
// is logically store-owned; the engine mutates it only inside Triggered /
// UpdateAfterMisfire, which run under the store's transaction boundary.
type TriggerHeader struct {
	Key                keys.TriggerKey
	JobKey             keys.JobKey
	Description        string
	CalendarName       string
	Priority           int
	StartTime          time.Time
	EndTime            *time.Time
	MisfireInstruction MisfireInstruction
	JobDataMap         datamap.DataMap

	NextFireTime   *time.Time
	PrevFireTime   *time.Time
	FireInstanceID string
	TimesTriggered int
}

// DefaultPriority is the priority assigned when a trigger doesn't specify
// one; higher values win ties at the same fire time (spec §3, §4.3).
const DefaultPriority = 5

// NewTriggerHeader returns a header with spec-mandated defaults applied.
func NewTriggerHeader(key keys.TriggerKey, jobKey keys.JobKey) TriggerHeader {
	return TriggerHeader{
		Key:        key,
		JobKey:     jobKey,
		Priority:   DefaultPriority,
		StartTime:  time.Time{}, // callers should set to now if unset; scheduling fills this in
		JobDataMap: datamap.New(),
	}
}

// Trigger is the common interface all four variants implement (spec §4.2).
// Go has no sum types, so the "tagged sum with a common header" from Design
// Notes is realized as an embedded TriggerHeader plus interface dispatch.
type Trigger interface {
	Header() *TriggerHeader
	ComputeFirstFireTime(cal calendar.Calendar) *time.Time
	NextFireTime() *time.Time
	FireTimeAfter(t time.Time) *time.Time
	Triggered(cal calendar.Calendar)
	UpdateAfterMisfire(cal calendar.Calendar)
	MayFireAgain() bool
	FinalFireTime() *time.Time
	Validate() error
	Clone() Trigger
}

// clipToWindow returns nil when t is after the trigger's end time, and
// otherwise t (raised to StartTime if earlier). It never returns a
// fire time before StartTime (invariant 1: next_fire_time >= start_time).
func clipToWindow(h *TriggerHeader, t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	if h.EndTime != nil && t.After(*h.EndTime) {
		return nil
	}
	if t.Before(h.StartTime) {
		clipped := h.StartTime
		return &clipped
	}
	return t
}

// skipExcluded advances t past any instant the calendar excludes, per the
// ComputeFirstFireTime/Triggered contract ("must skip instants excluded by
// the calendar"). It must not use the calendar's own granularity to do the
// advancing: a calendar only tells us whether an instant is included, not
// what the trigger's next instant is, so on exclusion it re-asks the
// trigger's own schedule (advance) for the next candidate and checks that
// one against the calendar in turn, the way Quartz's SimpleTriggerImpl and
// CronTriggerImpl do it.
func skipExcluded(cal calendar.Calendar, t *time.Time, h *TriggerHeader, advance func(time.Time) *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cur := *t
	const maxAttempts = 10000
	for i := 0; i < maxAttempts; i++ {
		if h.EndTime != nil && cur.After(*h.EndTime) {
			return nil
		}
		if cal == nil || cal.IsTimeIncluded(cur) {
			return &cur
		}
		next := advance(cur)
		if next == nil {
			return nil
		}
		cur = *next
	}
	return nil
}
