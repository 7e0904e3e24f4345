package domain

import (
	"errors"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// RepeatIndefinitely is the sentinel for SimpleTrigger.RepeatCount meaning
// "fire forever at this interval" (spec §3).
const RepeatIndefinitely = -1

// SimpleTrigger fires at a fixed interval, a fixed number of times.
type SimpleTrigger struct {
	TriggerHeader

	RepeatInterval time.Duration
	RepeatCount    int // -1 = RepeatIndefinitely

	timesRemaining int // -1 while indefinite; otherwise RepeatCount minus fires so far
	complete       bool
}

func NewSimpleTrigger(key keys.TriggerKey, job keys.JobKey, interval time.Duration, repeatCount int) *SimpleTrigger {
	h := NewTriggerHeader(key, job)
	return &SimpleTrigger{
		TriggerHeader:  h,
		RepeatInterval: interval,
		RepeatCount:    repeatCount,
		timesRemaining: repeatCount,
	}
}

func (t *SimpleTrigger) Header() *TriggerHeader { return &t.TriggerHeader }

func (t *SimpleTrigger) Validate() error {
	if t.RepeatCount < RepeatIndefinitely {
		return errors.New("simple trigger: repeat_count must be >= -1")
	}
	if t.RepeatCount != 0 && t.RepeatInterval <= 0 {
		return errors.New("simple trigger: repeat_interval_ms must be >= 1 when repeat_count != 0")
	}
	if t.EndTime != nil && t.EndTime.Before(t.StartTime) {
		return errors.New("simple trigger: start_time must be <= end_time")
	}
	return nil
}

func (t *SimpleTrigger) ComputeFirstFireTime(cal calendar.Calendar) *time.Time {
	if t.StartTime.IsZero() {
		t.StartTime = time.Now()
	}
	first := t.StartTime
	next := skipExcluded(cal, &first, &t.TriggerHeader, t.FireTimeAfter)
	t.TriggerHeader.NextFireTime = next
	return t.TriggerHeader.NextFireTime
}

func (t *SimpleTrigger) NextFireTime() *time.Time { return t.TriggerHeader.NextFireTime }

func (t *SimpleTrigger) FireTimeAfter(after time.Time) *time.Time {
	if t.RepeatCount == 0 {
		if after.Before(t.StartTime) {
			start := t.StartTime
			return clipToWindow(&t.TriggerHeader, &start)
		}
		return nil
	}
	if after.Before(t.StartTime) {
		start := t.StartTime
		return clipToWindow(&t.TriggerHeader, &start)
	}
	elapsed := after.Sub(t.StartTime)
	intervalsPassed := int64(elapsed/t.RepeatInterval) + 1
	if t.RepeatCount != RepeatIndefinitely && intervalsPassed > int64(t.RepeatCount) {
		return nil
	}
	next := t.StartTime.Add(time.Duration(intervalsPassed) * t.RepeatInterval)
	return clipToWindow(&t.TriggerHeader, &next)
}

func (t *SimpleTrigger) Triggered(cal calendar.Calendar) {
	t.TimesTriggered++
	if t.RepeatCount != RepeatIndefinitely {
		t.timesRemaining--
	}
	if t.TriggerHeader.NextFireTime == nil {
		return
	}
	prev := *t.TriggerHeader.NextFireTime
	t.PrevFireTime = &prev

	if t.RepeatCount != RepeatIndefinitely && t.timesRemaining < 0 {
		t.TriggerHeader.NextFireTime = nil
		t.complete = true
		return
	}
	next := prev.Add(t.RepeatInterval)
	t.TriggerHeader.NextFireTime = skipExcluded(cal, &next, &t.TriggerHeader, t.FireTimeAfter)
}

// UpdateAfterMisfire applies the variant-specific misfire instructions
// (spec §4.2). SMART_POLICY resolves per the table: finite repeat with no
// fires yet -> FIRE_NOW, with repeats remaining -> RESCHEDULE_NOW_WITH_
// EXISTING_REPEAT_COUNT, with none remaining -> RESCHEDULE_NEXT_WITH_
// REMAINING_COUNT.
func (t *SimpleTrigger) UpdateAfterMisfire(cal calendar.Calendar) {
	if t.TriggerHeader.NextFireTime == nil {
		return
	}
	instr := t.MisfireInstruction
	if instr == MisfireSmartPolicy {
		switch {
		case t.RepeatCount == RepeatIndefinitely:
			instr = MisfireSimpleRescheduleNowWithExistingCount
		case t.TimesTriggered == 0:
			instr = MisfireSimpleFireNow
		case t.timesRemaining > 0:
			instr = MisfireSimpleRescheduleNowWithExistingCount
		default:
			instr = MisfireSimpleRescheduleNextWithRemainingCount
		}
	}

	now := time.Now()
	switch instr {
	case MisfireIgnoreMisfirePolicy:
		// leave NextFireTime as-is; the engine will fire each missed instant.
	case MisfireSimpleFireNow:
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &now, &t.TriggerHeader, t.FireTimeAfter)
	case MisfireSimpleRescheduleNowWithExistingCount:
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &now, &t.TriggerHeader, t.FireTimeAfter)
	case MisfireSimpleRescheduleNowWithRemainingCount:
		t.RepeatCount = t.timesRemaining
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &now, &t.TriggerHeader, t.FireTimeAfter)
	case MisfireSimpleRescheduleNextWithRemainingCount:
		t.RepeatCount = t.timesRemaining
		next := t.FireTimeAfter(now)
		t.TriggerHeader.NextFireTime = next
	case MisfireSimpleRescheduleNextWithExistingCount:
		next := t.FireTimeAfter(now)
		t.TriggerHeader.NextFireTime = next
	default:
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &now, &t.TriggerHeader, t.FireTimeAfter)
	}
}

func (t *SimpleTrigger) MayFireAgain() bool {
	if t.complete {
		return false
	}
	return t.TriggerHeader.NextFireTime != nil
}

func (t *SimpleTrigger) FinalFireTime() *time.Time {
	if t.RepeatCount == RepeatIndefinitely {
		return nil
	}
	final := t.StartTime.Add(time.Duration(t.RepeatCount) * t.RepeatInterval)
	return clipToWindow(&t.TriggerHeader, &final)
}

func (t *SimpleTrigger) Clone() Trigger {
	clone := *t
	clone.JobDataMap = t.JobDataMap.Clone()
	if t.TriggerHeader.NextFireTime != nil {
		v := *t.TriggerHeader.NextFireTime
		clone.TriggerHeader.NextFireTime = &v
	}
	if t.PrevFireTime != nil {
		v := *t.PrevFireTime
		clone.PrevFireTime = &v
	}
	if t.EndTime != nil {
		v := *t.EndTime
		clone.EndTime = &v
	}
	return &clone
}
