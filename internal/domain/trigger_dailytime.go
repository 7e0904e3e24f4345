package domain

import (
	"errors"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

// TimeOfDay is a wall-clock time with no date component.
type TimeOfDay struct {
	Hour, Minute, Second int
}

func (tod TimeOfDay) seconds() int { return tod.Hour*3600 + tod.Minute*60 + tod.Second }

func (tod TimeOfDay) Before(other TimeOfDay) bool { return tod.seconds() < other.seconds() }

// DailyTimeIntervalTrigger fires repeatedly within a daily window, on a set
// of allowed weekdays, for a bounded or unbounded number of times per day
// (spec §3, §4.2).
type DailyTimeIntervalTrigger struct {
	TriggerHeader

	Interval    int
	Unit        IntervalUnit // SECOND, MINUTE, or HOUR only
	DaysOfWeek  [7]bool      // index 0=Sunday .. 6=Saturday
	StartOfDay  TimeOfDay
	EndOfDay    TimeOfDay
	RepeatCount int // -1 = indefinite per day, else total firings - 1
	Location    *time.Location

	timesRemainingToday int
	lastFireDay         civilDay
}

type civilDay struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDailyTimeIntervalTrigger(key keys.TriggerKey, job keys.JobKey, interval int, unit IntervalUnit, loc *time.Location) *DailyTimeIntervalTrigger {
	if loc == nil {
		loc = time.UTC
	}
	h := NewTriggerHeader(key, job)
	t := &DailyTimeIntervalTrigger{
		TriggerHeader: h,
		Interval:      interval,
		Unit:          unit,
		EndOfDay:      TimeOfDay{23, 59, 59},
		RepeatCount:   RepeatIndefinitely,
		Location:      loc,
	}
	for i := range t.DaysOfWeek {
		t.DaysOfWeek[i] = true
	}
	return t
}

func (t *DailyTimeIntervalTrigger) Header() *TriggerHeader { return &t.TriggerHeader }

func (t *DailyTimeIntervalTrigger) Validate() error {
	if t.Interval < 1 {
		return errors.New("daily-time-interval trigger: interval must be >= 1")
	}
	if t.Unit != UnitSecond && t.Unit != UnitMinute && t.Unit != UnitHour {
		return errors.New("daily-time-interval trigger: unit must be SECOND, MINUTE, or HOUR")
	}
	if !t.StartOfDay.Before(t.EndOfDay) {
		return errors.New("daily-time-interval trigger: start_time_of_day must be < end_time_of_day")
	}
	if t.Unit == UnitHour && t.EndOfDay.seconds()-t.StartOfDay.seconds() > 24*3600 {
		return errors.New("daily-time-interval trigger: interval window must be <= 24h")
	}
	anyDay := false
	for _, d := range t.DaysOfWeek {
		if d {
			anyDay = true
			break
		}
	}
	if !anyDay {
		return errors.New("daily-time-interval trigger: days-of-week must be non-empty")
	}
	if t.EndTime != nil && t.EndTime.Before(t.StartTime) {
		return errors.New("daily-time-interval trigger: start_time must be <= end_time")
	}
	return nil
}

func (t *DailyTimeIntervalTrigger) unitDuration() time.Duration {
	switch t.Unit {
	case UnitSecond:
		return time.Duration(t.Interval) * time.Second
	case UnitMinute:
		return time.Duration(t.Interval) * time.Minute
	case UnitHour:
		return time.Duration(t.Interval) * time.Hour
	default:
		return time.Duration(t.Interval) * time.Second
	}
}

func (t *DailyTimeIntervalTrigger) loc() *time.Location {
	if t.Location == nil {
		return time.UTC
	}
	return t.Location
}

func (t *DailyTimeIntervalTrigger) dayAllowed(day time.Time) bool {
	return t.DaysOfWeek[int(day.Weekday())]
}

// startOfWindow returns the first fire instant of the window for the civil
// day containing `day`, ignoring the allowed-weekday filter.
func (t *DailyTimeIntervalTrigger) startOfWindow(day time.Time) time.Time {
	loc := t.loc()
	return time.Date(day.Year(), day.Month(), day.Day(), t.StartOfDay.Hour, t.StartOfDay.Minute, t.StartOfDay.Second, 0, loc)
}

func (t *DailyTimeIntervalTrigger) endOfWindow(day time.Time) time.Time {
	loc := t.loc()
	return time.Date(day.Year(), day.Month(), day.Day(), t.EndOfDay.Hour, t.EndOfDay.Minute, t.EndOfDay.Second, 0, loc)
}

// nextAllowedDayStart returns the window-start of the next allowed weekday
// strictly after `day` (or `day` itself if `inclusive` and allowed).
func (t *DailyTimeIntervalTrigger) nextAllowedDayStart(day time.Time, inclusive bool) time.Time {
	loc := t.loc()
	cursor := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	if !inclusive {
		cursor = cursor.AddDate(0, 0, 1)
	}
	for i := 0; i < 8; i++ {
		if t.dayAllowed(cursor) {
			return t.startOfWindow(cursor)
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return t.startOfWindow(cursor)
}

func (t *DailyTimeIntervalTrigger) ComputeFirstFireTime(cal calendar.Calendar) *time.Time {
	if t.StartTime.IsZero() {
		t.StartTime = time.Now()
	}
	local := t.StartTime.In(t.loc())
	windowStart := t.startOfWindow(local)
	windowEnd := t.endOfWindow(local)

	var candidate time.Time
	switch {
	case t.dayAllowed(local) && !local.Before(windowStart) && !local.After(windowEnd):
		candidate = local
	case t.dayAllowed(local) && local.Before(windowStart):
		candidate = windowStart
	default:
		candidate = t.nextAllowedDayStart(local, false)
	}

	t.TriggerHeader.NextFireTime = skipExcluded(cal, &candidate, &t.TriggerHeader, t.FireTimeAfter)
	if t.TriggerHeader.NextFireTime != nil {
		t.lastFireDay = civilDay{candidate.Year(), candidate.Month(), candidate.Day()}
		t.timesRemainingToday = t.RepeatCount
	}
	return t.TriggerHeader.NextFireTime
}

func (t *DailyTimeIntervalTrigger) NextFireTime() *time.Time { return t.TriggerHeader.NextFireTime }

// advance moves from a given instant to the next fire instant, rolling to
// the next allowed day's window start when the candidate would exceed the
// day's end-of-day window (spec §4.2 "Daily-time-interval advancement").
func (t *DailyTimeIntervalTrigger) advance(from time.Time) time.Time {
	local := from.In(t.loc())
	candidate := local.Add(t.unitDuration())
	windowEnd := t.endOfWindow(local)
	if candidate.After(windowEnd) {
		return t.nextAllowedDayStart(local, false)
	}
	return candidate
}

func (t *DailyTimeIntervalTrigger) FireTimeAfter(after time.Time) *time.Time {
	if t.StartTime.IsZero() {
		return nil
	}
	candidate := t.StartTime
	first := t.ComputeFirstFireTimeNoSideEffect()
	if first != nil {
		candidate = *first
	}
	for !candidate.After(after) {
		candidate = t.advance(candidate)
	}
	return clipToWindow(&t.TriggerHeader, &candidate)
}

// ComputeFirstFireTimeNoSideEffect mirrors ComputeFirstFireTime's candidate
// selection without mutating NextFireTime, for use by pure queries.
func (t *DailyTimeIntervalTrigger) ComputeFirstFireTimeNoSideEffect() *time.Time {
	if t.StartTime.IsZero() {
		return nil
	}
	local := t.StartTime.In(t.loc())
	windowStart := t.startOfWindow(local)
	windowEnd := t.endOfWindow(local)

	var candidate time.Time
	switch {
	case t.dayAllowed(local) && !local.Before(windowStart) && !local.After(windowEnd):
		candidate = local
	case t.dayAllowed(local) && local.Before(windowStart):
		candidate = windowStart
	default:
		candidate = t.nextAllowedDayStart(local, false)
	}
	return &candidate
}

func (t *DailyTimeIntervalTrigger) Triggered(cal calendar.Calendar) {
	t.TimesTriggered++
	if t.TriggerHeader.NextFireTime == nil {
		return
	}
	prev := *t.TriggerHeader.NextFireTime
	t.PrevFireTime = &prev

	day := civilDay{prev.Year(), prev.Month(), prev.Day()}
	if day != t.lastFireDay {
		t.timesRemainingToday = t.RepeatCount
		t.lastFireDay = day
	}
	if t.RepeatCount != RepeatIndefinitely {
		t.timesRemainingToday--
		if t.timesRemainingToday < 0 {
			next := t.nextAllowedDayStart(prev, false)
			t.TriggerHeader.NextFireTime = skipExcluded(cal, &next, &t.TriggerHeader, t.FireTimeAfter)
			t.lastFireDay = civilDay{}
			return
		}
	}

	next := t.advance(prev)
	nextDay := civilDay{next.Year(), next.Month(), next.Day()}
	if nextDay != day {
		t.timesRemainingToday = t.RepeatCount
	}
	t.TriggerHeader.NextFireTime = skipExcluded(cal, &next, &t.TriggerHeader, t.FireTimeAfter)
}

// UpdateAfterMisfire: SMART_POLICY resolves to FIRE_ONCE_NOW (spec §4.2).
func (t *DailyTimeIntervalTrigger) UpdateAfterMisfire(cal calendar.Calendar) {
	instr := t.MisfireInstruction
	if instr == MisfireSmartPolicy {
		instr = MisfireFireOnceNow
	}

	switch instr {
	case MisfireIgnoreMisfirePolicy:
		// leave as-is; engine replays each missed instant.
	case MisfireFireOnceNow:
		now := time.Now()
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &now, &t.TriggerHeader, t.FireTimeAfter)
	case MisfireDoNothing:
		now := time.Now()
		next := t.FireTimeAfter(now)
		t.TriggerHeader.NextFireTime = skipExcluded(cal, next, &t.TriggerHeader, t.FireTimeAfter)
	}
}

func (t *DailyTimeIntervalTrigger) MayFireAgain() bool { return t.TriggerHeader.NextFireTime != nil }

func (t *DailyTimeIntervalTrigger) FinalFireTime() *time.Time { return t.EndTime }

func (t *DailyTimeIntervalTrigger) Clone() Trigger {
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
