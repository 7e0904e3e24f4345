package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/cronexpr"
	"github.com/ErlanBelekov/jobcore/internal/keys"
	"github.com/robfig/cron/v3"
)

// CronTrigger fires at instants matching a cron expression in a fixed zone.
type CronTrigger struct {
	TriggerHeader

	CronExpression string
	Location       *time.Location

	expr *cronexpr.Expression
}

func NewCronTrigger(key keys.TriggerKey, job keys.JobKey, expr string, loc *time.Location) (*CronTrigger, error) {
	parsed, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	h := NewTriggerHeader(key, job)
	return &CronTrigger{
		TriggerHeader:  h,
		CronExpression: parsed.String(),
		Location:       loc,
		expr:           parsed,
	}, nil
}

// NewCronTriggerFromUnixSpec builds a CronTrigger from a plain 5-field unix
// crontab spec rather than this package's Quartz-derived grammar. robfig/cron's
// parser, rather than cronexpr's, is the authority on unix-cron validity, so
// the spec is checked there first; cronexpr.ParseStandard then supplies the
// equivalent Quartz expression cronexpr.NextValidAfter actually evaluates.
func NewCronTriggerFromUnixSpec(key keys.TriggerKey, job keys.JobKey, spec string, loc *time.Location) (*CronTrigger, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("unix cron spec %q: %w", spec, err)
	}
	parsed, err := cronexpr.ParseStandard(spec)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}
	h := NewTriggerHeader(key, job)
	return &CronTrigger{
		TriggerHeader:  h,
		CronExpression: parsed.String(),
		Location:       loc,
		expr:           parsed,
	}, nil
}

func (t *CronTrigger) Header() *TriggerHeader { return &t.TriggerHeader }

func (t *CronTrigger) ensureParsed() error {
	if t.expr != nil {
		return nil
	}
	parsed, err := cronexpr.Parse(t.CronExpression)
	if err != nil {
		return err
	}
	t.expr = parsed
	if t.Location == nil {
		t.Location = time.UTC
	}
	return nil
}

func (t *CronTrigger) Validate() error {
	if err := t.ensureParsed(); err != nil {
		return err
	}
	if t.EndTime != nil && t.EndTime.Before(t.StartTime) {
		return errors.New("cron trigger: start_time must be <= end_time")
	}
	return nil
}

func (t *CronTrigger) ComputeFirstFireTime(cal calendar.Calendar) *time.Time {
	if err := t.ensureParsed(); err != nil {
		t.TriggerHeader.NextFireTime = nil
		return nil
	}
	if t.StartTime.IsZero() {
		t.StartTime = time.Now()
	}
	candidate, ok := t.expr.NextValidAfter(t.StartTime.Add(-time.Nanosecond), t.Location)
	if !ok {
		t.TriggerHeader.NextFireTime = nil
		return nil
	}
	t.TriggerHeader.NextFireTime = skipExcluded(cal, &candidate, &t.TriggerHeader, t.FireTimeAfter)
	return t.TriggerHeader.NextFireTime
}

func (t *CronTrigger) NextFireTime() *time.Time { return t.TriggerHeader.NextFireTime }

func (t *CronTrigger) FireTimeAfter(after time.Time) *time.Time {
	if err := t.ensureParsed(); err != nil {
		return nil
	}
	candidate, ok := t.expr.NextValidAfter(after, t.Location)
	if !ok {
		return nil
	}
	return clipToWindow(&t.TriggerHeader, &candidate)
}

func (t *CronTrigger) Triggered(cal calendar.Calendar) {
	t.TimesTriggered++
	if t.TriggerHeader.NextFireTime == nil {
		return
	}
	prev := *t.TriggerHeader.NextFireTime
	t.PrevFireTime = &prev

	if err := t.ensureParsed(); err != nil {
		t.TriggerHeader.NextFireTime = nil
		return
	}
	next, ok := t.expr.NextValidAfter(prev, t.Location)
	if !ok {
		t.TriggerHeader.NextFireTime = nil
		return
	}
	t.TriggerHeader.NextFireTime = skipExcluded(cal, &next, &t.TriggerHeader, t.FireTimeAfter)
}

// UpdateAfterMisfire: SMART_POLICY resolves to FIRE_ONCE_NOW for this
// variant (spec §4.2).
func (t *CronTrigger) UpdateAfterMisfire(cal calendar.Calendar) {
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
		if err := t.ensureParsed(); err != nil {
			t.TriggerHeader.NextFireTime = nil
			return
		}
		now := time.Now()
		next, ok := t.expr.NextValidAfter(now, t.Location)
		if !ok {
			t.TriggerHeader.NextFireTime = nil
			return
		}
		t.TriggerHeader.NextFireTime = skipExcluded(cal, &next, &t.TriggerHeader, t.FireTimeAfter)
	}
}

func (t *CronTrigger) MayFireAgain() bool { return t.TriggerHeader.NextFireTime != nil }

func (t *CronTrigger) FinalFireTime() *time.Time {
	// A cron schedule has no finite horizon of its own; the end time (if
	// any) is the only bound.
	return t.EndTime
}

func (t *CronTrigger) Clone() Trigger {
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
