package calendar

import (
	"time"

	"github.com/ErlanBelekov/jobcore/internal/cronexpr"
)

// CronCalendar includes exactly the instants a cron expression matches
// (spec §3: "cron (cron expression defines included instants)"). Unlike the
// other calendars, which exclude, this one is inclusion-defined directly —
// an instant is included only if it falls within the same second as a cron
// match, so it's evaluated at second granularity like a trigger would be.
type CronCalendar struct {
	base
	expr *cronexpr.Expression
	loc  *time.Location
}

func NewCronCalendar(expr *cronexpr.Expression, loc *time.Location) *CronCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &CronCalendar{expr: expr, loc: loc}
}

func (c *CronCalendar) included(t time.Time) bool {
	t = t.In(c.loc)
	truncated := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, c.loc)
	prev := truncated.Add(-time.Second)
	next, ok := c.expr.NextValidAfter(prev, c.loc)
	return ok && next.Equal(truncated)
}

func (c *CronCalendar) IsTimeIncluded(t time.Time) bool {
	return includesWithBase(&c.base, c.included(t), t)
}

func (c *CronCalendar) nextCandidate(t time.Time) time.Time {
	next, ok := c.expr.NextValidAfter(t, c.loc)
	if !ok {
		// No further matches before the cron year ceiling; push far enough
		// forward that conjoinNext's iteration cap terminates cleanly.
		return t.AddDate(100, 0, 0)
	}
	return next
}

func (c *CronCalendar) NextIncludedTime(t time.Time) time.Time {
	return c.conjoinNext(t, c.included, c.nextCandidate)
}
