package calendar

import "time"

// MonthlyCalendar excludes a configurable set of days-of-month (1-31),
// applied in every month (spec §3).
type MonthlyCalendar struct {
	base
	excluded [32]bool // index 1-31
	Loc      *time.Location
}

func NewMonthlyCalendar(loc *time.Location, days ...int) *MonthlyCalendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &MonthlyCalendar{Loc: loc}
	for _, d := range days {
		if d >= 1 && d <= 31 {
			c.excluded[d] = true
		}
	}
	return c
}

func (c *MonthlyCalendar) SetDayExcluded(day int, excluded bool) {
	if day >= 1 && day <= 31 {
		c.excluded[day] = excluded
	}
}

func (c *MonthlyCalendar) included(t time.Time) bool {
	return !c.excluded[t.In(c.Loc).Day()]
}

func (c *MonthlyCalendar) IsTimeIncluded(t time.Time) bool {
	return includesWithBase(&c.base, c.included(t), t)
}

func (c *MonthlyCalendar) nextCandidate(t time.Time) time.Time {
	next := startOfNextDay(t.In(c.Loc), c.Loc)
	for i := 0; i < 32; i++ {
		if !c.excluded[next.Day()] {
			return next
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (c *MonthlyCalendar) NextIncludedTime(t time.Time) time.Time {
	return c.conjoinNext(t, c.included, c.nextCandidate)
}
