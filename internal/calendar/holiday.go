package calendar

import "time"

// HolidayCalendar excludes a configurable set of specific calendar days
// (year/month/day), e.g. a company holiday list (spec §3).
type HolidayCalendar struct {
	base
	excluded map[civilDate]bool
	Loc      *time.Location
}

type civilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func NewHolidayCalendar(loc *time.Location) *HolidayCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &HolidayCalendar{excluded: make(map[civilDate]bool), Loc: loc}
}

func (c *HolidayCalendar) AddExcludedDate(t time.Time) {
	t = t.In(c.Loc)
	c.excluded[civilDate{t.Year(), t.Month(), t.Day()}] = true
}

func (c *HolidayCalendar) RemoveExcludedDate(t time.Time) {
	t = t.In(c.Loc)
	delete(c.excluded, civilDate{t.Year(), t.Month(), t.Day()})
}

func (c *HolidayCalendar) included(t time.Time) bool {
	t = t.In(c.Loc)
	return !c.excluded[civilDate{t.Year(), t.Month(), t.Day()}]
}

func (c *HolidayCalendar) IsTimeIncluded(t time.Time) bool {
	return includesWithBase(&c.base, c.included(t), t)
}

func (c *HolidayCalendar) nextCandidate(t time.Time) time.Time {
	next := startOfNextDay(t.In(c.Loc), c.Loc)
	const maxLookahead = 10000 // excluded-date lists are finite; this bounds a pathological chain
	for i := 0; i < maxLookahead; i++ {
		d := civilDate{next.Year(), next.Month(), next.Day()}
		if !c.excluded[d] {
			return next
		}
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (c *HolidayCalendar) NextIncludedTime(t time.Time) time.Time {
	return c.conjoinNext(t, c.included, c.nextCandidate)
}
