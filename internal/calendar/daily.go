package calendar

import "time"

// DailyCalendar excludes all instants outside a daily [start,end) window,
// e.g. "only business hours 08:00-18:00".
type DailyCalendar struct {
	base
	StartHour, StartMin, StartSec int
	EndHour, EndMin, EndSec       int
	InvertTimeRange               bool // when true, the window is the excluded range instead
	Loc                           *time.Location
}

func NewDailyCalendar(startH, startM, startS, endH, endM, endS int, loc *time.Location) *DailyCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyCalendar{StartHour: startH, StartMin: startM, StartSec: startS, EndHour: endH, EndMin: endM, EndSec: endS, Loc: loc}
}

func (c *DailyCalendar) inWindow(t time.Time) bool {
	t = t.In(c.Loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), c.StartHour, c.StartMin, c.StartSec, 0, c.Loc)
	end := time.Date(t.Year(), t.Month(), t.Day(), c.EndHour, c.EndMin, c.EndSec, 0, c.Loc)
	included := !t.Before(start) && t.Before(end)
	if c.InvertTimeRange {
		return !included
	}
	return included
}

func (c *DailyCalendar) IsTimeIncluded(t time.Time) bool {
	return includesWithBase(&c.base, c.inWindow(t), t)
}

func (c *DailyCalendar) nextCandidate(t time.Time) time.Time {
	t = t.In(c.Loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), c.StartHour, c.StartMin, c.StartSec, 0, c.Loc)
	end := time.Date(t.Year(), t.Month(), t.Day(), c.EndHour, c.EndMin, c.EndSec, 0, c.Loc)
	if !c.InvertTimeRange {
		if t.Before(start) {
			return start
		}
		// t is at/after end (or in an excluded gap): jump to next day's window.
		return time.Date(t.Year(), t.Month(), t.Day()+1, c.StartHour, c.StartMin, c.StartSec, 0, c.Loc)
	}
	// Inverted: included everywhere except [start,end); next candidate after
	// being inside the excluded window is simply its end.
	if !t.Before(start) && t.Before(end) {
		return end
	}
	return t.Add(time.Second)
}

func (c *DailyCalendar) NextIncludedTime(t time.Time) time.Time {
	return c.conjoinNext(t, c.inWindow, c.nextCandidate)
}
