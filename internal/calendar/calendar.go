// Package calendar implements the calendar family from spec §3/§4: composable
// time-inclusion predicates that exclude otherwise scheduled instants.
package calendar

import "time"

// Calendar is a time-inclusion predicate, optionally chained to a base
// calendar. The effective result is self ∧ base (spec §3).
type Calendar interface {
	IsTimeIncluded(t time.Time) bool
	NextIncludedTime(t time.Time) time.Time
	Base() Calendar
	SetBase(base Calendar)
}

// base embeds the optional chained calendar every variant shares.
type base struct {
	baseCalendar Calendar
}

func (b *base) Base() Calendar     { return b.baseCalendar }
func (b *base) SetBase(c Calendar) { b.baseCalendar = c }

func (b *base) baseIncludes(t time.Time) bool {
	if b.baseCalendar == nil {
		return true
	}
	return b.baseCalendar.IsTimeIncluded(t)
}

func includesWithBase(b *base, selfIncluded bool, t time.Time) bool {
	return selfIncluded && b.baseIncludes(t)
}

// conjoinNext computes self ∧ base's next included time: it alternates
// asking selfNext (the variant's own "next candidate ignoring base" rule)
// and the base calendar's NextIncludedTime until an instant satisfies both,
// bounded so a misconfigured chain can't spin forever.
func (b *base) conjoinNext(t time.Time, selfIncluded func(time.Time) bool, selfNext func(time.Time) time.Time) time.Time {
	const maxIterations = 10000
	cur := t
	for i := 0; i < maxIterations; i++ {
		if !selfIncluded(cur) {
			cur = selfNext(cur)
			continue
		}
		if b.baseCalendar == nil || b.baseCalendar.IsTimeIncluded(cur) {
			return cur
		}
		baseNext := b.baseCalendar.NextIncludedTime(cur)
		if !baseNext.After(cur) {
			// Defensive: a base calendar must strictly advance; if it
			// doesn't, fall back to self's own advance to avoid looping.
			baseNext = selfNext(cur)
		}
		cur = baseNext
	}
	return cur
}
