// Package cronexpr parses and evaluates the 6/7-field cron grammar from
// spec §4.1: second, minute, hour, day-of-month, month, day-of-week, and an
// optional year, with the `L`, `W`, `#` and `?` extensions Quartz-family
// schedulers support beyond plain unix cron.
package cronexpr

import (
	"strings"
	"time"
)

// Expression is a parsed cron schedule. It is immutable and safe for
// concurrent use once returned by Parse.
type Expression struct {
	normalized []string // uppercased, whitespace-trimmed fields, for String()

	seconds bitset // 0-59
	minutes bitset // 0-59
	hours   bitset // 0-23
	months  bitset // bit n set for month n, 1-12

	dom domField
	dow dowField

	years yearSet
}

// Parse parses a 6 or 7 field cron expression. It fails with
// *InvalidExpressionError; it never panics on malformed input.
func Parse(s string) (*Expression, error) {
	fields := strings.Fields(s)
	if len(fields) != 6 && len(fields) != 7 {
		return nil, invalid("", 0, "expected 6 or 7 whitespace-separated fields")
	}

	e := &Expression{}

	var err error
	if e.seconds, err = parseList(fields[0], 0, 59, nil, FieldSecond); err != nil {
		return nil, err
	}
	if e.minutes, err = parseList(fields[1], 0, 59, nil, FieldMinute); err != nil {
		return nil, err
	}
	if e.hours, err = parseList(fields[2], 0, 23, nil, FieldHour); err != nil {
		return nil, err
	}
	if e.dom, err = parseDOM(strings.ToUpper(fields[3])); err != nil {
		return nil, err
	}
	if e.months, err = parseList(fields[4], 1, 12, monthNames, FieldMonth); err != nil {
		return nil, err
	}
	if e.dow, err = parseDOW(strings.ToUpper(fields[5])); err != nil {
		return nil, err
	}
	if len(fields) == 7 {
		if e.years, err = parseYear(fields[6]); err != nil {
			return nil, err
		}
	} else {
		e.years = allYears()
	}

	if e.dom.question == e.dow.question {
		return nil, invalid(FieldDOM, 0, "exactly one of day-of-month/day-of-week must be '?'")
	}

	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = strings.ToUpper(f)
	}
	e.normalized = normalized

	return e, nil
}

// String renders the expression back to its normalized cron text. It
// round-trips through Parse with identical match semantics (spec §6).
func (e *Expression) String() string {
	return strings.Join(e.normalized, " ")
}

// NextValidAfter returns the smallest instant strictly after t, evaluated in
// loc, that matches every field. It returns ok=false if no such instant
// exists at or before the maximum supported year (2099).
func (e *Expression) NextValidAfter(t time.Time, loc *time.Location) (result time.Time, ok bool) {
	t = t.In(loc)
	cur := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc).Add(time.Second)

	// Each branch below strictly advances cur and restarts from the top, so
	// the loop always makes forward progress; the outer bound is the cron
	// year ceiling, not a per-field retry count.
	for {
		if cur.Year() > maxYear {
			return time.Time{}, false
		}
		if !e.years.has(cur.Year()) {
			ny, hasNext := e.years.nextAfter(cur.Year())
			if !hasNext {
				return time.Time{}, false
			}
			cur = time.Date(ny, time.January, 1, 0, 0, 0, 0, loc)
			continue
		}

		if !e.months.has(int(cur.Month())) {
			nm, wrapped := e.months.nextAfter(int(cur.Month()), 12)
			year := cur.Year()
			if wrapped {
				year++
			}
			cur = time.Date(year, time.Month(nm), 1, 0, 0, 0, 0, loc)
			continue
		}

		if !e.dayMatches(cur) {
			cur = startOfDay(cur.AddDate(0, 0, 1), loc)
			continue
		}

		if !e.hours.has(cur.Hour()) {
			nh, wrapped := e.hours.nextAfter(cur.Hour(), 23)
			if wrapped {
				cur = startOfDay(cur.AddDate(0, 0, 1), loc)
			} else {
				next := time.Date(cur.Year(), cur.Month(), cur.Day(), nh, 0, 0, 0, loc)
				if next.Hour() != nh {
					// nh falls in a DST gap that day and time.Date normalized it
					// backwards; step one absolute hour past cur's hour instead.
					next = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), 0, 0, 0, loc).Add(time.Hour)
				}
				cur = next
			}
			continue
		}

		if !e.minutes.has(cur.Minute()) {
			nmin, wrapped := e.minutes.nextAfter(cur.Minute(), 59)
			if wrapped {
				cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), 0, 0, 0, loc).Add(time.Hour)
			} else {
				cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), nmin, 0, 0, loc)
			}
			continue
		}

		if !e.seconds.has(cur.Second()) {
			ns, wrapped := e.seconds.nextAfter(cur.Second(), 59)
			if wrapped {
				cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), cur.Minute(), 0, 0, loc).Add(time.Minute)
			} else {
				cur = time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour(), cur.Minute(), ns, 0, loc)
			}
			continue
		}

		return cur, true
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func (e *Expression) dayMatches(t time.Time) bool {
	if e.dom.question {
		return e.dowMatches(t)
	}
	return e.domMatches(t)
}

func (e *Expression) domMatches(t time.Time) bool {
	year, month, day := t.Year(), t.Month(), t.Day()
	switch {
	case e.dom.last:
		return day == lastDayOfMonth(year, month, t.Location())
	case e.dom.lastOffset > 0:
		target := lastDayOfMonth(year, month, t.Location()) - e.dom.lastOffset
		return target >= 1 && day == target
	case e.dom.lastWeekday:
		return day == lastWeekdayOfMonth(year, month, t.Location())
	case e.dom.nearestWeekdayDay > 0:
		return day == nearestWeekday(year, month, e.dom.nearestWeekdayDay, t.Location())
	default:
		return e.dom.set.has(day)
	}
}

func (e *Expression) dowMatches(t time.Time) bool {
	wd := int(t.Weekday())
	switch {
	case e.dow.hasNth:
		if wd != e.dow.nthDay {
			return false
		}
		occurrence := (t.Day()-1)/7 + 1
		return occurrence == e.dow.nthN
	case e.dow.hasLast:
		if wd != e.dow.lastDay {
			return false
		}
		last := lastDayOfMonth(t.Year(), t.Month(), t.Location())
		return t.Day()+7 > last
	default:
		return e.dow.set.has(wd)
	}
}

func lastDayOfMonth(year int, month time.Month, loc *time.Location) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// nearestWeekday resolves the "nW" day-of-month token. It never crosses a
// month boundary in either direction (Design Notes: "1W never crosses into
// the previous month").
func nearestWeekday(year int, month time.Month, day int, loc *time.Location) int {
	last := lastDayOfMonth(year, month, loc)
	if day > last {
		day = last
	}
	wd := time.Date(year, month, day, 0, 0, 0, 0, loc).Weekday()
	switch wd {
	case time.Saturday:
		if day == 1 {
			return day + 2
		}
		return day - 1
	case time.Sunday:
		if day == last {
			return day - 2
		}
		return day + 1
	default:
		return day
	}
}

// lastWeekdayOfMonth resolves "LW": the last weekday of the month in the
// trigger's zone (Design Notes' second rule).
func lastWeekdayOfMonth(year int, month time.Month, loc *time.Location) int {
	last := lastDayOfMonth(year, month, loc)
	wd := time.Date(year, month, last, 0, 0, 0, 0, loc).Weekday()
	switch wd {
	case time.Saturday:
		return last - 1
	case time.Sunday:
		return last - 2
	default:
		return last
	}
}
