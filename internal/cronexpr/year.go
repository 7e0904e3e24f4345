package cronexpr

import (
	"strconv"
	"strings"
)

const (
	minYear = 1970
	maxYear = 2099
)

// yearSet holds the allowed years for an optional 7th cron field. Unlike the
// other fields, year never wraps: running out of allowed years means "no
// such instant" (spec §4.1: "None if no such instant ≤ maximum year"). The
// range spans 130 years, too wide for the 64-bit bitset the other fields
// use, so it gets its own small representation.
type yearSet struct {
	any     bool
	allowed [maxYear - minYear + 1]bool
}

func allYears() yearSet { return yearSet{any: true} }

func parseYear(raw string) (yearSet, error) {
	if raw == "*" {
		return allYears(), nil
	}

	var ys yearSet
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			return yearSet{}, invalid(FieldYear, 0, "empty list item")
		}
		lo, hi, step, err := parseYearRangeStep(part)
		if err != nil {
			return yearSet{}, err
		}
		for y := lo; y <= hi; y += step {
			ys.allowed[y-minYear] = true
		}
	}

	any := false
	for _, ok := range ys.allowed {
		if ok {
			any = true
			break
		}
	}
	if !any {
		return yearSet{}, invalid(FieldYear, 0, "no year in range matches")
	}
	return ys, nil
}

func parseYearRangeStep(part string) (lo, hi, step int, err error) {
	step = 1
	base := part
	hasStep := false
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		base = part[:idx]
		n, cerr := strconv.Atoi(part[idx+1:])
		if cerr != nil || n <= 0 {
			return 0, 0, 0, invalid(FieldYear, idx+1, "invalid step value")
		}
		step = n
		hasStep = true
	}

	switch {
	case base == "*":
		lo, hi = minYear, maxYear
	case strings.Contains(base, "-"):
		bounds := strings.SplitN(base, "-", 2)
		a, aerr := parseYearAtom(bounds[0])
		if aerr != nil {
			return 0, 0, 0, aerr
		}
		b, berr := parseYearAtom(bounds[1])
		if berr != nil {
			return 0, 0, 0, berr
		}
		if a > b {
			return 0, 0, 0, invalid(FieldYear, 0, "range start after end")
		}
		lo, hi = a, b
	default:
		a, aerr := parseYearAtom(base)
		if aerr != nil {
			return 0, 0, 0, aerr
		}
		lo = a
		if hasStep {
			hi = maxYear
		} else {
			hi = a
		}
	}
	return lo, hi, step, nil
}

func parseYearAtom(tok string) (int, error) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, invalid(FieldYear, 0, "not a number: "+tok)
	}
	if n < minYear || n > maxYear {
		return 0, invalid(FieldYear, 0, "year out of range [1970,2099]")
	}
	return n, nil
}

func (y yearSet) has(year int) bool {
	if year < minYear || year > maxYear {
		return false
	}
	if y.any {
		return true
	}
	return y.allowed[year-minYear]
}

// nextAfter returns the smallest allowed year strictly greater than year.
// Years never wrap: ok is false once the search runs off the end of range.
func (y yearSet) nextAfter(year int) (next int, ok bool) {
	for yy := year + 1; yy <= maxYear; yy++ {
		if y.has(yy) {
			return yy, true
		}
	}
	return 0, false
}
