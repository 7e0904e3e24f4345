package cronexpr

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = map[string]int{
	"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
}

// dowNames map to the 1..7 (1=Sunday) convention spec §4.1 uses; parseDOW
// shifts the result down to Go's 0..6 (time.Weekday) range afterward.
var dowNames = map[string]int{
	"SUN": 1, "MON": 2, "TUE": 3, "WED": 4, "THU": 5, "FRI": 6, "SAT": 7,
}

func parseAtom(tok string, min, max int, names map[string]int, field FieldName) (int, error) {
	if names != nil {
		if v, ok := names[strings.ToUpper(tok)]; ok {
			return v, nil
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, invalid(field, 0, fmt.Sprintf("not a number or name: %q", tok))
	}
	if n < min || n > max {
		return 0, invalid(field, 0, fmt.Sprintf("value %d out of range [%d,%d]", n, min, max))
	}
	return n, nil
}

func parseRangeStep(part string, min, max int, names map[string]int, field FieldName) (bitset, error) {
	step := 1
	base := part
	hasStep := false
	if idx := strings.IndexByte(part, '/'); idx >= 0 {
		base = part[:idx]
		n, err := strconv.Atoi(part[idx+1:])
		if err != nil || n <= 0 {
			return 0, invalid(field, idx+1, "invalid step value")
		}
		step = n
		hasStep = true
	}

	var lo, hi int
	switch {
	case base == "*":
		lo, hi = min, max
	case strings.Contains(base, "-"):
		bounds := strings.SplitN(base, "-", 2)
		a, err := parseAtom(bounds[0], min, max, names, field)
		if err != nil {
			return 0, err
		}
		b, err := parseAtom(bounds[1], min, max, names, field)
		if err != nil {
			return 0, err
		}
		if a > b {
			return 0, invalid(field, 0, "range start after end")
		}
		lo, hi = a, b
	default:
		a, err := parseAtom(base, min, max, names, field)
		if err != nil {
			return 0, err
		}
		lo = a
		if hasStep {
			hi = max
		} else {
			hi = a
		}
	}

	var result bitset
	for v := lo; v <= hi; v += step {
		result.set(v)
	}
	return result, nil
}

func parseList(raw string, min, max int, names map[string]int, field FieldName) (bitset, error) {
	if raw == "" {
		return 0, invalid(field, 0, "empty field")
	}
	var result bitset
	for _, part := range strings.Split(raw, ",") {
		if part == "" {
			return 0, invalid(field, 0, "empty list item")
		}
		b, err := parseRangeStep(part, min, max, names, field)
		if err != nil {
			return 0, err
		}
		result |= b
	}
	return result, nil
}

// domField is the parsed day-of-month field. Exactly one of its modes is
// active; question is mutually exclusive with the others (spec §4.1: "?" is
// legal only in day-of-month or day-of-week).
type domField struct {
	question          bool
	set               bitset
	last              bool // L
	lastOffset        int  // L-k, k >= 1
	lastWeekday       bool // LW
	nearestWeekdayDay int  // "nW", 0 when unset
}

func parseDOM(raw string) (domField, error) {
	switch {
	case raw == "?":
		return domField{question: true}, nil
	case raw == "L":
		return domField{last: true}, nil
	case raw == "LW":
		return domField{lastWeekday: true}, nil
	case strings.HasPrefix(raw, "L-"):
		k, err := strconv.Atoi(raw[2:])
		if err != nil || k < 1 {
			return domField{}, invalid(FieldDOM, 0, "invalid L-k offset")
		}
		return domField{lastOffset: k}, nil
	case strings.HasSuffix(raw, "W") && raw != "W":
		dayPart := strings.TrimSuffix(raw, "W")
		day, err := strconv.Atoi(dayPart)
		if err != nil || day < 1 || day > 31 {
			return domField{}, invalid(FieldDOM, 0, "invalid nearest-weekday day")
		}
		return domField{nearestWeekdayDay: day}, nil
	default:
		set, err := parseList(raw, 1, 31, nil, FieldDOM)
		if err != nil {
			return domField{}, err
		}
		return domField{set: set}, nil
	}
}

// dowField is the parsed day-of-week field, internally 0=Sunday..6=Saturday
// (time.Weekday convention) regardless of the 1=Sunday wire convention.
type dowField struct {
	question bool
	set      bitset
	hasNth   bool
	nthDay   int
	nthN     int
	hasLast  bool // nL, e.g. 6L = last Friday of the month
	lastDay  int
}

func parseDOW(raw string) (dowField, error) {
	if raw == "?" {
		return dowField{question: true}, nil
	}
	if strings.HasSuffix(raw, "L") && raw != "L" {
		dayTok := strings.TrimSuffix(raw, "L")
		day, err := parseAtom(dayTok, 1, 7, dowNames, FieldDOW)
		if err != nil {
			return dowField{}, err
		}
		return dowField{hasLast: true, lastDay: day - 1}, nil
	}
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		dayTok, nTok := raw[:idx], raw[idx+1:]
		day, err := parseAtom(dayTok, 1, 7, dowNames, FieldDOW)
		if err != nil {
			return dowField{}, err
		}
		n, err := strconv.Atoi(nTok)
		if err != nil || n < 1 || n > 5 {
			return dowField{}, invalid(FieldDOW, idx+1, "invalid nth-weekday occurrence")
		}
		return dowField{hasNth: true, nthDay: day - 1, nthN: n}, nil
	}

	raw7, err := parseList(raw, 1, 7, dowNames, FieldDOW)
	if err != nil {
		return dowField{}, err
	}
	var set bitset
	for v := 1; v <= 7; v++ {
		if raw7.has(v) {
			set.set(v - 1)
		}
	}
	return dowField{set: set}, nil
}
