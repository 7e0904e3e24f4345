package cronexpr

import (
	"strings"
	"time"
)

// Next implements the robfig/cron Schedule interface (Next(time.Time)
// time.Time) so an Expression can stand in anywhere a cron.Schedule is
// expected. It evaluates in UTC and returns the zero time once the
// expression has no more matches before the year ceiling.
func (e *Expression) Next(t time.Time) time.Time {
	next, ok := e.NextValidAfter(t, time.UTC)
	if !ok {
		return time.Time{}
	}
	return next
}

// ParseStandard parses a plain unix-style 5 or 6-field cron string, for a
// config-time sanity check that doesn't require authors to know the Quartz
// `?` convention. A 5-field string gets a leading "0" seconds field; when
// neither day field is already "?", a "*" day-of-week (or else a "*"
// day-of-month) is rewritten to "?" to satisfy this package's
// Quartz-derived grammar. A spec that restricts both day fields is rejected.
func ParseStandard(s string) (*Expression, error) {
	fields := strings.Fields(s)
	if len(fields) == 5 {
		fields = append([]string{"0"}, fields...)
	}
	if len(fields) >= 6 && fields[3] != "?" && fields[5] != "?" {
		switch {
		case fields[5] == "*":
			fields[5] = "?"
		case fields[3] == "*":
			fields[3] = "?"
		}
	}
	return Parse(strings.Join(fields, " "))
}
