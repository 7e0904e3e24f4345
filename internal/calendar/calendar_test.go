package calendar_test

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/cronexpr"
)

func newCronCalendarForTest(expr string) (*calendar.CronCalendar, error) {
	e, err := cronexpr.Parse(expr)
	if err != nil {
		return nil, err
	}
	return calendar.NewCronCalendar(e, time.UTC), nil
}

func TestWeeklyCalendar_ExcludesSunday(t *testing.T) {
	c := calendar.NewWeeklyCalendar(time.UTC, time.Sunday)

	sunday := time.Date(2026, time.August, 2, 12, 0, 0, 0, time.UTC)
	if c.IsTimeIncluded(sunday) {
		t.Fatal("expected Sunday to be excluded")
	}

	monday := time.Date(2026, time.August, 3, 6, 0, 0, 0, time.UTC)
	if !c.IsTimeIncluded(monday) {
		t.Fatal("expected Monday to be included")
	}

	next := c.NextIncludedTime(sunday)
	if next.Weekday() == time.Sunday {
		t.Fatalf("NextIncludedTime still landed on Sunday: %v", next)
	}
}

func TestWeeklyCalendar_BaseConjunction(t *testing.T) {
	excludesSunday := calendar.NewWeeklyCalendar(time.UTC, time.Sunday)
	excludesSaturday := calendar.NewWeeklyCalendar(time.UTC, time.Saturday)
	excludesSaturday.SetBase(excludesSunday)

	saturday := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	if excludesSaturday.IsTimeIncluded(saturday) {
		t.Fatal("Saturday must be excluded by self")
	}
	sunday := time.Date(2026, time.August, 2, 12, 0, 0, 0, time.UTC)
	if excludesSaturday.IsTimeIncluded(sunday) {
		t.Fatal("Sunday must be excluded by base")
	}
	monday := time.Date(2026, time.August, 3, 12, 0, 0, 0, time.UTC)
	if !excludesSaturday.IsTimeIncluded(monday) {
		t.Fatal("Monday should be included by both self and base")
	}

	next := excludesSaturday.NextIncludedTime(saturday)
	if next.Weekday() != time.Monday {
		t.Fatalf("expected next included day to skip both Sat and Sun, got %v (%v)", next, next.Weekday())
	}
}

func TestDailyCalendar_BusinessHours(t *testing.T) {
	c := calendar.NewDailyCalendar(8, 0, 0, 18, 0, 0, time.UTC)
	inside := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	outside := time.Date(2026, time.June, 1, 20, 0, 0, 0, time.UTC)

	if !c.IsTimeIncluded(inside) {
		t.Fatal("expected noon to be included")
	}
	if c.IsTimeIncluded(outside) {
		t.Fatal("expected 8pm to be excluded")
	}

	next := c.NextIncludedTime(outside)
	want := time.Date(2026, time.June, 2, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestMonthlyCalendar_ExcludesThe15th(t *testing.T) {
	c := calendar.NewMonthlyCalendar(time.UTC, 15)
	excluded := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	if c.IsTimeIncluded(excluded) {
		t.Fatal("expected the 15th to be excluded")
	}
	next := c.NextIncludedTime(excluded)
	if next.Day() != 16 {
		t.Fatalf("expected next included day to be the 16th, got %d", next.Day())
	}
}

func TestAnnualCalendar_ExcludesNewYearsDay(t *testing.T) {
	c := calendar.NewAnnualCalendar(time.UTC)
	c.SetDayExcluded(time.January, 1, true)

	if c.IsTimeIncluded(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Jan 1 to be excluded in every year")
	}
	if !c.IsTimeIncluded(time.Date(2027, time.January, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Jan 2 to be included")
	}
}

func TestHolidayCalendar_SpecificDate(t *testing.T) {
	c := calendar.NewHolidayCalendar(time.UTC)
	c.AddExcludedDate(time.Date(2026, time.December, 25, 0, 0, 0, 0, time.UTC))

	if c.IsTimeIncluded(time.Date(2026, time.December, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("expected Christmas 2026 to be excluded")
	}
	if !c.IsTimeIncluded(time.Date(2027, time.December, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatal("holiday calendar excludes specific dates, not every year")
	}
}

func TestCronCalendar_IncludesOnlyMatchingInstants(t *testing.T) {
	c, err := newCronCalendarForTest("0 0 9 ? * MON-FRI")
	if err != nil {
		t.Fatal(err)
	}
	fireTime := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC) // a Monday
	if !c.IsTimeIncluded(fireTime) {
		t.Fatal("expected 9am Monday to be included")
	}
	if c.IsTimeIncluded(fireTime.Add(time.Minute)) {
		t.Fatal("expected 9:01am to be excluded")
	}
}
