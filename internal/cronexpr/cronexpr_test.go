package cronexpr_test

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/cronexpr"
)

func mustParse(t *testing.T, expr string) *cronexpr.Expression {
	t.Helper()
	e, err := cronexpr.Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", expr, err)
	}
	return e
}

func at(y int, m time.Month, d, h, mi, s int, loc *time.Location) time.Time {
	return time.Date(y, m, d, h, mi, s, 0, loc)
}

func TestNextValidAfter_DailyWeekdays(t *testing.T) {
	e := mustParse(t, "0 0 9 ? * MON-FRI")
	start := at(2026, time.July, 31, 8, 59, 50, time.UTC) // a Friday

	next, ok := e.NextValidAfter(start, time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	want := at(2026, time.July, 31, 9, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("first fire = %v, want %v", next, want)
	}

	next2, ok := e.NextValidAfter(next, time.UTC)
	if !ok {
		t.Fatal("expected a second match")
	}
	want2 := at(2026, time.August, 3, 9, 0, 0, time.UTC) // next Monday
	if !next2.Equal(want2) {
		t.Fatalf("second fire = %v, want %v", next2, want2)
	}
}

func TestNextValidAfter_EveryFiveSeconds(t *testing.T) {
	e := mustParse(t, "*/5 * * * * ?")
	start := at(2026, time.January, 1, 0, 0, 1, time.UTC)
	next, ok := e.NextValidAfter(start, time.UTC)
	if !ok || !next.Equal(at(2026, time.January, 1, 0, 0, 5, time.UTC)) {
		t.Fatalf("got %v ok=%v", next, ok)
	}
}

func TestNextValidAfter_Feb30NeverMatches(t *testing.T) {
	e := mustParse(t, "0 0 0 31 2 ?")
	start := at(1970, time.January, 1, 0, 0, 0, time.UTC)
	_, ok := e.NextValidAfter(start, time.UTC)
	if ok {
		t.Fatal("expected no match for Feb 31")
	}
}

func TestNextValidAfter_MonthEndCalendarLikeWalk(t *testing.T) {
	// Sanity check that month rollover selects the first matching day, not
	// an out-of-range one, e.g. "L" for last day of month across Feb.
	e := mustParse(t, "0 0 0 L * ? 2026-2027")
	next, ok := e.NextValidAfter(at(2026, time.January, 20, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	want := at(2026, time.January, 31, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}

	febNext, ok := e.NextValidAfter(next, time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	if !febNext.Equal(at(2026, time.February, 28, 0, 0, 0, time.UTC)) {
		t.Fatalf("got %v want Feb 28 2026 (not leap year)", febNext)
	}
}

func TestNextValidAfter_LastOffset(t *testing.T) {
	e := mustParse(t, "0 0 0 L-2 * ?")
	next, ok := e.NextValidAfter(at(2026, time.April, 1, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	// April has 30 days; L-2 = 28th.
	want := at(2026, time.April, 28, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextValidAfter_NearestWeekdayAtMonthStart(t *testing.T) {
	// 2026-08-01 is a Saturday -> nearest weekday must roll forward to
	// Monday the 3rd, never back into July (Design Notes rule).
	e := mustParse(t, "0 0 0 1W * ?")
	next, ok := e.NextValidAfter(at(2026, time.July, 15, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	want := at(2026, time.August, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextValidAfter_LastWeekdayOfMonth(t *testing.T) {
	e := mustParse(t, "0 0 0 LW * ?")
	// Feb 2026: last day is the 28th, a Saturday -> last weekday = 27th (Fri).
	next, ok := e.NextValidAfter(at(2026, time.February, 1, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	want := at(2026, time.February, 27, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
}

func TestNextValidAfter_NthWeekday(t *testing.T) {
	// Third Friday of the month: "6#3" (1=Sunday, so Friday=6).
	e := mustParse(t, "0 0 12 ? * 6#3")
	next, ok := e.NextValidAfter(at(2026, time.July, 1, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	if next.Weekday() != time.Friday {
		t.Fatalf("expected a Friday, got %v", next.Weekday())
	}
	if occ := (next.Day()-1)/7 + 1; occ != 3 {
		t.Fatalf("expected 3rd occurrence, got %d (day %d)", occ, next.Day())
	}
}

func TestNextValidAfter_LastWeekdayOfMonthToken(t *testing.T) {
	// 6L = last Friday of the month. July 2026's last Friday is the 31st.
	e := mustParse(t, "0 0 18 ? * 6L")
	next, ok := e.NextValidAfter(at(2026, time.July, 1, 0, 0, 0, time.UTC), time.UTC)
	if !ok {
		t.Fatal("expected a match")
	}
	want := at(2026, time.July, 31, 18, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("got %v want %v", next, want)
	}
	if next.Weekday() != time.Friday {
		t.Fatalf("expected a Friday, got %v", next.Weekday())
	}

	after, ok := e.NextValidAfter(next, time.UTC)
	if !ok {
		t.Fatal("expected a second match")
	}
	// August 2026's last Friday is the 28th.
	if !after.Equal(at(2026, time.August, 28, 18, 0, 0, time.UTC)) {
		t.Fatalf("got %v want Aug 28 2026", after)
	}
}

func TestParse_RequiresExactlyOneQuestionMark(t *testing.T) {
	if _, err := cronexpr.Parse("0 0 9 * * *"); err == nil {
		t.Fatal("expected error when neither dom nor dow is '?'")
	}
	if _, err := cronexpr.Parse("0 0 9 ? * ?"); err == nil {
		t.Fatal("expected error when both dom and dow are '?'")
	}
}

func TestParse_InvalidExpressionError(t *testing.T) {
	_, err := cronexpr.Parse("99 0 9 ? * MON")
	if err == nil {
		t.Fatal("expected error for out-of-range seconds")
	}
	var invalidErr *cronexpr.InvalidExpressionError
	if !asInvalid(err, &invalidErr) {
		t.Fatalf("expected *InvalidExpressionError, got %T", err)
	}
}

func asInvalid(err error, target **cronexpr.InvalidExpressionError) bool {
	if e, ok := err.(*cronexpr.InvalidExpressionError); ok {
		*target = e
		return true
	}
	return false
}

func TestStringRoundTrip(t *testing.T) {
	exprs := []string{
		"0 0 9 ? * MON-FRI",
		"*/5 * * * * ?",
		"0 0 0 L * ?",
		"0 0 0 LW * ?",
		"0 0 12 ? * 6#3",
		"0 0 18 ? * 6L",
		"0 0 0 ? JAN-DEC MON,WED,FRI",
	}
	for _, raw := range exprs {
		e := mustParse(t, raw)
		roundTripped := e.String()
		e2, err := cronexpr.Parse(roundTripped)
		if err != nil {
			t.Fatalf("re-parse of %q failed: %v", roundTripped, err)
		}
		start := at(2026, time.January, 1, 0, 0, 0, time.UTC)
		n1, ok1 := e.NextValidAfter(start, time.UTC)
		n2, ok2 := e2.NextValidAfter(start, time.UTC)
		if ok1 != ok2 || !n1.Equal(n2) {
			t.Fatalf("round-trip match semantics diverged for %q: (%v,%v) vs (%v,%v)", raw, n1, ok1, n2, ok2)
		}
	}
}

func TestNextValidAfter_DSTSpringForward(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2026-03-08 is the US spring-forward date; 2:30am does not exist.
	e := mustParse(t, "0 30 2 * * ?")
	start := at(2026, time.March, 8, 0, 0, 0, loc)
	next, ok := e.NextValidAfter(start, loc)
	if !ok {
		t.Fatal("expected a match")
	}
	if next.Day() == 8 {
		t.Fatalf("nonexistent local time 2:30am was returned: %v", next)
	}
}

func TestEquivalentExpressions_SameMatchSet(t *testing.T) {
	a := mustParse(t, "0 0 12 * * ?")
	b := mustParse(t, "0 0 12 1-31 * ?")
	start := at(2026, time.January, 1, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		na, oka := a.NextValidAfter(start, time.UTC)
		nb, okb := b.NextValidAfter(start, time.UTC)
		if oka != okb || !na.Equal(nb) {
			t.Fatalf("iteration %d diverged: a=%v/%v b=%v/%v", i, na, oka, nb, okb)
		}
		start = na
	}
}
