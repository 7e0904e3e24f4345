package domain

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/jobcore/internal/calendar"
	"github.com/ErlanBelekov/jobcore/internal/keys"
)

func jobKey(name string) keys.JobKey         { return keys.NewJobKey(name, "") }
func trigKey(name string) keys.TriggerKey    { return keys.NewTriggerKey(name, "") }

func TestSimpleTriggerRepeatCount(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewSimpleTrigger(trigKey("t1"), jobKey("j1"), time.Second, 2)
	tr.StartTime = start

	first := tr.ComputeFirstFireTime(nil)
	if first == nil || !first.Equal(start) {
		t.Fatalf("expected first fire at start time, got %v", first)
	}

	var fires []time.Time
	fires = append(fires, *tr.TriggerHeader.NextFireTime)
	for tr.MayFireAgain() {
		tr.Triggered(nil)
		if tr.TriggerHeader.NextFireTime == nil {
			break
		}
		fires = append(fires, *tr.TriggerHeader.NextFireTime)
	}

	if len(fires) != 3 {
		t.Fatalf("expected 3 total firings (repeat_count=2 => n+1), got %d: %v", len(fires), fires)
	}
	if !tr.complete {
		t.Fatalf("expected trigger to be complete after exhausting repeat count")
	}
}

func TestSimpleTriggerIndefinite(t *testing.T) {
	tr := NewSimpleTrigger(trigKey("t2"), jobKey("j2"), time.Minute, RepeatIndefinitely)
	tr.StartTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.ComputeFirstFireTime(nil)
	for i := 0; i < 50; i++ {
		if !tr.MayFireAgain() {
			t.Fatalf("indefinite trigger stopped firing at iteration %d", i)
		}
		tr.Triggered(nil)
	}
}

func TestCronTriggerDailyWeekday(t *testing.T) {
	tr, err := NewCronTrigger(trigKey("cron1"), jobKey("j1"), "0 0 9 ? * MON-FRI", time.UTC)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	tr.StartTime = time.Date(2026, 1, 2, 8, 59, 50, 0, time.UTC) // Friday
	first := tr.ComputeFirstFireTime(nil)
	if first == nil {
		t.Fatal("expected a first fire time")
	}
	wantFirst := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	if !first.Equal(wantFirst) {
		t.Fatalf("expected first fire %v, got %v", wantFirst, *first)
	}

	tr.Triggered(nil)
	wantSecond := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) // next Monday
	if tr.TriggerHeader.NextFireTime == nil || !tr.TriggerHeader.NextFireTime.Equal(wantSecond) {
		t.Fatalf("expected second fire %v, got %v", wantSecond, tr.TriggerHeader.NextFireTime)
	}
}

func TestCronTriggerMisfireDoNothing(t *testing.T) {
	tr, err := NewCronTrigger(trigKey("cron2"), jobKey("j1"), "*/5 * * * * ?", time.UTC)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	tr.MisfireInstruction = MisfireDoNothing
	tr.StartTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.ComputeFirstFireTime(nil)

	// Resolve the (long past) first fire as a misfire: DO_NOTHING moves to
	// the next */5 slot after the current wall-clock time.
	tr.UpdateAfterMisfire(nil)
	if tr.TriggerHeader.NextFireTime == nil {
		t.Fatal("expected a next fire time after DO_NOTHING misfire resolution")
	}
	if tr.TriggerHeader.NextFireTime.Second()%5 != 0 {
		t.Fatalf("expected next fire to land on a */5 boundary, got %v", tr.TriggerHeader.NextFireTime)
	}
}

func TestCalendarIntervalMonthEndClamp(t *testing.T) {
	tr := NewCalendarIntervalTrigger(trigKey("ci1"), jobKey("j1"), 1, UnitMonth, time.UTC)
	tr.StartTime = time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	tr.ComputeFirstFireTime(nil)

	tr.Triggered(nil) // -> Feb
	if tr.TriggerHeader.NextFireTime.Month() != time.February || tr.TriggerHeader.NextFireTime.Day() != 28 {
		t.Fatalf("expected Feb 28 (2026 not a leap year), got %v", tr.TriggerHeader.NextFireTime)
	}

	tr.Triggered(nil) // -> Mar
	if tr.TriggerHeader.NextFireTime.Month() != time.March || tr.TriggerHeader.NextFireTime.Day() != 31 {
		t.Fatalf("expected Mar 31 (day-of-month taken from the Jan 31 start, not from Feb 28), got %v", tr.TriggerHeader.NextFireTime)
	}
}

func TestDailyTimeIntervalWindowRollover(t *testing.T) {
	tr := NewDailyTimeIntervalTrigger(trigKey("dti1"), jobKey("j1"), 2, UnitHour, time.UTC)
	tr.StartOfDay = TimeOfDay{9, 0, 0}
	tr.EndOfDay = TimeOfDay{17, 0, 0}
	tr.StartTime = time.Date(2026, 1, 2, 16, 0, 0, 0, time.UTC) // Friday 16:00

	tr.ComputeFirstFireTime(nil)
	if tr.TriggerHeader.NextFireTime == nil || tr.TriggerHeader.NextFireTime.Hour() != 16 {
		t.Fatalf("expected first fire at 16:00, got %v", tr.TriggerHeader.NextFireTime)
	}

	tr.Triggered(nil) // 16:00 + 2h = 18:00 > end-of-day(17:00) -> roll to next day start
	if tr.TriggerHeader.NextFireTime == nil {
		t.Fatal("expected a rolled-over fire time")
	}
	if tr.TriggerHeader.NextFireTime.Hour() != 9 || tr.TriggerHeader.NextFireTime.Day() != 3 {
		t.Fatalf("expected roll to Jan 3 09:00, got %v", tr.TriggerHeader.NextFireTime)
	}
}

func TestCalendarExclusionWithSimpleTrigger(t *testing.T) {
	wc := calendar.NewWeeklyCalendar(time.UTC, time.Sunday)
	tr := NewSimpleTrigger(trigKey("sc1"), jobKey("j1"), 12*time.Hour, RepeatIndefinitely)
	tr.StartTime = time.Date(2026, 1, 3, 18, 0, 0, 0, time.UTC) // Saturday 18:00
	tr.CalendarName = "weekly-no-sunday"

	first := tr.ComputeFirstFireTime(wc)
	if first == nil || !first.Equal(tr.StartTime) {
		t.Fatalf("expected first fire at Sat 18:00 (not excluded), got %v", first)
	}

	tr.Triggered(wc) // would be Sun 06:00 -> excluded -> Mon 06:00
	want := time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC)
	if tr.TriggerHeader.NextFireTime == nil || !tr.TriggerHeader.NextFireTime.Equal(want) {
		t.Fatalf("expected Mon 06:00 skipping both Sunday fires, got %v", tr.TriggerHeader.NextFireTime)
	}
}
