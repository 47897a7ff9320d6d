package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"ONCE", "DAILY", "WEEKLY", "MONTHLY"} {
		if _, err := Parse(s); err != nil {
			t.Errorf("Parse(%q) = %v, want nil", s, err)
		}
	}
	if _, err := Parse("YEARLY"); err == nil {
		t.Error("Parse(YEARLY) = nil, want error")
	}
	if _, err := Parse(""); err == nil {
		t.Error("Parse(empty) = nil, want error")
	}
}

func TestOnce(t *testing.T) {
	start := date(2026, time.March, 10)

	dates := DueDates(Once, start, nil, date(2026, time.March, 1), date(2026, time.April, 1))
	if len(dates) != 1 || !dates[0].Equal(start) {
		t.Fatalf("dates = %v, want [%v]", dates, start)
	}

	// Out of range
	dates = DueDates(Once, start, nil, date(2026, time.April, 1), date(2026, time.May, 1))
	if len(dates) != 0 {
		t.Fatalf("dates = %v, want empty", dates)
	}
}

func TestDaily(t *testing.T) {
	start := date(2026, time.March, 10)

	dates := DueDates(Daily, start, nil, date(2026, time.March, 12), date(2026, time.March, 15))
	want := []time.Time{date(2026, time.March, 12), date(2026, time.March, 13), date(2026, time.March, 14)}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestDailyEndCap(t *testing.T) {
	start := date(2026, time.March, 10)
	end := date(2026, time.March, 12)

	dates := DueDates(Daily, start, &end, start, date(2026, time.March, 20))
	if len(dates) != 3 {
		t.Fatalf("got %d dates, want 3 (10th through 12th): %v", len(dates), dates)
	}
	if !dates[2].Equal(end) {
		t.Errorf("last date = %v, want %v", dates[2], end)
	}
}

func TestWeeklyKeepsWeekday(t *testing.T) {
	start := date(2026, time.March, 9) // a Monday

	dates := DueDates(Weekly, start, nil, start, date(2026, time.April, 1))
	if len(dates) != 4 {
		t.Fatalf("got %d dates, want 4: %v", len(dates), dates)
	}
	for _, d := range dates {
		if d.Weekday() != time.Monday {
			t.Errorf("%v is %v, want Monday", d, d.Weekday())
		}
	}
}

func TestMonthlyClampsShortMonths(t *testing.T) {
	start := date(2026, time.January, 31)

	dates := DueDates(Monthly, start, nil, start, date(2026, time.May, 1))
	want := []time.Time{
		date(2026, time.January, 31),
		date(2026, time.February, 28),
		date(2026, time.March, 31),
		date(2026, time.April, 30),
	}
	if len(dates) != len(want) {
		t.Fatalf("got %d dates, want %d: %v", len(dates), len(want), dates)
	}
	for i := range want {
		if !dates[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, dates[i], want[i])
		}
	}
}

func TestStartInsideRange(t *testing.T) {
	start := date(2026, time.March, 10)

	// Range opens before the anchor: no dates before start.
	dates := DueDates(Daily, start, nil, date(2026, time.March, 1), date(2026, time.March, 12))
	if len(dates) != 2 {
		t.Fatalf("got %d dates, want 2: %v", len(dates), dates)
	}
	if !dates[0].Equal(start) {
		t.Errorf("first date = %v, want %v", dates[0], start)
	}
}
