package dateutil

import (
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestDayUsesLocalCalendar(t *testing.T) {
	madrid := mustLocation(t, "Europe/Madrid")

	// 23:30 UTC in summer is already the next day in Madrid
	instant := time.Date(2026, 7, 10, 23, 30, 0, 0, time.UTC)
	got := Day(instant, madrid)
	want := time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Day = %v, want %v", got, want)
	}
}

func TestEndOfDay(t *testing.T) {
	madrid := mustLocation(t, "Europe/Madrid")

	date := time.Date(2026, 7, 11, 0, 0, 0, 0, time.UTC)
	got := EndOfDay(date, madrid)
	// 23:59:59 CEST is 21:59:59 UTC
	want := time.Date(2026, 7, 11, 21, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("EndOfDay = %v, want %v", got, want)
	}
}

func TestWeekBounds(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	sunday := monday.AddDate(0, 0, 6)

	cases := []time.Time{
		monday,
		monday.Add(10 * time.Hour),       // monday afternoon
		monday.AddDate(0, 0, 3),          // thursday
		sunday.Add(23*time.Hour + 59*time.Minute), // late sunday
	}
	for _, c := range cases {
		start, end := WeekBounds(c, time.UTC)
		if !start.Equal(monday) || !end.Equal(sunday) {
			t.Errorf("WeekBounds(%v) = %v..%v, want %v..%v", c, start, end, monday, sunday)
		}
	}
}

func TestWeekdayKey(t *testing.T) {
	monday := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	if k := WeekdayKey(monday, time.UTC); k != "mon" {
		t.Fatalf("WeekdayKey = %q, want mon", k)
	}
	if k := WeekdayKey(monday.AddDate(0, 0, 6), time.UTC); k != "sun" {
		t.Fatalf("WeekdayKey = %q, want sun", k)
	}
}

func TestParseClock(t *testing.T) {
	h, m, ok := ParseClock("09:30")
	if !ok || h != 9 || m != 30 {
		t.Fatalf("ParseClock(09:30) = %d:%d ok=%v", h, m, ok)
	}
	for _, bad := range []string{"", "9h30", "25:00", "12:61", "noon"} {
		if _, _, ok := ParseClock(bad); ok {
			t.Errorf("ParseClock(%q) accepted", bad)
		}
	}
}

func TestSameDate(t *testing.T) {
	a := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)
	if !SameDate(a, b) {
		t.Fatal("same calendar day reported different")
	}
	if SameDate(a, a.AddDate(0, 0, 1)) {
		t.Fatal("different days reported same")
	}
}
