package session

import (
	"testing"
	"time"

	"github.com/minjae-dev/krx-advisor/internal/config"
)

func testGate(t *testing.T) *Gate {
	t.Helper()
	g, err := NewGate(
		config.Session{Timezone: "Asia/Seoul", Open: "09:00", Close: "15:30", Weekend: []string{"Saturday", "Sunday"}},
		config.Calendar{Holidays: map[int][]string{2026: {"2026-01-01", "2026-05-05", "2026-12-25"}}},
	)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}
	return g
}

func kst(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load KST: %v", err)
	}
	return loc
}

func TestEvaluate(t *testing.T) {
	g := testGate(t)
	loc := kst(t)

	tests := []struct {
		name   string
		at     time.Time
		open   bool
		reason string
	}{
		{"saturday morning", time.Date(2026, 1, 3, 11, 0, 0, 0, loc), false, ReasonWeekend},
		{"sunday during session hours", time.Date(2026, 1, 4, 10, 0, 0, 0, loc), false, ReasonWeekend},
		{"holiday at open time", time.Date(2026, 1, 1, 9, 0, 0, 0, loc), false, ReasonHoliday},
		{"holiday midday", time.Date(2026, 5, 5, 12, 30, 0, 0, loc), false, ReasonHoliday},
		{"weekday before open", time.Date(2026, 1, 2, 8, 59, 0, 0, loc), false, ReasonAfterHours},
		{"weekday after close", time.Date(2026, 1, 2, 15, 31, 0, 0, loc), false, ReasonAfterHours},
		{"weekday evening", time.Date(2026, 1, 2, 22, 0, 0, 0, loc), false, ReasonAfterHours},
		{"open boundary inclusive", time.Date(2026, 1, 2, 9, 0, 0, 0, loc), true, ""},
		{"close boundary inclusive", time.Date(2026, 1, 2, 15, 30, 0, 0, loc), true, ""},
		{"midday trading", time.Date(2026, 1, 2, 11, 0, 0, 0, loc), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := g.Evaluate(tt.at)
			if st.Open != tt.open {
				t.Fatalf("want open=%v, got %v (reason %q)", tt.open, st.Open, st.Reason)
			}
			if st.Reason != tt.reason {
				t.Fatalf("want reason %q, got %q", tt.reason, st.Reason)
			}
		})
	}
}

func TestEvaluate_UnknownYearFailsClosed(t *testing.T) {
	g := testGate(t)
	loc := kst(t)

	// A regular Wednesday during session hours, but 2027 has no holiday table
	// and the exchange calendar is off.
	st := g.Evaluate(time.Date(2027, 1, 6, 10, 0, 0, 0, loc))
	if st.Open {
		t.Fatal("want closed for uncovered year, got open")
	}
	if st.Reason != ReasonCalendarUnknown {
		t.Fatalf("want reason %q, got %q", ReasonCalendarUnknown, st.Reason)
	}
}

func TestEvaluate_ForeignZoneInput(t *testing.T) {
	g := testGate(t)

	// 2026-01-02 01:00 UTC is 10:00 KST on a trading Friday.
	st := g.Evaluate(time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC))
	if !st.Open {
		t.Fatalf("want open, got closed (%s)", st.Reason)
	}
}

func TestNewGate_Validation(t *testing.T) {
	sess := config.Session{Timezone: "Asia/Seoul", Open: "09:00", Close: "15:30", Weekend: []string{"Saturday", "Sunday"}}

	tests := []struct {
		name string
		sess config.Session
		cal  config.Calendar
	}{
		{"no calendar source", sess, config.Calendar{}},
		{"bad timezone", config.Session{Timezone: "Mars/Olympus", Open: "09:00", Close: "15:30"}, config.Calendar{Holidays: map[int][]string{2026: nil}}},
		{"close before open", config.Session{Timezone: "Asia/Seoul", Open: "15:30", Close: "09:00"}, config.Calendar{Holidays: map[int][]string{2026: nil}}},
		{"bad holiday date", sess, config.Calendar{Holidays: map[int][]string{2026: {"not-a-date"}}}},
		{"holiday under wrong year", sess, config.Calendar{Holidays: map[int][]string{2026: {"2025-01-01"}}}},
		{"unknown weekday", config.Session{Timezone: "Asia/Seoul", Open: "09:00", Close: "15:30", Weekend: []string{"Caturday"}}, config.Calendar{Holidays: map[int][]string{2026: nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGate(tt.sess, tt.cal); err == nil {
				t.Fatal("want error, got nil")
			}
		})
	}
}
