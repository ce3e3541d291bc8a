// Package session decides whether a given wall-clock moment falls inside a
// valid trading window for the exchange.
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/scmhub/calendar"

	"github.com/minjae-dev/krx-advisor/internal/config"
)

// Skip reasons reported by Evaluate.
const (
	ReasonWeekend         = "weekend"
	ReasonHoliday         = "holiday"
	ReasonAfterHours      = "after hours"
	ReasonCalendarUnknown = "calendar unknown"
)

// Status is the gate verdict for one moment in time.
type Status struct {
	Open   bool
	Reason string // empty when Open
}

// Gate is pure after construction: Evaluate performs no I/O and never fails.
type Gate struct {
	loc      *time.Location
	openMin  int
	closeMin int
	weekend  map[time.Weekday]bool
	years    map[int]bool       // years the holiday table covers
	holidays map[string]bool    // "2006-01-02" keys
	exchange *calendar.Calendar // nil when exchange-calendar backing is off
}

// NewGate builds a gate from the session window and the per-year holiday
// table. It fails when neither a holiday table nor the exchange calendar is
// available, rather than letting every Evaluate fail closed silently.
func NewGate(sess config.Session, cal config.Calendar) (*Gate, error) {
	loc, err := time.LoadLocation(sess.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", sess.Timezone, err)
	}

	openMin, err := parseClock(sess.Open)
	if err != nil {
		return nil, fmt.Errorf("session open: %w", err)
	}
	closeMin, err := parseClock(sess.Close)
	if err != nil {
		return nil, fmt.Errorf("session close: %w", err)
	}
	if closeMin < openMin {
		return nil, fmt.Errorf("session close %s before open %s", sess.Close, sess.Open)
	}

	weekend := make(map[time.Weekday]bool, len(sess.Weekend))
	for _, name := range sess.Weekend {
		wd, ok := weekdayByName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		weekend[wd] = true
	}

	g := &Gate{
		loc:      loc,
		openMin:  openMin,
		closeMin: closeMin,
		weekend:  weekend,
		years:    make(map[int]bool, len(cal.Holidays)),
		holidays: make(map[string]bool),
	}
	for year, dates := range cal.Holidays {
		g.years[year] = true
		for _, d := range dates {
			t, err := time.ParseInLocation("2006-01-02", d, loc)
			if err != nil {
				return nil, fmt.Errorf("holiday %q for %d: %w", d, year, err)
			}
			if t.Year() != year {
				return nil, fmt.Errorf("holiday %q listed under year %d", d, year)
			}
			g.holidays[d] = true
		}
	}

	if cal.UseExchangeCalendar {
		g.exchange = calendar.GetCalendar(cal.MIC)
	}
	if len(g.years) == 0 && g.exchange == nil {
		return nil, fmt.Errorf("no holiday table configured and exchange calendar unavailable (mic %q)", cal.MIC)
	}
	return g, nil
}

// Evaluate reports whether now is inside the trading window. First match
// wins: weekend, then holiday, then time-of-day. Dates in a year covered by
// neither the holiday table nor the exchange calendar are closed with
// ReasonCalendarUnknown.
func (g *Gate) Evaluate(now time.Time) Status {
	now = now.In(g.loc)

	if g.weekend[now.Weekday()] {
		return Status{Reason: ReasonWeekend}
	}

	switch {
	case g.years[now.Year()]:
		if g.holidays[now.Format("2006-01-02")] {
			return Status{Reason: ReasonHoliday}
		}
	case g.exchange != nil:
		if !g.exchange.IsBusinessDay(now) {
			return Status{Reason: ReasonHoliday}
		}
	default:
		return Status{Reason: ReasonCalendarUnknown}
	}

	minute := now.Hour()*60 + now.Minute()
	if minute < g.openMin || minute > g.closeMin {
		return Status{Reason: ReasonAfterHours}
	}
	return Status{Open: true}
}

// Location is the exchange timezone the gate evaluates in.
func (g *Gate) Location() *time.Location { return g.loc }

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}
