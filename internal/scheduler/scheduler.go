// Package scheduler fires the pipeline once per hour on the hour, gated by
// the trading-window gate.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/observ"
	"github.com/minjae-dev/krx-advisor/internal/session"
)

// TickGate decides whether a moment is inside a valid trading window.
type TickGate interface {
	Evaluate(now time.Time) session.Status
}

// CycleRunner executes one pipeline cycle to completion.
type CycleRunner interface {
	Run(ctx context.Context, now time.Time) error
}

// Scheduler polls the clock on a short interval and runs cycles inline on its
// own goroutine, so two cycles can never overlap. Each (day, hour) fires at
// most once, even when a cycle outlives the minute it started in.
type Scheduler struct {
	gate  TickGate
	cycle CycleRunner
	loc   *time.Location
	poll  time.Duration
	log   zerolog.Logger

	lastFired string // "2006-01-02 15" key of the last fired hour
}

func New(gate TickGate, cycle CycleRunner, loc *time.Location, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		gate:  gate,
		cycle: cycle,
		loc:   loc,
		poll:  time.Second,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Msg("scheduler running, firing every hour on the hour")
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now().In(s.loc))
		}
	}
}

// Tick evaluates one poll instant. Exposed for tests; Run is the production
// caller.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if now.Minute() != 0 {
		return
	}
	hourKey := now.Format("2006-01-02 15")
	if hourKey == s.lastFired {
		return
	}
	s.lastFired = hourKey

	if st := s.gate.Evaluate(now); !st.Open {
		observ.CycleSkipsTotal.WithLabelValues(st.Reason).Inc()
		s.log.Info().Str("reason", st.Reason).Str("hour", hourKey).Msg("skipping cycle, session closed")
		return
	}

	if err := s.cycle.Run(ctx, now); err != nil {
		// Already alerted and logged inside the pipeline; the cycle is not
		// retried at this level.
		s.log.Warn().Str("hour", hourKey).Msg("cycle ended in failure")
	}
}
