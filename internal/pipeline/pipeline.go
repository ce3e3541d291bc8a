// Package pipeline sequences one analysis cycle: market snapshot, three
// generation stages, notification and artifact persistence, under a single
// failure boundary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/ledger"
	"github.com/minjae-dev/krx-advisor/internal/market"
	"github.com/minjae-dev/krx-advisor/internal/observ"
)

// State names the orchestrator's position in a cycle. Transitions are
// strictly sequential; Failed is reachable from any non-terminal state.
type State string

const (
	StateIdle         State = "idle"
	StateCollecting   State = "collecting"
	StateAnalyzing    State = "analyzing"
	StateStrategizing State = "strategizing"
	StateReviewing    State = "reviewing"
	StateNotifying    State = "notifying"
	StatePersisting   State = "persisting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Stage names, matching the skill-prompt directories.
const (
	StageAnalyst    = "market-analyst"
	StageStrategist = "quant-strategist"
	StageReviewer   = "risk-officer"
)

const actorLine = "Bot Pipeline (Analyst → Quant → Risk)"

// Collaborator boundaries, injected at construction so tests can substitute
// fakes and nothing reaches for module-level state.
type (
	SnapshotCollector interface {
		Collect(ctx context.Context) market.Snapshot
	}
	StageRunner interface {
		RunStage(ctx context.Context, stage, system, user string, augmented bool) (string, error)
	}
	Notifier interface {
		Send(ctx context.Context, text string) error
		Alert(ctx context.Context, text string) error
	}
	OrderLedger interface {
		Load() (string, error)
		Save(orders string) error
	}
	ReportWriter interface {
		Write(cycleTS, analysis, orders, finalMessage string) (string, error)
	}
	StatusPatcher interface {
		Patch(cycleTS, actor, reportName string) error
	}
	PromptLoader func(name string) (string, error)
)

type Pipeline struct {
	collector SnapshotCollector
	runner    StageRunner
	notifier  Notifier
	ledger    OrderLedger
	reports   ReportWriter
	status    StatusPatcher
	prompts   PromptLoader
	loc       *time.Location
	log       zerolog.Logger
}

func New(
	collector SnapshotCollector,
	runner StageRunner,
	notifier Notifier,
	orderLedger OrderLedger,
	reports ReportWriter,
	status StatusPatcher,
	prompts PromptLoader,
	loc *time.Location,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		collector: collector,
		runner:    runner,
		notifier:  notifier,
		ledger:    orderLedger,
		reports:   reports,
		status:    status,
		prompts:   prompts,
		loc:       loc,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes one cycle for the given wall-clock moment. On failure exactly
// one best-effort alert is sent, no artifacts are persisted, and the cycle is
// not retried. A cycle is successful only when it reaches StateDone.
func (p *Pipeline) Run(ctx context.Context, now time.Time) error {
	now = now.In(p.loc)
	currentTime := now.Format("15:04")
	cycleTS := now.Format("2006-01-02 15:04")

	p.log.Info().Str("cycle", cycleTS).Msg("pipeline started")

	state := StateCollecting
	fail := func(err error) error {
		observ.CyclesTotal.WithLabelValues("failed").Inc()
		p.log.Error().Str("cycle", cycleTS).Str("state", string(state)).Err(err).Msg("pipeline failed")
		// Best effort: a broken notifier must not mask the original failure.
		alertCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if alertErr := p.notifier.Alert(alertCtx, fmt.Sprintf("cycle %s failed during %s: %v", cycleTS, state, err)); alertErr != nil {
			p.log.Error().Err(alertErr).Msg("failure alert could not be delivered")
		}
		return fmt.Errorf("cycle %s failed during %s: %w", cycleTS, state, err)
	}

	// Collecting. Partial backend failures are recorded inside the snapshot
	// and never abort the cycle.
	snapshot := p.collector.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Analyzing, with live web retrieval.
	state = StateAnalyzing
	analystPrompt, err := p.prompts(StageAnalyst)
	if err != nil {
		return fail(err)
	}
	analystInput := fmt.Sprintf(
		"Current KST time: %s\n\n## Live market data (auto-collected)\n%s\n\n"+
			"Combine this data with web search results into an assessment of today's Korean equity market.",
		currentTime, snapshot.JSON(),
	)
	analysis, err := p.runner.RunStage(ctx, StageAnalyst, analystPrompt, analystInput, true)
	if err != nil {
		return fail(err)
	}

	// Strategizing, against the previous cycle's orders.
	state = StateStrategizing
	strategistPrompt, err := p.prompts(StageStrategist)
	if err != nil {
		return fail(err)
	}
	previousOrders, err := p.ledger.Load()
	if err != nil {
		return fail(err)
	}
	strategistInput := fmt.Sprintf(
		"## Market Analysis (from Analyst)\n%s\n\n## Previous Orders (1 hour ago)\n```json\n%s\n```\n\n"+
			"Compare the analysis with the previous orders and output a new trading strategy as JSON.",
		analysis, previousOrders,
	)
	strategistOut, err := p.runner.RunStage(ctx, StageStrategist, strategistPrompt, strategistInput, false)
	if err != nil {
		return fail(err)
	}
	proposedOrders := ledger.ExtractJSON(strategistOut)

	// Reviewing.
	state = StateReviewing
	reviewerPrompt, err := p.prompts(StageReviewer)
	if err != nil {
		return fail(err)
	}
	reviewerInput := fmt.Sprintf(
		"## Proposed Orders (from Strategist)\n```json\n%s\n```\n\nReference time: %s\n"+
			"Review the order sheet and write the notification message to send to the desk.",
		proposedOrders, cycleTS,
	)
	finalMessage, err := p.runner.RunStage(ctx, StageReviewer, reviewerPrompt, reviewerInput, false)
	if err != nil {
		return fail(err)
	}

	// Notifying. At most one attempt; a delivery failure is logged by the
	// notifier and does not fail the cycle.
	state = StateNotifying
	_ = p.notifier.Send(ctx, finalMessage)

	// Persisting: ledger, then report, then status document.
	state = StatePersisting
	if err := p.ledger.Save(proposedOrders); err != nil {
		if !errors.Is(err, ledger.ErrInvalidJSON) {
			return fail(err)
		}
		// Validation refusal keeps the previous slot; surfaced via log only.
	}
	reportName, err := p.reports.Write(cycleTS, analysis, proposedOrders, finalMessage)
	if err != nil {
		return fail(err)
	}
	if err := p.status.Patch(cycleTS, actorLine, reportName); err != nil {
		return fail(err)
	}

	state = StateDone
	observ.CyclesTotal.WithLabelValues("done").Inc()
	p.log.Info().Str("cycle", cycleTS).Msg("pipeline completed")
	return nil
}
