package gen

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/minjae-dev/krx-advisor/internal/observ"
)

// Sentinel is returned when every attempt of a stage fails to produce
// content. The pipeline carries it forward as a visibly degraded payload
// instead of aborting the cycle.
const Sentinel = "no content produced"

var errEmptyResponse = errors.New("empty response")

// Runner invokes named generation stages with retry and backoff.
type Runner struct {
	gen    Generator
	policy Policy
	log    zerolog.Logger
}

func NewRunner(gen Generator, policy Policy, log zerolog.Logger) *Runner {
	return &Runner{gen: gen, policy: policy, log: log.With().Str("component", "stage").Logger()}
}

// RunStage runs one generation stage. Transient backend failures and empty
// responses alike consume attempts; when the budget is exhausted the fixed
// Sentinel text is returned with a nil error so the caller can proceed
// degraded. A non-nil error means the context was cancelled.
func (r *Runner) RunStage(ctx context.Context, stage, system, user string, augmented bool) (string, error) {
	var out string
	err := r.policy.Do(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := r.gen.Generate(ctx, system, user, augmented)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errEmptyResponse
		}
		out = text
		return nil
	}, func(attempt int, cause error) {
		observ.StageRetriesTotal.WithLabelValues(stage).Inc()
		r.log.Warn().Str("stage", stage).Int("attempt", attempt).Err(cause).Msg("stage attempt failed, retrying")
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		observ.StageSentinelsTotal.WithLabelValues(stage).Inc()
		r.log.Error().Str("stage", stage).Err(err).Msg("stage exhausted retries, using sentinel output")
		return Sentinel, nil
	}
	return out, nil
}
