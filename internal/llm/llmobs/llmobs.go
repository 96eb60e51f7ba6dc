package llmobs

import (
	"context"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

// observableDecider wraps a Decider with observability (logging & tracing)
type observableDecider struct {
	decider interfaces.Decider
}

// Compile-time interface check
var _ interfaces.Decider = (*observableDecider)(nil)

// Wrap wraps a decider with observability middleware
func Wrap(decider interfaces.Decider) interfaces.Decider {
	return &observableDecider{
		decider: decider,
	}
}

// GetDecision obtains a trading decision with observability
func (od *observableDecider) GetDecision(
	ctx context.Context,
	pctx types.PromptContext,
	instrumentID int64,
) (types.Decision, error) {
	ctx, span := trace.StartSpan(ctx, "llm.GetDecision")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting trading decision",
		"symbol", pctx.Symbol,
		"instrument_id", instrumentID,
	)

	decision, err := od.decider.GetDecision(ctx, pctx, instrumentID)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get trading decision", err,
			"symbol", pctx.Symbol,
		)
		return types.Decision{}, err
	}

	logger.InfoSkip(ctx, 1, "Trading decision received",
		"symbol", pctx.Symbol,
		"action", decision.Action,
		"provider", decision.Provider,
		"reason", decision.Reason,
	)

	return decision, nil
}
