package engineobs

import (
	"context"
	"time"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

type observablePlanner struct {
	planner interfaces.Planner
}

var _ interfaces.Planner = (*observablePlanner)(nil)

func Wrap(p interfaces.Planner) interfaces.Planner {
	return &observablePlanner{
		planner: p,
	}
}

func (op *observablePlanner) Step(ctx context.Context, inst types.Instrument) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting trading cycle",
		"symbol", inst.Symbol,
	)

	result, err := op.planner.Step(ctx, inst)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Trading cycle failed", err,
			"symbol", inst.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Trading cycle completed",
		"symbol", inst.Symbol,
		"outcome", result.Outcome,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}
