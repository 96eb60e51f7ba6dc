package interfaces

import (
	"context"

	"ai-crypto-trader/internal/types"
)

// AIProvider is one language-model backend in the fallback chain.
type AIProvider interface {
	Name() string
	// Available reports whether the provider is initialized and
	// reachable enough to be worth an attempt.
	Available(ctx context.Context) bool
	// Complete sends the prompt and returns the raw model text. An
	// empty response is an error condition handled by the caller.
	Complete(ctx context.Context, prompt string, opts types.CompletionOptions) (string, error)
}

// Decider turns a prompt context into a recorded trading decision. It
// never returns an error for provider failures; an exhausted provider
// chain yields a NO_ACTION decision.
type Decider interface {
	GetDecision(ctx context.Context, pctx types.PromptContext, instrumentID int64) (types.Decision, error)
}

// Planner runs the per-instrument decision/risk/order pipeline.
type Planner interface {
	Step(ctx context.Context, inst types.Instrument) (*types.StepResult, error)
}

// AlertPublisher emits decision and trade events for downstream
// consumers. Publishing is best effort.
type AlertPublisher interface {
	PublishDecision(ctx context.Context, d types.Decision) error
	PublishTrade(ctx context.Context, tx types.Transaction) error
	Close() error
}

// HeadlineSource supplies recent news headlines for a symbol.
type HeadlineSource interface {
	Headlines(ctx context.Context, symbol string) ([]string, error)
}
