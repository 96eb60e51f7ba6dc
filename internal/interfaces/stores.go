package interfaces

import (
	"context"

	"ai-crypto-trader/internal/types"
)

// InstrumentStore reads the configured trading universe.
type InstrumentStore interface {
	Active(ctx context.Context) ([]types.Instrument, error)
	ByID(ctx context.Context, id int64) (types.Instrument, error)
}

// SettingsStore reads and writes global feature flags such as provider
// enable switches and default model names.
type SettingsStore interface {
	Get(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// DecisionStore appends AI decision records. Records are never updated.
type DecisionStore interface {
	AppendDecision(ctx context.Context, d types.Decision) error
}

// TransactionStore appends executed-order records. Records are never
// updated.
type TransactionStore interface {
	AppendTransaction(ctx context.Context, tx types.Transaction) error
}
