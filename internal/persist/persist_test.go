package persist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ai-crypto-trader/internal/types"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	return db
}

func TestInstrumentStoreSeedAndActive(t *testing.T) {
	db := testDB(t)
	store := NewInstrumentStore(db)
	ctx := context.Background()

	seed := []types.Instrument{
		{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Active: true, StepSize: 0.0001, TickSize: 0.01},
		{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Active: false, StepSize: 0.001, TickSize: 0.01},
	}
	require.NoError(t, store.Seed(ctx, seed))

	// Seeding again must not duplicate existing symbols.
	require.NoError(t, store.Seed(ctx, seed))

	active, err := store.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "BTCUSDT", active[0].Symbol)
	assert.Equal(t, 0.0001, active[0].StepSize)

	got, err := store.ByID(ctx, active[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.True(t, got.Active)
}

func TestSettingsStoreGetSet(t *testing.T) {
	db := testDB(t)
	store := NewSettingsStore(db)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "OPENAI_ENABLED", "true"))
	require.NoError(t, store.Set(ctx, "OLLAMA_ENABLED", "false"))

	got, err := store.Get(ctx, []string{"OPENAI_ENABLED", "OLLAMA_ENABLED", "MISSING_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "true", got["OPENAI_ENABLED"])
	assert.Equal(t, "false", got["OLLAMA_ENABLED"])
	_, ok := got["MISSING_KEY"]
	assert.False(t, ok, "absent keys must be omitted, not zero-valued")

	// Set overwrites in place.
	require.NoError(t, store.Set(ctx, "OPENAI_ENABLED", "false"))
	got, err = store.Get(ctx, []string{"OPENAI_ENABLED"})
	require.NoError(t, err)
	assert.Equal(t, "false", got["OPENAI_ENABLED"])
}

func TestDecisionStoreAppend(t *testing.T) {
	db := testDB(t)
	store := NewDecisionStore(db)
	ctx := context.Background()

	d := types.Decision{
		InstrumentID: 1,
		Symbol:       "BTCUSDT",
		Action:       types.ActionBuy,
		Reason:       "RSI oversold.",
		Provider:     "openai",
		Model:        "gpt-3.5-turbo",
		Prompt:       "prompt body",
		RawResponse:  "DECISION: BUY. JUSTIFICACION: RSI oversold.",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.AppendDecision(ctx, d))
	require.NoError(t, store.AppendDecision(ctx, d))

	var count int64
	require.NoError(t, db.Model(&DecisionModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "decision log is append-only")

	var rows []DecisionModel
	require.NoError(t, db.Find(&rows).Error)
	assert.Equal(t, "BUY", rows[0].Decision)
	assert.Equal(t, "openai", rows[0].Provider)
}

func TestTransactionStoreAppend(t *testing.T) {
	db := testDB(t)
	store := NewTransactionStore(db)
	ctx := context.Background()

	tx := types.Transaction{
		InstrumentID:  1,
		OrderID:       "12345",
		ClientOrderID: "c-1",
		Side:          types.ActionBuy,
		Mode:          types.ModeSpot,
		Price:         42000.5,
		Quantity:      0.0023,
		QuoteValue:    96.6,
		Status:        "FILLED",
		ExecutedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.AppendTransaction(ctx, tx))

	var rows []TransactionModel
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "BUY", rows[0].Side)
	assert.Equal(t, "SPOT", rows[0].Mode)
	assert.Equal(t, 0.0023, rows[0].Quantity)
}
