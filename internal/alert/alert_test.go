package alert

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-crypto-trader/internal/types"
)

func mockPublisher(t *testing.T) (*Publisher, *mocks.SyncProducer) {
	t.Helper()
	producer := mocks.NewSyncProducer(t, nil)
	return &Publisher{producer: producer, topic: "trading.decisions"}, producer
}

func TestPublishDecisionSchema(t *testing.T) {
	p, producer := mockPublisher(t)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(raw []byte) error {
		var ev DecisionEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		assert.Equal(t, "trading_decision", ev.EventType)
		assert.Equal(t, "ai-crypto-trader", ev.Source)
		assert.Equal(t, "1.0", ev.SchemaVersion)
		assert.Equal(t, "BTCUSDT", ev.Data.Symbol)
		assert.Equal(t, "BUY", ev.Data.Signal)
		assert.Equal(t, "openai", ev.Data.Provider)
		return nil
	})

	err := p.PublishDecision(context.Background(), types.Decision{
		Symbol:   "BTCUSDT",
		Action:   types.ActionBuy,
		Reason:   "breakout confirmed",
		Provider: "openai",
		Model:    "gpt-3.5-turbo",
	})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestPublishTradeSchema(t *testing.T) {
	p, producer := mockPublisher(t)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(raw []byte) error {
		var ev TradeEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		assert.Equal(t, "trade_executed", ev.EventType)
		assert.Equal(t, "SELL", ev.Data.Side)
		assert.Equal(t, "MARGIN", ev.Data.Mode)
		assert.Equal(t, "98765", ev.Data.OrderID)
		assert.Equal(t, 0.5, ev.Data.Quantity)
		return nil
	})

	err := p.PublishTrade(context.Background(), types.Transaction{
		OrderID:  "98765",
		Side:     types.ActionSell,
		Mode:     types.ModeMargin,
		Price:    2500.0,
		Quantity: 0.5,
		Status:   "FILLED",
	})
	require.NoError(t, err)
	require.NoError(t, producer.Close())
}

func TestPublishSendFailureSurfaces(t *testing.T) {
	p, producer := mockPublisher(t)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := p.PublishDecision(context.Background(), types.Decision{Symbol: "ETHUSDT", Action: types.ActionHold})
	require.Error(t, err, "the caller decides that publish errors are non-fatal, not the publisher")
	require.NoError(t, producer.Close())
}
