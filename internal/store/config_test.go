package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "mode: DRY_RUN\n"))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.PollSeconds)
	assert.Equal(t, "1h", cfg.Strategy.KlinesInterval)
	assert.Equal(t, 20, cfg.Strategy.SMAPeriod)
	assert.Equal(t, 26, cfg.Strategy.MACDSlow)
	assert.Equal(t, 14, cfg.Risk.ATRPeriod)
	assert.Equal(t, 100.0, cfg.Risk.DefaultTradeAmount)
	assert.Equal(t, "MARKET", cfg.Orders.DefaultOrderType)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.OpenAI.Model)
	assert.Equal(t, "trading.decisions", cfg.Alerts.Topic)
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "mode: YOLO\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestLoadConfigRejectsBadOrderType(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "mode: DRY_RUN\norders:\n  default_order_type: OCO\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_order_type")
}

func TestLoadConfigRejectsInvertedMACDPeriods(t *testing.T) {
	body := `mode: DRY_RUN
strategy:
  macd_fast: 30
  macd_slow: 26
`
	_, err := LoadConfig(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macd_fast")
}

func TestLoadConfigRejectsInstrumentWithoutFilters(t *testing.T) {
	body := `mode: DRY_RUN
instruments:
  - symbol: BTCUSDT
    base_asset: BTC
    quote_asset: USDT
    active: true
`
	_, err := LoadConfig(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step_size")
}

func TestLoadConfigVolatilityCheckNeedsThreshold(t *testing.T) {
	body := `mode: LIVE
risk:
  use_volatility_check: true
`
	_, err := LoadConfig(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_atr_pct_of_price")
}
