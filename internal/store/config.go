// Package store loads and validates the engine configuration from YAML.
package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ai-crypto-trader/internal/types"
)

// RiskConfig bounds what a single tick is allowed to do.
type RiskConfig struct {
	MaxLossPerTradePct   float64 `yaml:"max_loss_per_trade_pct"`
	MinRiskBenefitRatio  float64 `yaml:"min_risk_benefit_ratio"`
	DefaultTradeAmount   float64 `yaml:"default_trade_amount_usd"`
	UseVolatilityCheck   bool    `yaml:"use_volatility_check"`
	ATRPeriod            int     `yaml:"atr_period"`
	MaxATRPctOfPrice     float64 `yaml:"max_atr_pct_of_price"`
}

// OrderStrategyConfig selects how accepted decisions become orders.
type OrderStrategyConfig struct {
	DefaultOrderType         string  `yaml:"default_order_type"` // MARKET, LIMIT, STOP_LOSS_LIMIT
	LimitOffsetPct           float64 `yaml:"limit_offset_pct"`
	UseBracket               bool    `yaml:"use_oco"`
	UseStopLoss              bool    `yaml:"use_stop_loss"`
	StopLossType             string  `yaml:"stop_loss_type"`
	StopLossPct              float64 `yaml:"stop_loss_pct"`
	StopLossLimitOffsetPct   float64 `yaml:"stop_loss_limit_offset_pct"`
	UseTakeProfit            bool    `yaml:"use_take_profit"`
	TakeProfitType           string  `yaml:"take_profit_type"`
	TakeProfitPct            float64 `yaml:"take_profit_pct"`
	TakeProfitLimitOffsetPct float64 `yaml:"take_profit_limit_offset_pct"`
}

// ProviderConfig is the static half of one AI backend's configuration;
// the enabled flag and model can be overridden at runtime through the
// settings store.
type ProviderConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Config is the full engine configuration.
type Config struct {
	Mode        string `yaml:"mode"` // DRY_RUN or LIVE
	PollSeconds int    `yaml:"poll_seconds"`

	Database struct {
		Driver string `yaml:"driver"` // sqlite or postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Exchange struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"exchange"`

	AI struct {
		SystemMessage  string         `yaml:"system_message"`
		TimeoutSeconds int            `yaml:"timeout_seconds"`
		OpenAI         ProviderConfig `yaml:"openai"`
		OpenRouter     ProviderConfig `yaml:"openrouter"`
		Ollama         ProviderConfig `yaml:"ollama"`
	} `yaml:"ai"`

	Strategy struct {
		KlinesInterval string `yaml:"klines_interval"`
		KlinesLimit    int    `yaml:"klines_limit"`
		SMAPeriod      int    `yaml:"sma_period"`
		EMAPeriod      int    `yaml:"ema_period"`
		RSIPeriod      int    `yaml:"rsi_period"`
		MACDFast       int    `yaml:"macd_fast"`
		MACDSlow       int    `yaml:"macd_slow"`
		MACDSignal     int    `yaml:"macd_signal"`
	} `yaml:"strategy"`

	Risk   RiskConfig          `yaml:"risk"`
	Orders OrderStrategyConfig `yaml:"orders"`

	// Fallback universe used when the instrument store is empty or not
	// configured.
	Instruments []types.Instrument `yaml:"instruments"`

	News struct {
		Enabled      bool     `yaml:"enabled"`
		Sources      []string `yaml:"sources"`
		MaxHeadlines int      `yaml:"max_headlines"`
	} `yaml:"news"`

	Alerts struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"alerts"`
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.PollSeconds <= 0 {
		return fmt.Errorf("poll_seconds must be positive, got %d", c.PollSeconds)
	}
	if c.Strategy.KlinesLimit <= 0 {
		return errors.New("strategy.klines_limit must be positive")
	}
	if c.Strategy.MACDFast >= c.Strategy.MACDSlow {
		return fmt.Errorf("strategy.macd_fast (%d) must be below strategy.macd_slow (%d)", c.Strategy.MACDFast, c.Strategy.MACDSlow)
	}
	switch c.Orders.DefaultOrderType {
	case "MARKET", "LIMIT", "STOP_LOSS_LIMIT":
	default:
		return fmt.Errorf("orders.default_order_type must be 'MARKET', 'LIMIT', or 'STOP_LOSS_LIMIT', got '%s'", c.Orders.DefaultOrderType)
	}
	if c.Risk.MinRiskBenefitRatio < 0 {
		return fmt.Errorf("risk.min_risk_benefit_ratio cannot be negative, got %.2f", c.Risk.MinRiskBenefitRatio)
	}
	if c.Risk.UseVolatilityCheck && c.Risk.MaxATRPctOfPrice <= 0 {
		return errors.New("risk.max_atr_pct_of_price must be positive when the volatility check is on")
	}
	if c.Database.Driver != "" && c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be 'sqlite' or 'postgres', got '%s'", c.Database.Driver)
	}
	if c.Alerts.Enabled && len(c.Alerts.Brokers) == 0 {
		return errors.New("alerts.brokers cannot be empty when alerts are enabled")
	}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return errors.New("instrument without symbol in config")
		}
		if inst.StepSize <= 0 || inst.TickSize <= 0 {
			return fmt.Errorf("instrument %s: step_size and tick_size must be positive", inst.Symbol)
		}
	}
	return nil
}

// LoadConfig reads path, applies defaults, and validates.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = "https://api.binance.com"
	}
	if c.Exchange.TimeoutSeconds == 0 {
		c.Exchange.TimeoutSeconds = 10
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 30
	}
	if c.AI.SystemMessage == "" {
		c.AI.SystemMessage = "You are an expert crypto market analyst and trading strategist."
	}
	if c.AI.OpenAI.Model == "" {
		c.AI.OpenAI.Model = "gpt-3.5-turbo"
	}
	if c.AI.OpenAI.MaxTokens == 0 {
		c.AI.OpenAI.MaxTokens = 500
	}
	if c.AI.OpenAI.Temperature == 0 {
		c.AI.OpenAI.Temperature = 0.7
	}
	if c.AI.OpenRouter.Model == "" {
		c.AI.OpenRouter.Model = "mistralai/mistral-7b-instruct"
	}
	if c.AI.OpenRouter.BaseURL == "" {
		c.AI.OpenRouter.BaseURL = "https://openrouter.ai/api/v1"
	}
	if c.AI.OpenRouter.MaxTokens == 0 {
		c.AI.OpenRouter.MaxTokens = 500
	}
	if c.AI.Ollama.Model == "" {
		c.AI.Ollama.Model = "gemma:2b"
	}
	if c.AI.Ollama.BaseURL == "" {
		c.AI.Ollama.BaseURL = "http://localhost:11434"
	}
	if c.Strategy.KlinesInterval == "" {
		c.Strategy.KlinesInterval = "1h"
	}
	if c.Strategy.KlinesLimit == 0 {
		c.Strategy.KlinesLimit = 100
	}
	if c.Strategy.SMAPeriod == 0 {
		c.Strategy.SMAPeriod = 20
	}
	if c.Strategy.EMAPeriod == 0 {
		c.Strategy.EMAPeriod = 50
	}
	if c.Strategy.RSIPeriod == 0 {
		c.Strategy.RSIPeriod = 14
	}
	if c.Strategy.MACDFast == 0 {
		c.Strategy.MACDFast = 12
	}
	if c.Strategy.MACDSlow == 0 {
		c.Strategy.MACDSlow = 26
	}
	if c.Strategy.MACDSignal == 0 {
		c.Strategy.MACDSignal = 9
	}
	if c.Risk.ATRPeriod == 0 {
		c.Risk.ATRPeriod = 14
	}
	if c.Risk.DefaultTradeAmount == 0 {
		c.Risk.DefaultTradeAmount = 100
	}
	if c.Orders.DefaultOrderType == "" {
		c.Orders.DefaultOrderType = "MARKET"
	}
	if c.Orders.StopLossType == "" {
		c.Orders.StopLossType = "STOP_LOSS_LIMIT"
	}
	if c.Orders.TakeProfitType == "" {
		c.Orders.TakeProfitType = "TAKE_PROFIT_LIMIT"
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 5
	}
	if c.Alerts.Topic == "" {
		c.Alerts.Topic = "trading.decisions"
	}
}
