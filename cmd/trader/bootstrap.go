package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"ai-crypto-trader/internal/alert"
	"ai-crypto-trader/internal/engine"
	"ai-crypto-trader/internal/engine/engineobs"
	"ai-crypto-trader/internal/exchange"
	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/llm"
	"ai-crypto-trader/internal/llm/llmobs"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/news"
	"ai-crypto-trader/internal/persist"
	"ai-crypto-trader/internal/store"
)

// deps is everything main needs after wiring.
type deps struct {
	Planner     interfaces.Planner
	Instruments interfaces.InstrumentStore
	alerts      interfaces.AlertPublisher
}

func (d *deps) Close() {
	if d.alerts != nil {
		if err := d.alerts.Close(); err != nil {
			logger.Warn(context.Background(), "Failed to close alert publisher", "error", err.Error())
		}
	}
}

// wire assembles the dependency graph from config: persistence,
// gateways, the decision orchestrator and the planner.
func wire(ctx context.Context, cfg *store.Config) (*deps, error) {
	d := &deps{}

	var (
		instruments  interfaces.InstrumentStore
		settings     interfaces.SettingsStore
		decisions    interfaces.DecisionStore
		transactions interfaces.TransactionStore
	)
	if cfg.Database.Driver != "" {
		db, err := persist.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		instStore := persist.NewInstrumentStore(db)
		if err := instStore.Seed(ctx, cfg.Instruments); err != nil {
			return nil, fmt.Errorf("seed instruments: %w", err)
		}
		instruments = instStore
		settings = persist.NewSettingsStore(db)
		decisions = persist.NewDecisionStore(db)
		transactions = persist.NewTransactionStore(db)
	} else {
		logger.Warn(ctx, "No database configured, decisions and transactions will not be persisted")
	}
	d.Instruments = instruments

	if cfg.Alerts.Enabled {
		publisher, err := alert.NewPublisher(cfg.Alerts.Brokers, cfg.Alerts.Topic)
		if err != nil {
			return nil, fmt.Errorf("connect alert publisher: %w", err)
		}
		d.alerts = publisher
	}

	exchangeTimeout := time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second
	binance := exchange.NewBinance(cfg.Exchange.BaseURL, exchangeTimeout)

	var gateway interfaces.Exchange = binance
	if cfg.Mode == "DRY_RUN" {
		gateway = exchange.NewPaper(binance, paperBalance(cfg))
	}

	var headlines interfaces.HeadlineSource = news.Disabled{}
	if cfg.News.Enabled {
		headlines = news.NewScraper(cfg.News.Sources, cfg.News.MaxHeadlines, exchangeTimeout)
	}

	decider := llmobs.Wrap(llm.NewOrchestrator(cfg, settings, decisions, d.alerts))
	d.Planner = engineobs.Wrap(engine.New(cfg, binance, decider, gateway, transactions, headlines, d.alerts))
	return d, nil
}

// paperBalance sizes the simulated account: enough for a handful of
// default-notional trades unless PAPER_BALANCE overrides it.
func paperBalance(cfg *store.Config) float64 {
	if v, err := strconv.ParseFloat(os.Getenv("PAPER_BALANCE"), 64); err == nil && v > 0 {
		return v
	}
	return cfg.Risk.DefaultTradeAmount * 10
}
