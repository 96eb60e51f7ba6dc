package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ai-crypto-trader/internal/bot"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/store"
	"ai-crypto-trader/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("TRADER_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := store.LoadConfig(configPath)
	must(err)

	must(logger.Init())
	must(trace.Init())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
	}()

	ctx := context.Background()
	deps, err := wire(ctx, cfg)
	must(err)
	defer deps.Close()

	if cfg.Mode == "DRY_RUN" {
		logger.Info(ctx, "Running in DRY_RUN mode, orders are simulated")
	}

	controller := bot.New(deps.Planner, deps.Instruments, cfg.Instruments, stepTimeout(cfg))
	must(controller.Start(time.Duration(cfg.PollSeconds) * time.Second))

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info(ctx, "Shutting down")
	controller.Stop()
}

// stepTimeout bounds one instrument pass: market data, AI chain and
// submission together.
func stepTimeout(cfg *store.Config) time.Duration {
	total := cfg.Exchange.TimeoutSeconds*3 + cfg.AI.TimeoutSeconds*3
	if total <= 0 {
		total = 120
	}
	return time.Duration(total) * time.Second
}
