// Command chainpulse runs the market signal pipeline. It collects market
// data from multiple sources with automatic failover, computes technical
// indicators and generates tracked trading signals.
//
// Usage:
//
//	chainpulse --config config.yaml
//	chainpulse (uses built-in defaults)
//
// Binance API credentials are optional for public market data; when
// present they are read from BINANCE_API_KEY and BINANCE_API_SECRET.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/adshao/go-binance/v2"
	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/config"
	"github.com/chainpulse/chainpulse/internal"
	"github.com/chainpulse/chainpulse/internal/notifier"
	"github.com/chainpulse/chainpulse/internal/services/collector"
	"github.com/chainpulse/chainpulse/internal/storage/signals"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		logger.Fatal("source configuration invalid", zap.Error(err))
	}

	store, err := signals.NewWALStore(cfg.WALDir)
	if err != nil {
		logger.Fatal("signal storage unavailable", zap.Error(err))
	}
	defer store.Close()

	multi := collector.NewMultiSourceCollector(logger, adapters...)
	engine := internal.NewPulseEngine(cfg, logger, multi, store, notifier.NewLogNotifier(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("engine stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildAdapters(cfg config.Config, logger *zap.Logger) ([]collector.SourceAdapter, error) {
	adapters := make([]collector.SourceAdapter, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		switch name {
		case "binance":
			client := binance.NewClient(os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))
			adapters = append(adapters, collector.NewBinanceAdapter(client, logger))
		case "bybit":
			adapters = append(adapters, collector.NewBybitAdapter(bybit.NewClient(), logger))
		case "coincap":
			adapters = append(adapters, collector.NewCoinCapAdapter(cfg.RequestTimeout, logger))
		case "coingecko":
			adapters = append(adapters, collector.NewCoinGeckoAdapter(cfg.RequestTimeout, logger))
		case "cryptocompare":
			adapters = append(adapters, collector.NewCryptoCompareAdapter(cfg.RequestTimeout, logger))
		default:
			return nil, errors.Errorf("unknown market data source: %s", name)
		}
	}
	return adapters, nil
}
