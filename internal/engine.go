package internal

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/config"
	"github.com/chainpulse/chainpulse/internal/domain"
	"github.com/chainpulse/chainpulse/internal/notifier"
	"github.com/chainpulse/chainpulse/internal/services/indicators"
	"github.com/chainpulse/chainpulse/internal/services/market"
	"github.com/chainpulse/chainpulse/internal/services/signal"
	"github.com/chainpulse/chainpulse/internal/services/tracker"
)

// Collector supplies market data for the analysis cycle.
type Collector interface {
	Initialize(ctx context.Context) error
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	Close() error
}

// PulseEngine runs the analysis cycle: collect snapshots, derive market
// context, compute indicators, generate signals and track the open ones.
type PulseEngine struct {
	cfg       config.Config
	logger    *zap.Logger
	collector Collector
	analyzer  *market.Analyzer
	engine    *indicators.Engine
	generator *signal.Generator
	tracker   *tracker.Tracker
	storage   tracker.Storage
	notifier  notifier.Notifier
}

func NewPulseEngine(
	cfg config.Config,
	logger *zap.Logger,
	collector Collector,
	storage tracker.Storage,
	sink notifier.Notifier,
) *PulseEngine {
	return &PulseEngine{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		analyzer:  market.NewAnalyzer(logger),
		engine:    indicators.NewEngine(cfg.Indicators, logger),
		generator: signal.NewGenerator(cfg, logger),
		tracker:   tracker.NewTracker(storage, logger),
		storage:   storage,
		notifier:  sink,
	}
}

// Restore reloads active signals from storage into the tracker.
func (e *PulseEngine) Restore() error {
	active, err := e.storage.ActiveSignals()
	if err != nil {
		return errors.Wrap(err, "load active signals")
	}

	e.tracker.Restore(active)
	if len(active) > 0 {
		e.logger.Info("restored active signals", zap.Int("count", len(active)))
	}
	return nil
}

// Run initializes the collector and executes analysis cycles until the
// context is cancelled. Cycle failures never terminate the loop.
func (e *PulseEngine) Run(ctx context.Context) error {
	if err := e.collector.Initialize(ctx); err != nil {
		return errors.Wrap(err, "initialize collector")
	}

	if err := e.Restore(); err != nil {
		return err
	}

	e.logger.Info("starting analysis loop",
		zap.Strings("symbols", e.cfg.Symbols),
		zap.Duration("interval", e.cfg.AnalysisInterval))

	ticker := time.NewTicker(e.cfg.AnalysisInterval)
	defer ticker.Stop()

	e.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("context done, stopping analysis loop")
			return ctx.Err()
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

func (e *PulseEngine) runCycle(ctx context.Context) {
	started := time.Now()

	snapshots := e.collectSnapshots(ctx)
	if ctx.Err() != nil {
		return
	}

	marketCtx := e.analyzer.Analyze(snapshots)

	var generated, failed int
	prices := make(map[string]decimal.Decimal, len(snapshots))
	for _, snapshot := range snapshots {
		prices[snapshot.Symbol] = snapshot.Price

		if ctx.Err() != nil {
			return
		}
		if sig := e.analyzeSymbol(ctx, snapshot, marketCtx); sig != nil {
			e.emit(ctx, *sig)
			generated++
		}
	}
	failed = len(e.cfg.Symbols) - len(snapshots)

	events := e.tracker.UpdatePrices(prices)
	for _, event := range events {
		if err := e.notifier.SendMessage(ctx, event.Message); err != nil {
			e.logger.Warn("tracking notification failed", zap.Error(err))
		}
	}

	e.logger.Info("analysis cycle complete",
		zap.Int("analyzed", len(snapshots)),
		zap.Int("failed", failed),
		zap.Int("signals", generated),
		zap.Int("tracking_events", len(events)),
		zap.Int("active_signals", e.tracker.ActiveCount()),
		zap.Duration("took", time.Since(started)))
}

// collectSnapshots fetches snapshots for all configured symbols
// concurrently. Symbols whose sources all fail are skipped this cycle.
func (e *PulseEngine) collectSnapshots(ctx context.Context) []domain.MarketSnapshot {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		snapshots []domain.MarketSnapshot
	)

	for _, symbol := range e.cfg.Symbols {
		wg.Add(1)
		gopool.Go(func() {
			defer wg.Done()

			reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
			defer cancel()

			snapshot, err := e.collector.Snapshot(reqCtx, symbol)
			if err != nil {
				e.logger.Warn("snapshot collection failed",
					zap.String("symbol", symbol), zap.Error(err))
				return
			}

			mu.Lock()
			snapshots = append(snapshots, snapshot)
			mu.Unlock()
		})
	}
	wg.Wait()

	return snapshots
}

func (e *PulseEngine) analyzeSymbol(
	ctx context.Context,
	snapshot domain.MarketSnapshot,
	marketCtx domain.MarketContext,
) *domain.Signal {
	reqCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()

	candles, err := e.collector.Candles(reqCtx, snapshot.Symbol, e.cfg.CandleInterval, e.cfg.CandleLimit)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			e.logger.Debug("not enough history yet", zap.String("symbol", snapshot.Symbol))
		} else {
			e.logger.Warn("candle collection failed",
				zap.String("symbol", snapshot.Symbol), zap.Error(err))
		}
		return nil
	}

	_, composite := e.engine.Analyze(snapshot.Symbol, candles)

	return e.generator.Generate(snapshot, composite, marketCtx, averageVolume(candles))
}

// emit persists the signal, announces it and hands it to the tracker.
// Persistence and delivery failures are logged, never fatal. Signals the
// tracker drops during arbitration are cancelled in storage so a restart
// does not resurrect them.
func (e *PulseEngine) emit(ctx context.Context, sig domain.Signal) {
	if err := e.storage.SaveSignal(sig); err != nil {
		e.logger.Error("persist signal failed",
			zap.String("id", sig.ID), zap.Error(err))
	}
	if err := e.notifier.SendSignal(ctx, sig); err != nil {
		e.logger.Warn("signal notification failed",
			zap.String("id", sig.ID), zap.Error(err))
	}

	if !e.tracker.AddSignal(sig) {
		if err := e.storage.MarkSignalClosed(sig.ID, "SUPERSEDED"); err != nil {
			e.logger.Warn("cancel dropped signal failed",
				zap.String("id", sig.ID), zap.Error(err))
		}
	}
}

func averageVolume(candles []domain.Candle) decimal.Decimal {
	if len(candles) == 0 {
		return decimal.Zero
	}

	sum := decimal.Zero
	for _, c := range candles {
		sum = sum.Add(c.Volume)
	}
	return sum.Div(decimal.NewFromInt(int64(len(candles))))
}
