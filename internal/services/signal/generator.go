// Package signal turns composite indicator scores into directional
// trading signals with dynamic exit levels, under hourly and per-symbol
// rate limits.
package signal

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/config"
	"github.com/chainpulse/chainpulse/internal/domain"
)

const (
	symbolCooldown = 5 * time.Minute
	rateWindow     = time.Hour

	// strongTrendStrength marks a decisive plurality vote across symbols.
	strongTrendStrength = 0.75
)

// Generator emits at most one signal per symbol per cycle. It keeps the
// trailing-hour emission log and per-symbol cooldowns in memory.
type Generator struct {
	cfg    config.Config
	logger *zap.Logger

	mu        sync.Mutex
	emitted   []time.Time
	cooldowns map[string]time.Time

	now func() time.Time
}

func NewGenerator(cfg config.Config, logger *zap.Logger) *Generator {
	return &Generator{
		cfg:       cfg,
		logger:    logger,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Generate evaluates one symbol and returns a signal or nil. avgVolume is
// the mean candle volume for the symbol; pass zero when unavailable to
// skip the volume adjustment.
func (g *Generator) Generate(
	snapshot domain.MarketSnapshot,
	composite domain.CompositeScore,
	marketCtx domain.MarketContext,
	avgVolume decimal.Decimal,
) *domain.Signal {
	symbol := snapshot.Symbol

	if !g.canGenerate() {
		g.logger.Info("hourly signal limit reached, skipping generation", zap.String("symbol", symbol))
		return nil
	}
	if !g.canGenerateFor(symbol) {
		g.logger.Debug("symbol in cooldown", zap.String("symbol", symbol))
		return nil
	}
	if snapshot.Price.LessThanOrEqual(decimal.Zero) {
		g.logger.Warn("invalid price, skipping symbol", zap.String("symbol", symbol))
		return nil
	}

	direction, baseConfidence, ok := decideDirection(composite)
	if !ok {
		g.logger.Debug("no clear signal direction",
			zap.String("symbol", symbol),
			zap.String("bias", string(composite.OverallBias)),
			zap.Float64("score", composite.OverallScore))
		return nil
	}

	confidence := g.adjustConfidence(baseConfidence, marketCtx, composite, snapshot.Volume, avgVolume)

	minConfidence := g.cfg.MinConfidence * 100
	if confidence < minConfidence {
		g.logger.Debug("confidence below threshold",
			zap.String("symbol", symbol),
			zap.Float64("confidence", confidence),
			zap.Float64("min_confidence", minConfidence))
		return nil
	}

	levels := computeLevels(snapshot.Price, direction, marketCtx)
	rr := riskReward(snapshot.Price, levels, direction)
	if rr < g.cfg.RiskRewardMin {
		g.logger.Debug("risk/reward below threshold",
			zap.String("symbol", symbol),
			zap.Float64("risk_reward", rr),
			zap.Float64("min_risk_reward", g.cfg.RiskRewardMin))
		return nil
	}

	now := g.now().UTC()
	sig := &domain.Signal{
		ID:                     domain.NewSignalID(symbol, direction, now),
		Symbol:                 symbol,
		Direction:              direction,
		EntryPrice:             snapshot.Price,
		CurrentPrice:           snapshot.Price,
		TP1:                    levels.tp1,
		TP2:                    levels.tp2,
		TP3:                    levels.tp3,
		StopLoss:               levels.stopLoss,
		Confidence:             confidence,
		RiskReward:             rr,
		Regime:                 regimeFor(marketCtx),
		ContributingIndicators: composite.ContributingIndicators,
		IndicatorScores:        composite.IndicatorScores,
		Reasoning:              buildReasoning(composite.OverallBias, composite.ContributingIndicators, marketCtx),
		ExpectedDuration:       determineDuration(marketCtx),
		Status:                 domain.StatusActive,
		CreatedAt:              now,
	}

	g.recordEmission(symbol, now)

	g.logger.Info("signal generated",
		zap.String("symbol", symbol),
		zap.String("direction", string(direction)),
		zap.String("entry_price", snapshot.Price.String()),
		zap.Float64("confidence", confidence),
		zap.Float64("risk_reward", rr))

	return sig
}

// decideDirection maps the composite bias and score to a signal side. A
// neutral bias still yields a signal on exceptionally high scores.
func decideDirection(composite domain.CompositeScore) (domain.Direction, float64, bool) {
	score := composite.OverallScore

	switch {
	case composite.OverallBias.Bullish() && score > 45:
		return domain.DirectionBuy, score, true

	case composite.OverallBias.Bearish() && score < 55:
		return domain.DirectionSell, 100 - score, true

	case composite.OverallBias == domain.BiasNeutral && score > 70:
		if score > 75 {
			return domain.DirectionBuy, score, true
		}
		return domain.DirectionSell, score, true
	}

	return "", 0, false
}

// adjustConfidence applies the market context adjustments to the base
// confidence and clamps the result to [0, 100].
func (g *Generator) adjustConfidence(
	base float64,
	marketCtx domain.MarketContext,
	composite domain.CompositeScore,
	volume, avgVolume decimal.Decimal,
) float64 {
	confidence := base

	if marketCtx.OverallTrend != domain.TrendNeutral {
		if marketCtx.TrendStrength >= strongTrendStrength {
			confidence += 10
		} else {
			confidence += 5
		}
	}

	switch marketCtx.VolatilityLevel {
	case domain.VolatilityLow, domain.VolatilityVeryLow:
		confidence += 5
	case domain.VolatilityHigh, domain.VolatilityVeryHigh:
		confidence -= 10
	}

	if avgVolume.IsPositive() {
		switch {
		case volume.GreaterThan(avgVolume.Mul(decimal.NewFromFloat(1.5))):
			confidence += 8
		case volume.LessThan(avgVolume.Mul(decimal.NewFromFloat(0.5))):
			confidence -= 5
		}
	}

	total := composite.TotalIndicators
	if total < 1 {
		total = 1
	}
	consensus := float64(len(composite.ContributingIndicators)) / float64(total)
	switch {
	case consensus > 0.6:
		confidence += 15
	case consensus > 0.4:
		confidence += 8
	case consensus > 0.2:
		confidence += 3
	}

	return max(0, min(100, confidence))
}

// canGenerate enforces the process-wide hourly emission limit.
func (g *Generator) canGenerate() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-rateWindow)
	kept := g.emitted[:0]
	for _, t := range g.emitted {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.emitted = kept

	return len(g.emitted) < g.cfg.MaxSignalsPerHour
}

// canGenerateFor enforces the per-symbol cooldown.
func (g *Generator) canGenerateFor(symbol string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.cooldowns[symbol]
	if !ok {
		return true
	}
	return g.now().Sub(last) >= symbolCooldown
}

func (g *Generator) recordEmission(symbol string, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.emitted = append(g.emitted, at)
	g.cooldowns[symbol] = at
}
