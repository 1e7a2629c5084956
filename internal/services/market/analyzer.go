// Package market derives the aggregate market context that conditions
// signal generation: the trend, volatility and momentum picture across
// all analyzed symbols.
package market

import (
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

const (
	trendChangeThreshold = 2.0

	volumeHighThreshold   = 1_000_000
	volumeMediumThreshold = 100_000

	momentumVolumeScale = 1_000_000
)

// Analyzer aggregates per-symbol snapshots into a MarketContext.
type Analyzer struct {
	logger *zap.Logger
}

func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze builds the aggregate context from the snapshots of one
// collection cycle. With no snapshots it returns a neutral default.
func (a *Analyzer) Analyze(snapshots []domain.MarketSnapshot) domain.MarketContext {
	if len(snapshots) == 0 {
		a.logger.Warn("no snapshots for market context analysis, using neutral default")
		return defaultContext()
	}

	trendVotes := map[domain.TrendDirection]int{}
	var volatilitySum, momentumSum float64

	for _, s := range snapshots {
		symbolCtx := a.AnalyzeSymbol(s)
		trendVotes[symbolCtx.Trend]++
		volatilitySum += symbolCtx.Volatility
		momentumSum += symbolCtx.Momentum

		a.logger.Debug("symbol context",
			zap.String("symbol", s.Symbol),
			zap.String("trend", string(symbolCtx.Trend)),
			zap.Float64("volatility", symbolCtx.Volatility))
	}

	total := len(snapshots)
	overallTrend := winningTrend(trendVotes)
	trendStrength := float64(trendVotes[overallTrend]) / float64(total)
	avgVolatility := volatilitySum / float64(total)

	return domain.MarketContext{
		OverallTrend:     overallTrend,
		TrendStrength:    trendStrength,
		MarketVolatility: avgVolatility,
		VolatilityLevel:  categorizeVolatility(avgVolatility),
		MarketMomentum:   momentumSum / float64(total),
		AnalyzedSymbols:  total,
		Confidence:       min(0.9, trendStrength+0.1),
	}
}

// AnalyzeSymbol derives the per-symbol context from one snapshot.
func (a *Analyzer) AnalyzeSymbol(s domain.MarketSnapshot) domain.SymbolContext {
	price := s.Price.InexactFloat64()
	high := s.High24h.InexactFloat64()
	low := s.Low24h.InexactFloat64()
	volume := s.Volume.InexactFloat64()

	volatility := calculateVolatility(high, low, price)
	support, resistance := supportResistance(high, low)

	return domain.SymbolContext{
		Symbol:          s.Symbol,
		Volatility:      volatility,
		VolatilityLevel: categorizeVolatility(volatility),
		Trend:           determineTrend(s.Change24h),
		Momentum:        calculateMomentum(s.Change24h, volume),
		VolumeProfile:   analyzeVolume(volume),
		Support:         support,
		Resistance:      resistance,
	}
}

// calculateVolatility expresses the 24h range as a percentage of the
// current price.
func calculateVolatility(high, low, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return (high - low) / price * 100
}

func determineTrend(change24h float64) domain.TrendDirection {
	switch {
	case change24h > trendChangeThreshold:
		return domain.TrendBullish
	case change24h < -trendChangeThreshold:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

func calculateMomentum(change24h, volume float64) float64 {
	if change24h < 0 {
		change24h = -change24h
	}
	return change24h * (volume / momentumVolumeScale)
}

func analyzeVolume(volume float64) domain.VolumeProfile {
	switch {
	case volume > volumeHighThreshold:
		return domain.VolumeHigh
	case volume > volumeMediumThreshold:
		return domain.VolumeMedium
	default:
		return domain.VolumeLow
	}
}

func categorizeVolatility(volatility float64) domain.VolatilityLevel {
	switch {
	case volatility > 10:
		return domain.VolatilityVeryHigh
	case volatility > 5:
		return domain.VolatilityHigh
	case volatility > 2:
		return domain.VolatilityMedium
	case volatility > 1:
		return domain.VolatilityLow
	default:
		return domain.VolatilityVeryLow
	}
}

func supportResistance(high, low float64) (float64, float64) {
	rangeSize := high - low
	return low + rangeSize*0.2, high - rangeSize*0.2
}

// winningTrend picks the trend with the most votes, resolving ties in
// bullish, bearish, neutral order.
func winningTrend(votes map[domain.TrendDirection]int) domain.TrendDirection {
	winner := domain.TrendBullish
	for _, trend := range []domain.TrendDirection{domain.TrendBearish, domain.TrendNeutral} {
		if votes[trend] > votes[winner] {
			winner = trend
		}
	}
	return winner
}

func defaultContext() domain.MarketContext {
	return domain.MarketContext{
		OverallTrend:    domain.TrendNeutral,
		VolatilityLevel: domain.VolatilityVeryLow,
	}
}
