package domain

// VolatilityLevel banded market volatility.
type VolatilityLevel string

const (
	VolatilityVeryLow  VolatilityLevel = "VERY_LOW"
	VolatilityLow      VolatilityLevel = "LOW"
	VolatilityMedium   VolatilityLevel = "MEDIUM"
	VolatilityHigh     VolatilityLevel = "HIGH"
	VolatilityVeryHigh VolatilityLevel = "VERY_HIGH"
)

// VolumeProfile banded 24h traded volume.
type VolumeProfile string

const (
	VolumeHigh   VolumeProfile = "HIGH"
	VolumeMedium VolumeProfile = "MEDIUM"
	VolumeLow    VolumeProfile = "LOW"
)

// MarketContext aggregate market regime for one analysis cycle, shared by
// every symbol analyzed in that cycle.
type MarketContext struct {
	// OverallTrend plurality trend vote across symbols.
	OverallTrend TrendDirection
	// TrendStrength share of symbols voting for the winning trend, [0, 1].
	TrendStrength float64
	// MarketVolatility mean per-symbol 24h range volatility, percent.
	MarketVolatility float64
	// VolatilityLevel band of MarketVolatility.
	VolatilityLevel VolatilityLevel
	// MarketMomentum mean per-symbol momentum score.
	MarketMomentum float64
	// AnalyzedSymbols how many symbols contributed.
	AnalyzedSymbols int
	// Confidence aggregate confidence, min(0.9, TrendStrength+0.1).
	Confidence float64
}

// SymbolContext per-symbol analysis feeding the aggregate context.
type SymbolContext struct {
	Symbol          string
	Volatility      float64
	VolatilityLevel VolatilityLevel
	Trend           TrendDirection
	Momentum        float64
	VolumeProfile   VolumeProfile
	// Support and Resistance sit 20% inside the 24h range bounds.
	Support    float64
	Resistance float64
}

// Regime coarse market regime attached to an emitted signal.
type Regime string

const (
	RegimeTrendingUp   Regime = "TRENDING_UP"
	RegimeTrendingDown Regime = "TRENDING_DOWN"
	RegimeVolatile     Regime = "VOLATILE"
	RegimeSideways     Regime = "SIDEWAYS"
)
