package signal

import (
	"fmt"
	"strings"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// buildReasoning produces the human-readable explanation attached to a
// signal.
func buildReasoning(bias domain.Bias, contributing []string, marketCtx domain.MarketContext) string {
	var parts []string

	switch bias {
	case domain.BiasStrongBullish:
		parts = append(parts, "Strong bullish momentum detected")
	case domain.BiasBullish:
		parts = append(parts, "Bullish signals emerging")
	case domain.BiasStrongBearish:
		parts = append(parts, "Strong bearish pressure identified")
	case domain.BiasBearish:
		parts = append(parts, "Bearish indicators aligning")
	}

	switch marketCtx.OverallTrend {
	case domain.TrendBullish:
		parts = append(parts, "supported by upward market trend")
	case domain.TrendBearish:
		parts = append(parts, "confirmed by downward market trend")
	}

	if len(contributing) > 0 {
		key := contributing
		if len(key) > 2 {
			key = key[:2]
		}
		parts = append(parts, fmt.Sprintf("with %s showing strength", strings.Join(key, ", ")))
	}

	switch marketCtx.VolatilityLevel {
	case domain.VolatilityLow, domain.VolatilityVeryLow:
		parts = append(parts, "in stable market conditions")
	case domain.VolatilityHigh, domain.VolatilityVeryHigh:
		parts = append(parts, "despite elevated volatility")
	}

	if len(parts) == 0 {
		return "Technical analysis indicates trading opportunity."
	}

	return strings.Join(parts, ". ") + "."
}

// determineDuration hints how long the signal is expected to stay
// relevant.
func determineDuration(marketCtx domain.MarketContext) string {
	volatile := marketCtx.VolatilityLevel == domain.VolatilityHigh ||
		marketCtx.VolatilityLevel == domain.VolatilityVeryHigh
	calm := marketCtx.VolatilityLevel == domain.VolatilityLow ||
		marketCtx.VolatilityLevel == domain.VolatilityVeryLow

	switch {
	case marketCtx.TrendStrength >= 0.75 && calm:
		return "LONG"
	case volatile:
		return "SHORT"
	default:
		return "MEDIUM"
	}
}

// regimeFor maps the aggregate context onto the coarse regime recorded on
// the signal.
func regimeFor(marketCtx domain.MarketContext) domain.Regime {
	switch {
	case marketCtx.OverallTrend == domain.TrendBullish:
		return domain.RegimeTrendingUp
	case marketCtx.OverallTrend == domain.TrendBearish:
		return domain.RegimeTrendingDown
	case marketCtx.VolatilityLevel == domain.VolatilityHigh || marketCtx.VolatilityLevel == domain.VolatilityVeryHigh:
		return domain.RegimeVolatile
	default:
		return domain.RegimeSideways
	}
}
