package signal

import (
	"github.com/shopspring/decimal"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// Base exit distances in percent, scaled by the volatility and trend
// multipliers. The stop loss is softened to keep losses cut sooner than
// profits are taken.
var (
	baseTPPercents = [3]float64{1.5, 3.0, 5.0}
	baseSLPercent  = 1.0
	slSoftening    = 0.8
	percentDivisor = decimal.NewFromInt(100)
	one            = decimal.NewFromInt(1)
)

type exitLevels struct {
	tp1      decimal.Decimal
	tp2      decimal.Decimal
	tp3      decimal.Decimal
	stopLoss decimal.Decimal
}

// computeLevels derives the TP ladder and stop loss from the entry price,
// widened in volatile or strongly trending markets and tightened in calm
// ones.
func computeLevels(entry decimal.Decimal, direction domain.Direction, marketCtx domain.MarketContext) exitLevels {
	volMult := volatilityMultiplier(marketCtx.VolatilityLevel)
	trendMult := trendMultiplier(marketCtx.TrendStrength)

	tp := [3]decimal.Decimal{}
	for i, base := range baseTPPercents {
		tp[i] = offset(entry, base*volMult*trendMult, direction == domain.DirectionBuy)
	}
	sl := offset(entry, baseSLPercent*volMult*slSoftening, direction != domain.DirectionBuy)

	return exitLevels{tp1: tp[0], tp2: tp[1], tp3: tp[2], stopLoss: sl}
}

// offset moves entry by pct percent, up when above is true.
func offset(entry decimal.Decimal, pct float64, above bool) decimal.Decimal {
	delta := decimal.NewFromFloat(pct).Div(percentDivisor)
	if above {
		return entry.Mul(one.Add(delta))
	}
	return entry.Mul(one.Sub(delta))
}

func volatilityMultiplier(level domain.VolatilityLevel) float64 {
	switch level {
	case domain.VolatilityVeryLow, domain.VolatilityLow:
		return 0.7
	case domain.VolatilityHigh:
		return 1.5
	case domain.VolatilityVeryHigh:
		return 2.0
	default:
		return 1.0
	}
}

func trendMultiplier(strength float64) float64 {
	switch {
	case strength >= 0.75:
		return 1.3
	case strength >= 0.45:
		return 1.0
	default:
		return 0.8
	}
}

// riskReward is the TP1 distance over the stop-loss distance. Zero when
// the stop loss sits on the wrong side of entry.
func riskReward(entry decimal.Decimal, levels exitLevels, direction domain.Direction) float64 {
	profit := levels.tp1.Sub(entry)
	loss := entry.Sub(levels.stopLoss)
	if direction == domain.DirectionSell {
		profit = entry.Sub(levels.tp1)
		loss = levels.stopLoss.Sub(entry)
	}

	if loss.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	rr, _ := profit.Div(loss).Float64()
	if rr < 0 {
		return 0
	}
	return rr
}
