package indicators

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// Divergence between price movement and RSI movement over the recent
// window.
type Divergence string

const (
	DivergenceNone    Divergence = "NONE"
	DivergenceBullish Divergence = "BULLISH_DIVERGENCE"
	DivergenceBearish Divergence = "BEARISH_DIVERGENCE"
)

// RSI Wilder-smoothed relative strength index. Extreme readings dominate
// the strength model, otherwise momentum and distance from the neutral 50
// combine.
type RSI struct {
	name   string
	period int
	logger *zap.Logger
}

func NewRSI(period int, logger *zap.Logger) *RSI {
	return &RSI{name: fmt.Sprintf("RSI_%d", period), period: period, logger: logger}
}

func (r *RSI) Name() string { return r.name }

func (r *RSI) Category() domain.IndicatorCategory { return domain.CategoryMomentum }

func (r *RSI) MinCandles() int { return r.period + 1 }

func (r *RSI) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(r.name, candles, r.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	closes := closeSeries(candles)
	rsi := rsiSeries(closes, r.period)
	current := rsi[len(rsi)-1]

	if div := detectDivergence(tail(closes, 10), tail(rsi, 10)); div != DivergenceNone {
		r.logger.Debug("rsi divergence detected",
			zap.String("indicator", r.name), zap.String("divergence", string(div)))
	}

	direction := domain.TrendNeutral
	switch {
	case current > 50:
		direction = domain.TrendBullish
	case current < 50:
		direction = domain.TrendBearish
	}

	return domain.IndicatorResult{
		Name:      r.name,
		Category:  domain.CategoryMomentum,
		Value:     current,
		Strength:  rsiStrength(rsi),
		Direction: direction,
	}, nil
}

func rsiStrength(series []float64) float64 {
	current := series[len(series)-1]

	switch {
	case current > 80 || current < 20:
		return 90
	case current > 70 || current < 30:
		return 75
	}

	if len(series) >= 4 {
		recent := tail(series, 4)
		momentumStrength := min(abs(recent[len(recent)-1]-recent[0])*2, 60)
		distanceStrength := abs(current-50) * 1.2
		return min(momentumStrength+distanceStrength, 100)
	}

	return abs(current-50) * 1.5
}

// detectDivergence compares price movement against RSI movement over the
// given window. Opposite signs indicate a divergence.
func detectDivergence(prices, rsi []float64) Divergence {
	if len(prices) < 4 || len(rsi) < 4 {
		return DivergenceNone
	}

	priceTrend := prices[len(prices)-1] - prices[0]
	rsiTrend := rsi[len(rsi)-1] - rsi[0]

	switch {
	case priceTrend > 0 && rsiTrend < 0:
		return DivergenceBearish
	case priceTrend < 0 && rsiTrend > 0:
		return DivergenceBullish
	default:
		return DivergenceNone
	}
}
