package indicators

import (
	"fmt"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// EMA exponential moving average, seeded with the simple average of the
// first period. Strength comes from slope magnitude plus an acceleration
// bonus when the slope keeps steepening in the same direction.
type EMA struct {
	name   string
	period int
}

func NewEMA(period int) *EMA {
	return &EMA{name: fmt.Sprintf("EMA_%d", period), period: period}
}

func (e *EMA) Name() string { return e.name }

func (e *EMA) Category() domain.IndicatorCategory { return domain.CategoryTrend }

func (e *EMA) MinCandles() int { return e.period }

func (e *EMA) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(e.name, candles, e.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	closes := closeSeries(candles)
	ema := emaSeries(closes, e.period)

	current := ema[len(ema)-1]
	price := closes[len(closes)-1]

	direction := domain.TrendBullish
	if price <= current {
		direction = domain.TrendBearish
	}

	return domain.IndicatorResult{
		Name:      e.name,
		Category:  domain.CategoryTrend,
		Value:     current,
		Strength:  slopeAccelerationStrength(ema),
		Direction: direction,
	}, nil
}

func slopeAccelerationStrength(series []float64) float64 {
	if len(series) < 4 {
		return 50
	}

	slopes := pctSlopes(tail(series, 4))
	currentSlope := slopes[len(slopes)-1]
	acceleration := slopes[len(slopes)-1] - slopes[len(slopes)-2]

	strength := min(abs(currentSlope)*25, 80)
	if (currentSlope > 0 && acceleration > 0) || (currentSlope < 0 && acceleration < 0) {
		strength += 20
	}

	return min(strength, 100)
}
