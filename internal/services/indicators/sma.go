package indicators

import (
	"fmt"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// SMA simple moving average with a slope-and-consistency strength model.
type SMA struct {
	name   string
	period int
}

func NewSMA(period int) *SMA {
	return &SMA{name: fmt.Sprintf("SMA_%d", period), period: period}
}

func (s *SMA) Name() string { return s.name }

func (s *SMA) Category() domain.IndicatorCategory { return domain.CategoryTrend }

func (s *SMA) MinCandles() int { return s.period }

func (s *SMA) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(s.name, candles, s.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	closes := closeSeries(candles)
	sma := smaSeries(closes, s.period)

	current := sma[len(sma)-1]
	price := closes[len(closes)-1]

	direction := domain.TrendBullish
	if price <= current {
		direction = domain.TrendBearish
	}

	return domain.IndicatorResult{
		Name:      s.name,
		Category:  domain.CategoryTrend,
		Value:     current,
		Strength:  slopeConsistencyStrength(sma),
		Direction: direction,
	}, nil
}

// slopeConsistencyStrength scores a moving average by the magnitude of its
// recent slope and how consistent the slope is over the last six values.
func slopeConsistencyStrength(series []float64) float64 {
	if len(series) < 4 {
		return 50
	}

	slopes := pctSlopes(tail(series, 6))
	avgSlope := mean(slopes)
	consistency := max(0, 100-stddev(slopes)*10)
	slopeStrength := min(abs(avgSlope)*20, 100)

	return min(slopeStrength*0.7+consistency*0.3, 100)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
