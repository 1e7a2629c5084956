package indicators

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// BollingerBands simple moving average envelope at a fixed number of
// population standard deviations. Strength builds from the price position
// inside the bands with bounce and breakout bonuses.
type BollingerBands struct {
	name   string
	period int
	stdDev float64
	logger *zap.Logger
}

func NewBollingerBands(period int, stdDev float64, logger *zap.Logger) *BollingerBands {
	return &BollingerBands{
		name:   fmt.Sprintf("BB_%d", period),
		period: period,
		stdDev: stdDev,
		logger: logger,
	}
}

func (b *BollingerBands) Name() string { return b.name }

func (b *BollingerBands) Category() domain.IndicatorCategory { return domain.CategoryTrend }

func (b *BollingerBands) MinCandles() int { return b.period }

func (b *BollingerBands) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(b.name, candles, b.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	closes := closeSeries(candles)
	upper, middle, lower := b.bands(closes)

	n := len(middle)
	price := closes[len(closes)-1]
	prevPrice := price
	if len(closes) > 1 {
		prevPrice = closes[len(closes)-2]
	}

	position := bandPosition(price, upper[n-1], lower[n-1])

	if b.squeeze(upper, lower) {
		b.logger.Debug("bollinger bands squeeze", zap.String("indicator", b.name))
	}

	return domain.IndicatorResult{
		Name:      b.name,
		Category:  domain.CategoryTrend,
		Value:     middle[n-1],
		Strength:  bollingerStrength(price, prevPrice, upper[n-1], lower[n-1], position),
		Direction: bollingerDirection(price, prevPrice, upper[n-1], middle[n-1], lower[n-1], position),
	}, nil
}

// bands computes the upper, middle and lower band series. The middle band
// is the SMA, the deviation the population standard deviation of each
// window.
func (b *BollingerBands) bands(closes []float64) ([]float64, []float64, []float64) {
	middle := smaSeries(closes, b.period)

	offset := len(closes) - len(middle)
	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))

	for i := range middle {
		window := closes[offset+i+1-b.period : offset+i+1]
		dev := b.stdDev * stddev(window)
		upper[i] = middle[i] + dev
		lower[i] = middle[i] - dev
	}

	return upper, middle, lower
}

// bandPosition places price inside the bands on a [0, 1] scale. A
// degenerate band maps to the middle.
func bandPosition(price, upper, lower float64) float64 {
	if upper == lower {
		return 0.5
	}
	return (price - lower) / (upper - lower)
}

func bollingerStrength(price, prevPrice, upper, lower, position float64) float64 {
	var strength float64
	switch {
	case position > 0.95 || position < 0.05:
		strength = 80
	case position > 0.8 || position < 0.2:
		strength = 60
	default:
		strength = 30
	}

	if (position > 0.9 && price < prevPrice) || (position < 0.1 && price > prevPrice) {
		strength += 20
	}
	if (prevPrice <= upper && price > upper) || (prevPrice >= lower && price < lower) {
		strength += 30
	}

	return min(strength, 100)
}

func bollingerDirection(price, prevPrice, upper, middle, lower, position float64) domain.TrendDirection {
	switch {
	case position < 0.1 && price > prevPrice:
		return domain.TrendBullish // bounce off the lower band
	case position > 0.9 && price < prevPrice:
		return domain.TrendBearish // bounce off the upper band
	case prevPrice <= upper && price > upper:
		return domain.TrendBullish // breakout above
	case prevPrice >= lower && price < lower:
		return domain.TrendBearish // breakdown below
	case price > middle:
		return domain.TrendBullish
	case price < middle:
		return domain.TrendBearish
	default:
		return domain.TrendNeutral
	}
}

// squeeze reports whether the band width has been non-increasing over the
// last five values.
func (b *BollingerBands) squeeze(upper, lower []float64) bool {
	if len(upper) < 5 {
		return false
	}

	widths := make([]float64, 5)
	for i := range widths {
		idx := len(upper) - 5 + i
		widths[i] = upper[idx] - lower[idx]
	}
	for i := 1; i < len(widths); i++ {
		if widths[i] > widths[i-1] {
			return false
		}
	}
	return true
}
