package indicators

import (
	"fmt"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// MACD moving average convergence divergence. The line is the difference
// of the fast and slow EMAs, the signal line an EMA of the line itself.
// Strength builds from histogram magnitude with crossover and widening
// bonuses.
type MACD struct {
	name         string
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		name:         fmt.Sprintf("MACD_%d_%d_%d", fast, slow, signal),
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string { return m.name }

func (m *MACD) Category() domain.IndicatorCategory { return domain.CategoryMomentum }

func (m *MACD) MinCandles() int { return m.slowPeriod + m.signalPeriod }

func (m *MACD) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(m.name, candles, m.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	closes := closeSeries(candles)
	macdLine, signalLine := m.lines(closes)

	n := len(signalLine)
	macdTail := macdLine[len(macdLine)-n:]

	macd, signal := macdTail[n-1], signalLine[n-1]
	histogram := macd - signal
	prevMacd, prevSignal := macdTail[n-2], signalLine[n-2]

	strength := min(abs(histogram)*100, 100)
	if crossedOver(macd, signal, prevMacd, prevSignal) {
		strength += 20
	}
	if abs(macd-signal) > abs(prevMacd-prevSignal) {
		strength += 10
	}

	direction := domain.TrendNeutral
	switch {
	case macd > signal && histogram > 0:
		direction = domain.TrendBullish
	case macd < signal && histogram < 0:
		direction = domain.TrendBearish
	}

	return domain.IndicatorResult{
		Name:      m.name,
		Category:  domain.CategoryMomentum,
		Value:     macd,
		Strength:  min(strength, 100),
		Direction: direction,
	}, nil
}

// lines returns the MACD and signal series, both aligned to the tail of
// the close series.
func (m *MACD) lines(closes []float64) ([]float64, []float64) {
	fast := emaSeries(closes, m.fastPeriod)
	slow := emaSeries(closes, m.slowPeriod)

	n := len(slow)
	fastTail := fast[len(fast)-n:]

	macdLine := make([]float64, n)
	for i := range macdLine {
		macdLine[i] = fastTail[i] - slow[i]
	}

	return macdLine, emaSeries(macdLine, m.signalPeriod)
}

func crossedOver(a, b, prevA, prevB float64) bool {
	return (a > b && prevA <= prevB) || (a < b && prevA >= prevB)
}
