package indicators

import (
	"fmt"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// Stochastic oscillator. %K places the close inside the rolling high/low
// range, %D smooths %K. Strength builds from range position with
// crossover and widening bonuses.
type Stochastic struct {
	name    string
	kPeriod int
	dPeriod int
}

func NewStochastic(kPeriod, dPeriod int) *Stochastic {
	return &Stochastic{
		name:    fmt.Sprintf("STOCH_%d_%d", kPeriod, dPeriod),
		kPeriod: kPeriod,
		dPeriod: dPeriod,
	}
}

func (s *Stochastic) Name() string { return s.name }

func (s *Stochastic) Category() domain.IndicatorCategory { return domain.CategoryMomentum }

func (s *Stochastic) MinCandles() int { return s.kPeriod + s.dPeriod }

func (s *Stochastic) Compute(candles []domain.Candle) (domain.IndicatorResult, error) {
	if err := checkSeries(s.name, candles, s.MinCandles()); err != nil {
		return domain.IndicatorResult{}, err
	}

	kValues := s.kSeries(highSeries(candles), lowSeries(candles), closeSeries(candles))
	dValues := smaSeries(kValues, s.dPeriod)

	k, d := kValues[len(kValues)-1], dValues[len(dValues)-1]
	prevK, prevD := k, d
	if len(kValues) > 1 {
		prevK = kValues[len(kValues)-2]
	}
	if len(dValues) > 1 {
		prevD = dValues[len(dValues)-2]
	}

	var strength float64
	switch {
	case k > 80 || k < 20:
		strength = 80
	case k > 70 || k < 30:
		strength = 60
	case k > 60 || k < 40:
		strength = 40
	default:
		strength = 20
	}
	if crossedOver(k, d, prevK, prevD) {
		strength += 20
	}
	if abs(k-d) > abs(prevK-prevD) {
		strength += 10
	}

	direction := domain.TrendNeutral
	switch {
	case k > d:
		direction = domain.TrendBullish
	case k < d:
		direction = domain.TrendBearish
	}

	return domain.IndicatorResult{
		Name:      s.name,
		Category:  domain.CategoryMomentum,
		Value:     k,
		Strength:  min(strength, 100),
		Direction: direction,
	}, nil
}

// kSeries computes raw %K values. A flat window maps to the neutral 50.
func (s *Stochastic) kSeries(highs, lows, closes []float64) []float64 {
	kValues := make([]float64, 0, len(closes)-s.kPeriod+1)

	for i := s.kPeriod - 1; i < len(closes); i++ {
		highest := highs[i-s.kPeriod+1]
		lowest := lows[i-s.kPeriod+1]
		for j := i - s.kPeriod + 2; j <= i; j++ {
			if highs[j] > highest {
				highest = highs[j]
			}
			if lows[j] < lowest {
				lowest = lows[j]
			}
		}

		if highest == lowest {
			kValues = append(kValues, 50)
			continue
		}
		kValues = append(kValues, (closes[i]-lowest)/(highest-lowest)*100)
	}

	return kValues
}
