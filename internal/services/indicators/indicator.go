// Package indicators computes technical indicators over candle series and
// blends their per-indicator strengths into a weighted composite score.
package indicators

import (
	"github.com/pkg/errors"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// Indicator computes one technical indicator over a candle series.
type Indicator interface {
	// Name returns the registry name, e.g. "SMA_20".
	Name() string
	Category() domain.IndicatorCategory
	// MinCandles is the minimum series length Compute accepts.
	MinCandles() int
	// Compute derives the indicator result. The candle series must be
	// ascending by timestamp.
	Compute(candles []domain.Candle) (domain.IndicatorResult, error)
}

func checkSeries(name string, candles []domain.Candle, minCandles int) error {
	if len(candles) < minCandles {
		return errors.Wrapf(domain.ErrInsufficientData,
			"%s needs %d candles, got %d", name, minCandles, len(candles))
	}
	return nil
}
