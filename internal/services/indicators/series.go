package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"

	"github.com/chainpulse/chainpulse/internal/domain"
)

func closeSeries(candles []domain.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
	}
	return closes
}

func highSeries(candles []domain.Candle) []float64 {
	highs := make([]float64, len(candles))
	for i, c := range candles {
		highs[i] = c.High.InexactFloat64()
	}
	return highs
}

func lowSeries(candles []domain.Candle) []float64 {
	lows := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low.InexactFloat64()
	}
	return lows
}

func smaSeries(values []float64, period int) []float64 {
	sma := trend.NewSmaWithPeriod[float64](period)
	return helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))
}

func emaSeries(values []float64, period int) []float64 {
	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(values)))
}

func rsiSeries(values []float64, period int) []float64 {
	rsi := momentum.NewRsiWithPeriod[float64](period)
	series := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(values)))
	// flat input yields 0/0, treat it as no losses
	for i, v := range series {
		if math.IsNaN(v) {
			series[i] = 100
		}
	}
	return series
}

// pctSlopes returns consecutive percent changes of a series.
func pctSlopes(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	slopes := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		slopes = append(slopes, (values[i]-values[i-1])/values[i-1]*100)
	}
	return slopes
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
