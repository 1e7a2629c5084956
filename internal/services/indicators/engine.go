package indicators

import (
	"sort"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/config"
	"github.com/chainpulse/chainpulse/internal/domain"
)

// contributionThreshold is the strength above which an indicator counts
// as contributing to a composite score.
const contributionThreshold = 45

// Engine evaluates a fixed indicator registry over a candle series and
// folds the results into a weighted composite score.
type Engine struct {
	logger     *zap.Logger
	indicators []Indicator
	weights    map[string]float64
}

// NewEngine builds the registry from configuration: two SMAs, two EMAs,
// Bollinger bands, RSI, MACD and the stochastic oscillator.
func NewEngine(cfg config.IndicatorConfig, logger *zap.Logger) *Engine {
	var registry []Indicator
	for _, period := range cfg.SMAPeriods {
		registry = append(registry, NewSMA(period))
	}
	for _, period := range cfg.EMAPeriods {
		registry = append(registry, NewEMA(period))
	}
	registry = append(registry,
		NewBollingerBands(cfg.BollingerPeriod, cfg.BollingerStdDev, logger),
		NewRSI(cfg.RSIPeriod, logger),
		NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		NewStochastic(cfg.StochasticK, cfg.StochasticD),
	)

	e := &Engine{
		logger:     logger,
		indicators: registry,
		weights:    defaultWeights(),
	}

	for _, ind := range e.indicators {
		logger.Info("indicator registered",
			zap.String("name", ind.Name()),
			zap.String("category", string(ind.Category())),
			zap.Float64("weight", e.weights[ind.Name()]))
	}

	return e
}

func defaultWeights() map[string]float64 {
	return map[string]float64{
		"SMA_20":       0.10,
		"SMA_50":       0.15,
		"EMA_12":       0.15,
		"EMA_26":       0.15,
		"BB_20":        0.15,
		"RSI_14":       0.10,
		"MACD_12_26_9": 0.10,
		"STOCH_14_3":   0.10,
	}
}

// Analyze evaluates every registered indicator concurrently and returns
// the successful results with the composite score. Indicators that cannot
// be computed on the given series are skipped, they still count toward
// TotalIndicators.
func (e *Engine) Analyze(symbol string, candles []domain.Candle) ([]domain.IndicatorResult, domain.CompositeScore) {
	results := make([]domain.IndicatorResult, 0, len(e.indicators))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, ind := range e.indicators {
		ind := ind
		wg.Add(1)
		gopool.Go(func() {
			defer wg.Done()

			result, err := ind.Compute(candles)
			if err != nil {
				if errors.Is(err, domain.ErrInsufficientData) {
					e.logger.Debug("indicator skipped",
						zap.String("symbol", symbol), zap.String("indicator", ind.Name()), zap.Error(err))
				} else {
					e.logger.Warn("indicator computation failed",
						zap.String("symbol", symbol), zap.String("indicator", ind.Name()), zap.Error(err))
				}
				return
			}

			result.Weight = e.weights[result.Name]

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
		})
	}
	wg.Wait()

	composite := e.composite(results)

	e.logger.Debug("indicators analyzed",
		zap.String("symbol", symbol),
		zap.Int("computed", len(results)),
		zap.Int("registered", len(e.indicators)),
		zap.Float64("overall_score", composite.OverallScore),
		zap.String("bias", string(composite.OverallBias)))

	return results, composite
}

// composite folds indicator strengths into the overall score: each
// strength weighted by its registry weight, normalized by the weight that
// actually produced a result.
func (e *Engine) composite(results []domain.IndicatorResult) domain.CompositeScore {
	var (
		trendScore    float64
		momentumScore float64
		totalWeight   float64
	)

	contributing := make([]string, 0, len(results))
	scores := make(map[string]float64)

	for _, r := range results {
		weighted := r.Strength * r.Weight
		totalWeight += r.Weight

		if r.Category == domain.CategoryTrend {
			trendScore += weighted
		} else {
			momentumScore += weighted
		}

		if r.Strength > contributionThreshold {
			contributing = append(contributing, r.Name)
			scores[r.Name] = r.Strength
		}
	}

	sort.Strings(contributing)

	overall := 50.0
	if totalWeight > 0 {
		overall = (trendScore + momentumScore) / totalWeight
	}

	return domain.CompositeScore{
		OverallScore:           overall,
		OverallBias:            biasFor(overall),
		ContributingIndicators: contributing,
		IndicatorScores:        scores,
		TotalIndicators:        len(e.indicators),
	}
}

func biasFor(score float64) domain.Bias {
	switch {
	case score > 70:
		return domain.BiasStrongBullish
	case score > 55:
		return domain.BiasBullish
	case score < 30:
		return domain.BiasStrongBearish
	case score < 45:
		return domain.BiasBearish
	default:
		return domain.BiasNeutral
	}
}
