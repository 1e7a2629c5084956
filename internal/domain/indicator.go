package domain

// IndicatorCategory groups indicators for composite scoring.
type IndicatorCategory string

const (
	CategoryTrend    IndicatorCategory = "trend"
	CategoryMomentum IndicatorCategory = "momentum"
)

// TrendDirection qualitative direction of price action.
type TrendDirection string

const (
	TrendBullish TrendDirection = "BULLISH"
	TrendBearish TrendDirection = "BEARISH"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// IndicatorResult outcome of a single indicator evaluation. Created fresh
// each cycle and never persisted.
type IndicatorResult struct {
	// Name registry name, e.g. "SMA_20".
	Name string
	// Category trend or momentum.
	Category IndicatorCategory
	// Value raw indicator value (SMA/EMA level, RSI, %K, MACD line...).
	Value float64
	// Strength signal strength in [0, 100].
	Strength float64
	// Direction bullish, bearish or neutral reading.
	Direction TrendDirection
	// Weight static registry weight used by composite scoring.
	Weight float64
}

// Bias overall market bias derived from the composite score.
type Bias string

const (
	BiasStrongBullish Bias = "STRONG_BULLISH"
	BiasBullish       Bias = "BULLISH"
	BiasNeutral       Bias = "NEUTRAL"
	BiasBearish       Bias = "BEARISH"
	BiasStrongBearish Bias = "STRONG_BEARISH"
)

// Bullish reports whether the bias belongs to the bullish family.
func (b Bias) Bullish() bool {
	return b == BiasBullish || b == BiasStrongBullish
}

// Bearish reports whether the bias belongs to the bearish family.
func (b Bias) Bearish() bool {
	return b == BiasBearish || b == BiasStrongBearish
}

// CompositeScore weighted aggregate of all indicator strengths for one
// symbol in one cycle. Derived deterministically from the IndicatorResults.
type CompositeScore struct {
	// OverallScore weighted strength aggregate in [0, 100].
	OverallScore float64
	// OverallBias bias band the score falls into.
	OverallBias Bias
	// ContributingIndicators names of indicators with strength > 45.
	ContributingIndicators []string
	// IndicatorScores strength per contributing indicator.
	IndicatorScores map[string]float64
	// TotalIndicators how many indicators were evaluated, including skipped.
	TotalIndicators int
}
