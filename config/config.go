// Package config holds the explicit pipeline configuration. The value is
// constructed once at startup and passed by dependency injection into each
// component constructor.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config pipeline configuration.
type Config struct {
	// Symbols internal symbols to analyze, e.g. "BTC-USD".
	Symbols []string `yaml:"symbols"`
	// Sources preference-ordered source adapter names, best first.
	Sources []string `yaml:"sources"`
	// AnalysisInterval delay between analysis cycles.
	AnalysisInterval time.Duration `yaml:"analysis_interval"`
	// RequestTimeout upper bound for a single source request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// MinConfidence minimum signal confidence as a fraction (0.65 = 65%).
	MinConfidence float64 `yaml:"min_confidence"`
	// RiskRewardMin minimum risk/reward ratio for a signal to be emitted.
	RiskRewardMin float64 `yaml:"risk_reward_min"`
	// MaxSignalsPerHour process-wide ceiling on emitted signals per hour.
	MaxSignalsPerHour int `yaml:"max_signals_per_hour"`
	// CandleInterval timeframe requested for historical candles.
	CandleInterval string `yaml:"candle_interval"`
	// CandleLimit number of historical candles per indicator window.
	CandleLimit int `yaml:"candle_limit"`
	// WALDir directory for the signal WAL store.
	WALDir string `yaml:"wal_dir"`

	Indicators IndicatorConfig `yaml:"indicators"`
}

// IndicatorConfig periods of the indicator registry.
type IndicatorConfig struct {
	SMAPeriods      []int   `yaml:"sma_periods"`
	EMAPeriods      []int   `yaml:"ema_periods"`
	RSIPeriod       int     `yaml:"rsi_period"`
	MACDFast        int     `yaml:"macd_fast"`
	MACDSlow        int     `yaml:"macd_slow"`
	MACDSignal      int     `yaml:"macd_signal"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerStdDev float64 `yaml:"bollinger_std_dev"`
	StochasticK     int     `yaml:"stochastic_k"`
	StochasticD     int     `yaml:"stochastic_d"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Symbols:           []string{"BTC-USD", "ETH-USD", "ADA-USD", "MATIC-USD", "SOL-USD", "LINK-USD"},
		Sources:           []string{"binance", "bybit", "coincap", "cryptocompare", "coingecko"},
		AnalysisInterval:  5 * time.Minute,
		RequestTimeout:    30 * time.Second,
		MinConfidence:     0.65,
		RiskRewardMin:     2.5,
		MaxSignalsPerHour: 20,
		CandleInterval:    "1h",
		CandleLimit:       100,
		WALDir:            "./wal/signals",
		Indicators: IndicatorConfig{
			SMAPeriods:      []int{20, 50},
			EMAPeriods:      []int{12, 26},
			RSIPeriod:       14,
			MACDFast:        12,
			MACDSlow:        26,
			MACDSignal:      9,
			BollingerPeriod: 20,
			BollingerStdDev: 2.0,
			StochasticK:     14,
			StochasticD:     3,
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Symbols) == 0 {
		return errors.New("at least one symbol is required")
	}
	if len(c.Sources) == 0 {
		return errors.New("at least one data source is required")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.Errorf("min_confidence must be within [0,1], got %f", c.MinConfidence)
	}
	if c.RiskRewardMin <= 0 {
		return errors.Errorf("risk_reward_min must be positive, got %f", c.RiskRewardMin)
	}
	if c.MaxSignalsPerHour <= 0 {
		return errors.Errorf("max_signals_per_hour must be positive, got %d", c.MaxSignalsPerHour)
	}
	if c.AnalysisInterval <= 0 {
		return errors.New("analysis_interval must be positive")
	}
	return nil
}
