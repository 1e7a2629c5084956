// Package domain defines the core data structures of the signal pipeline.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot current market data for one symbol, produced once per
// symbol per analysis cycle. Immutable after creation.
type MarketSnapshot struct {
	// Symbol internal symbol notation, e.g. "BTC-USD".
	Symbol string
	// Price last traded price.
	Price decimal.Decimal
	// Volume traded volume over the last 24 hours.
	Volume decimal.Decimal
	// Change24h price change over the last 24 hours, percent.
	Change24h float64
	// High24h highest price over the last 24 hours.
	High24h decimal.Decimal
	// Low24h lowest price over the last 24 hours.
	Low24h decimal.Decimal
	// Timestamp when the snapshot was taken.
	Timestamp time.Time
}

// IsZero reports whether the snapshot carries no data.
func (s MarketSnapshot) IsZero() bool {
	return s.Symbol == "" || s.Price.IsZero()
}

// Candle single OHLCV candlestick. Candle slices are ordered ascending
// by timestamp.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}
