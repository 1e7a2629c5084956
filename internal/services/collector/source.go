// Package collector provides market data acquisition from multiple
// exchange sources with automatic failover between them.
package collector

import (
	"context"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// SourceAdapter binds one venue's public REST contract to the common
// snapshot/candle shapes. Implementations are selected by configuration.
type SourceAdapter interface {
	// Name returns the stable adapter name used in configuration.
	Name() string
	// Initialize probes a cheap endpoint; the adapter is unusable until
	// it succeeds.
	Initialize(ctx context.Context) error
	// TestConnection verifies the venue is reachable.
	TestConnection(ctx context.Context) error
	// Snapshot fetches the current market snapshot for an internal symbol.
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
	// Candles fetches historical candles, ascending by timestamp. Venues
	// without a native candle endpoint synthesize them from retained
	// snapshots.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)
	// Close releases adapter resources.
	Close() error
}

// SourceHealth per-adapter health counters, owned and mutated exclusively
// by the MultiSourceCollector.
type SourceHealth struct {
	Name         string
	Enabled      bool
	SuccessCount int
	ErrorCount   int
	LastError    string
}
