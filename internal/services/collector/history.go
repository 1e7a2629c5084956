package collector

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/chainpulse/chainpulse/internal/domain"
)

const (
	historyLimit     = 200
	minHistoryPoints = 10
)

// snapshotHistory retains a bounded window of recent snapshots per symbol
// and synthesizes candles from them for venues that expose only current
// prices. Synthesized candles carry the snapshot price as open, high, low
// and close.
type snapshotHistory struct {
	mu       sync.Mutex
	bySymbol map[string][]domain.MarketSnapshot
}

func newSnapshotHistory() *snapshotHistory {
	return &snapshotHistory{bySymbol: make(map[string][]domain.MarketSnapshot)}
}

func (h *snapshotHistory) record(s domain.MarketSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	window := append(h.bySymbol[s.Symbol], s)
	if len(window) > historyLimit {
		window = window[len(window)-historyLimit:]
	}
	h.bySymbol[s.Symbol] = window
}

func (h *snapshotHistory) candles(symbol string, limit int) ([]domain.Candle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	window := h.bySymbol[symbol]
	if len(window) < minHistoryPoints {
		return nil, errors.Wrapf(domain.ErrInsufficientData,
			"only %d retained snapshots for %s, need %d", len(window), symbol, minHistoryPoints)
	}

	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}

	candles := make([]domain.Candle, 0, len(window))
	for _, s := range window {
		candles = append(candles, domain.Candle{
			Timestamp: s.Timestamp,
			Open:      s.Price,
			High:      s.Price,
			Low:       s.Price,
			Close:     s.Price,
			Volume:    s.Volume,
		})
	}

	return candles, nil
}
