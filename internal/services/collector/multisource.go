package collector

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// maxSourceErrors is the cumulative error count after which a source is
// disabled for the rest of the process lifetime.
const maxSourceErrors = 10

type sourceState struct {
	adapter SourceAdapter
	health  SourceHealth
}

// MultiSourceCollector routes snapshot and candle requests across a
// preference-ordered list of source adapters. Failover is sticky: once a
// fallback source succeeds, it stays current until it fails itself.
// Snapshot and candle requests track their current source independently
// because a venue can serve one well and the other not at all.
type MultiSourceCollector struct {
	logger *zap.Logger

	mu          sync.Mutex
	sources     []*sourceState
	snapshotIdx int
	historyIdx  int
}

func NewMultiSourceCollector(logger *zap.Logger, adapters ...SourceAdapter) *MultiSourceCollector {
	sources := make([]*sourceState, 0, len(adapters))
	for _, a := range adapters {
		sources = append(sources, &sourceState{
			adapter: a,
			health:  SourceHealth{Name: a.Name(), Enabled: true},
		})
	}

	return &MultiSourceCollector{logger: logger, sources: sources}
}

// Initialize probes every source in preference order. Sources that fail
// to initialize are disabled. At least one source must come up.
func (c *MultiSourceCollector) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	usable := 0
	for _, s := range c.sources {
		if err := s.adapter.Initialize(ctx); err != nil {
			s.health.Enabled = false
			s.health.LastError = err.Error()
			c.logger.Warn("source failed to initialize, disabling it",
				zap.String("source", s.health.Name), zap.Error(err))
			continue
		}
		usable++
		c.logger.Info("source initialized", zap.String("source", s.health.Name))
	}
	if usable == 0 {
		return errors.Wrap(domain.ErrNoUsableSource, "all sources failed to initialize")
	}

	c.snapshotIdx = c.firstEnabled()
	c.historyIdx = c.snapshotIdx

	return nil
}

// Snapshot fetches the current snapshot for symbol from the current
// snapshot source, failing over through the remaining enabled sources in
// preference order.
func (c *MultiSourceCollector) Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	var snapshot domain.MarketSnapshot
	err := c.request(ctx, &c.snapshotIdx, func(a SourceAdapter) error {
		var err error
		snapshot, err = a.Snapshot(ctx, symbol)
		return err
	})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return snapshot, nil
}

// Candles fetches historical candles for symbol, failing over like
// Snapshot but on its own current-source index.
func (c *MultiSourceCollector) Candles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	var candles []domain.Candle
	err := c.request(ctx, &c.historyIdx, func(a SourceAdapter) error {
		var err error
		candles, err = a.Candles(ctx, symbol, interval, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// TestConnection verifies at least one enabled source is reachable.
func (c *MultiSourceCollector) TestConnection(ctx context.Context) error {
	return c.request(ctx, &c.snapshotIdx, func(a SourceAdapter) error {
		return a.TestConnection(ctx)
	})
}

// request tries the current source first, then every other enabled source
// in preference order. The first source to succeed becomes current.
func (c *MultiSourceCollector) request(ctx context.Context, current *int, call func(SourceAdapter) error) error {
	order := c.tryOrder(current)

	for _, idx := range order {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s := c.sources[idx]
		if err := call(s.adapter); err != nil {
			c.recordError(idx, err)
			continue
		}

		c.recordSuccess(idx, current)
		return nil
	}

	return errors.Wrap(domain.ErrNoUsableSource, "all sources failed or are disabled")
}

// tryOrder returns the enabled source indexes starting from the current
// one, then the rest in preference order.
func (c *MultiSourceCollector) tryOrder(current *int) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	order := make([]int, 0, len(c.sources))
	if *current < len(c.sources) && c.sources[*current].health.Enabled {
		order = append(order, *current)
	}
	for i, s := range c.sources {
		if i == *current || !s.health.Enabled {
			continue
		}
		order = append(order, i)
	}

	return order
}

func (c *MultiSourceCollector) recordSuccess(idx int, current *int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sources[idx]
	s.health.SuccessCount++

	if *current != idx {
		c.logger.Info("switched to fallback source",
			zap.String("from", c.sources[*current].health.Name),
			zap.String("to", s.health.Name))
		*current = idx
	}
}

func (c *MultiSourceCollector) recordError(idx int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sources[idx]
	s.health.ErrorCount++
	s.health.LastError = err.Error()

	c.logger.Warn("source request failed",
		zap.String("source", s.health.Name),
		zap.Int("error_count", s.health.ErrorCount),
		zap.Error(err))

	if s.health.Enabled && s.health.ErrorCount > maxSourceErrors {
		s.health.Enabled = false
		c.logger.Warn("source exceeded error threshold, disabling it",
			zap.String("source", s.health.Name))
	}
}

func (c *MultiSourceCollector) firstEnabled() int {
	for i, s := range c.sources {
		if s.health.Enabled {
			return i
		}
	}
	return 0
}

// Health reports per-source health counters.
func (c *MultiSourceCollector) Health() []SourceHealth {
	c.mu.Lock()
	defer c.mu.Unlock()

	health := make([]SourceHealth, 0, len(c.sources))
	for _, s := range c.sources {
		health = append(health, s.health)
	}
	return health
}

// CurrentSnapshotSource returns the name of the source currently serving
// snapshot requests.
func (c *MultiSourceCollector) CurrentSnapshotSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources[c.snapshotIdx].health.Name
}

// Close closes every adapter. The first error is returned.
func (c *MultiSourceCollector) Close() error {
	var firstErr error
	for _, s := range c.sources {
		if err := s.adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
