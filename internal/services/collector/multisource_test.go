package collector

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

type fakeAdapter struct {
	name          string
	snapshotErr   error
	snapshotPrice decimal.Decimal
	snapshotCalls int
	candles       []domain.Candle
	candlesErr    error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Initialize(context.Context) error { return nil }

func (f *fakeAdapter) TestConnection(context.Context) error { return nil }

func (f *fakeAdapter) Close() error { return nil }

func (f *fakeAdapter) Snapshot(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	f.snapshotCalls++
	if f.snapshotErr != nil {
		return domain.MarketSnapshot{}, f.snapshotErr
	}
	return domain.MarketSnapshot{Symbol: symbol, Price: f.snapshotPrice}, nil
}

func (f *fakeAdapter) Candles(context.Context, string, string, int) ([]domain.Candle, error) {
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return f.candles, nil
}

func TestMultiSourceFailover(t *testing.T) {
	first := &fakeAdapter{name: "first", snapshotErr: errors.New("boom")}
	second := &fakeAdapter{name: "second", snapshotErr: errors.New("boom")}
	third := &fakeAdapter{name: "third", snapshotPrice: decimal.NewFromInt(100)}

	c := NewMultiSourceCollector(zap.NewNop(), first, second, third)
	require.NoError(t, c.Initialize(context.Background()))

	snapshot, err := c.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.True(t, snapshot.Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "third", c.CurrentSnapshotSource())
}

func TestMultiSourceStickyFailover(t *testing.T) {
	first := &fakeAdapter{name: "first", snapshotErr: errors.New("boom")}
	second := &fakeAdapter{name: "second", snapshotPrice: decimal.NewFromInt(50)}

	c := NewMultiSourceCollector(zap.NewNop(), first, second)
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, "second", c.CurrentSnapshotSource())

	firstCalls := first.snapshotCalls

	// current stays on the fallback, the failed source is not retried
	_, err = c.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "second", c.CurrentSnapshotSource())
	assert.Equal(t, firstCalls, first.snapshotCalls)
}

func TestMultiSourceDisablesAfterErrorThreshold(t *testing.T) {
	flaky := &fakeAdapter{name: "flaky", snapshotErr: errors.New("boom")}
	stable := &fakeAdapter{name: "stable", snapshotPrice: decimal.NewFromInt(10)}

	c := NewMultiSourceCollector(zap.NewNop(), flaky, stable)
	require.NoError(t, c.Initialize(context.Background()))

	// drive the error counter past the threshold
	for i := 0; i <= maxSourceErrors; i++ {
		c.recordError(0, errors.New("boom"))
	}

	require.False(t, c.sources[0].health.Enabled)

	calls := flaky.snapshotCalls
	_, err := c.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, calls, flaky.snapshotCalls, "disabled source must not be called")

	health := c.Health()
	require.Len(t, health, 2)
	assert.Equal(t, "flaky", health[0].Name)
	assert.False(t, health[0].Enabled)
	assert.Equal(t, maxSourceErrors+1, health[0].ErrorCount)
	assert.True(t, health[1].Enabled)
}

func TestMultiSourceAllFail(t *testing.T) {
	first := &fakeAdapter{name: "first", snapshotErr: errors.New("boom")}
	second := &fakeAdapter{name: "second", snapshotErr: errors.New("boom")}

	c := NewMultiSourceCollector(zap.NewNop(), first, second)
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.Snapshot(context.Background(), "BTC-USD")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoUsableSource))
}

func TestMultiSourceIndependentIndexes(t *testing.T) {
	candles := []domain.Candle{{Close: decimal.NewFromInt(1)}}
	first := &fakeAdapter{name: "first", snapshotErr: errors.New("boom"), candles: candles}
	second := &fakeAdapter{name: "second", snapshotPrice: decimal.NewFromInt(7), candles: candles}

	c := NewMultiSourceCollector(zap.NewNop(), first, second)
	require.NoError(t, c.Initialize(context.Background()))

	_, err := c.Snapshot(context.Background(), "BTC-USD")
	require.NoError(t, err)
	require.Equal(t, "second", c.CurrentSnapshotSource())

	// candle requests still prefer the first source
	_, err = c.Candles(context.Background(), "BTC-USD", "1h", 10)
	require.NoError(t, err)
	assert.Equal(t, 1, c.snapshotIdx)
	assert.Equal(t, 0, c.historyIdx)
}

func TestSnapshotHistoryCandles(t *testing.T) {
	h := newSnapshotHistory()

	_, err := h.candles("BTC-USD", 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientData))

	for i := 0; i < historyLimit+20; i++ {
		h.record(domain.MarketSnapshot{
			Symbol: "BTC-USD",
			Price:  decimal.NewFromInt(int64(i)),
			Volume: decimal.NewFromInt(1),
		})
	}

	candles, err := h.candles("BTC-USD", historyLimit*2)
	require.NoError(t, err)
	assert.Len(t, candles, historyLimit)

	last := candles[len(candles)-1]
	assert.True(t, last.Open.Equal(last.Close))
	assert.True(t, last.High.Equal(last.Low))
	assert.True(t, last.Close.Equal(decimal.NewFromInt(historyLimit+19)))
}
