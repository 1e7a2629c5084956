package signals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainpulse/chainpulse/internal/domain"
)

func storedSignal(id, symbol string) domain.Signal {
	return domain.Signal{
		ID:           id,
		Symbol:       symbol,
		Direction:    domain.DirectionBuy,
		EntryPrice:   decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(100),
		TP1:          decimal.RequireFromString("101.5"),
		TP2:          decimal.NewFromInt(103),
		TP3:          decimal.NewFromInt(105),
		StopLoss:     decimal.RequireFromString("99.2"),
		Confidence:   70,
		RiskReward:   1.875,
		Status:       domain.StatusActive,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestWALStoreSaveSignalIdempotent(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	sig := storedSignal("s1", "BTC-USD")
	require.NoError(t, store.SaveSignal(sig))

	sig.Confidence = 99
	require.NoError(t, store.SaveSignal(sig))

	recent, err := store.RecentSignals(0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, float64(70), recent[0].Confidence)
}

func TestWALStoreUpdateSignalHits(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSignal(storedSignal("s1", "BTC-USD")))

	price := decimal.RequireFromString("101.6")
	hit := true
	status := domain.StatusTP1Hit
	require.NoError(t, store.UpdateSignalHits("s1", domain.SignalHitUpdate{
		CurrentPrice: &price,
		TP1Hit:       &hit,
		Status:       &status,
	}))

	active, err := store.ActiveSignals()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].TP1Hit)
	assert.False(t, active[0].TP2Hit)
	assert.Equal(t, domain.StatusTP1Hit, active[0].Status)
	assert.True(t, price.Equal(active[0].CurrentPrice))
}

func TestWALStoreUpdateUnknownSignal(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.UpdateSignalHits("missing", domain.SignalHitUpdate{})
	assert.Error(t, err)
}

func TestWALStoreMarkSignalClosed(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSignal(storedSignal("s1", "BTC-USD")))
	require.NoError(t, store.SaveSignal(storedSignal("s2", "ETH-USD")))

	require.NoError(t, store.MarkSignalClosed("s1", "STOP_LOSS_HIT"))
	require.NoError(t, store.MarkSignalClosed("s2", "REPLACED"))

	active, err := store.ActiveSignals()
	require.NoError(t, err)
	assert.Empty(t, active)

	recent, err := store.RecentSignals(0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	byID := map[string]domain.Signal{recent[0].ID: recent[0], recent[1].ID: recent[1]}
	assert.Equal(t, domain.StatusSLHit, byID["s1"].Status)
	assert.Equal(t, domain.StatusCancelled, byID["s2"].Status)
}

func TestWALStoreRecentSignalsOrderAndLimit(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSignal(storedSignal("s1", "BTC-USD")))
	require.NoError(t, store.SaveSignal(storedSignal("s2", "ETH-USD")))
	require.NoError(t, store.SaveSignal(storedSignal("s3", "SOL-USD")))

	recent, err := store.RecentSignals(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "s3", recent[0].ID)
	assert.Equal(t, "s2", recent[1].ID)
}

func TestWALStoreReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveSignal(storedSignal("s1", "BTC-USD")))
	require.NoError(t, store.SaveSignal(storedSignal("s2", "ETH-USD")))

	hit := true
	status := domain.StatusTP1Hit
	require.NoError(t, store.UpdateSignalHits("s1", domain.SignalHitUpdate{TP1Hit: &hit, Status: &status}))
	require.NoError(t, store.MarkSignalClosed("s2", "EXPIRED"))
	require.NoError(t, store.SaveTrackingEvent(domain.TrackingEvent{
		SignalID:     "s1",
		Symbol:       "BTC-USD",
		Kind:         domain.EventTP1Hit,
		CurrentPrice: decimal.RequireFromString("101.6"),
		Timestamp:    time.Now(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	active, err := reopened.ActiveSignals()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)
	assert.True(t, active[0].TP1Hit)
	assert.Equal(t, domain.StatusTP1Hit, active[0].Status)

	recent, err := reopened.RecentSignals(0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, domain.StatusExpired, recent[0].Status)
}
