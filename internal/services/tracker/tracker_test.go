package tracker

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

type fakeStorage struct {
	failAll    bool
	saved      []domain.Signal
	hitUpdates map[string][]domain.SignalHitUpdate
	closed     map[string]string
	events     []domain.TrackingEvent
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		hitUpdates: make(map[string][]domain.SignalHitUpdate),
		closed:     make(map[string]string),
	}
}

func (f *fakeStorage) err() error {
	if f.failAll {
		return errors.New("storage down")
	}
	return nil
}

func (f *fakeStorage) SaveSignal(s domain.Signal) error {
	f.saved = append(f.saved, s)
	return f.err()
}

func (f *fakeStorage) UpdateSignalHits(id string, u domain.SignalHitUpdate) error {
	f.hitUpdates[id] = append(f.hitUpdates[id], u)
	return f.err()
}

func (f *fakeStorage) MarkSignalClosed(id, reason string) error {
	f.closed[id] = reason
	return f.err()
}

func (f *fakeStorage) SaveTrackingEvent(e domain.TrackingEvent) error {
	f.events = append(f.events, e)
	return f.err()
}

func (f *fakeStorage) ActiveSignals() ([]domain.Signal, error) { return nil, f.err() }

func (f *fakeStorage) RecentSignals(int) ([]domain.Signal, error) { return nil, f.err() }

func (f *fakeStorage) eventKinds() []domain.TrackingEventKind {
	kinds := make([]domain.TrackingEventKind, 0, len(f.events))
	for _, e := range f.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func buySignal(id string, confidence float64, createdAt time.Time) domain.Signal {
	return domain.Signal{
		ID:           id,
		Symbol:       "BTC-USD",
		Direction:    domain.DirectionBuy,
		EntryPrice:   decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(100),
		TP1:          decimal.RequireFromString("101.5"),
		TP2:          decimal.RequireFromString("103"),
		TP3:          decimal.RequireFromString("105"),
		StopLoss:     decimal.RequireFromString("99.2"),
		Confidence:   confidence,
		Status:       domain.StatusActive,
		CreatedAt:    createdAt,
	}
}

func newTestTracker(t *testing.T) (*Tracker, *fakeStorage, *time.Time) {
	t.Helper()

	storage := newFakeStorage()
	tr := NewTracker(storage, zap.NewNop())

	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return current }

	return tr, storage, &current
}

func TestAddSignalFirstForSymbol(t *testing.T) {
	tr, _, now := newTestTracker(t)

	tr.AddSignal(buySignal("s1", 70, *now))

	assert.Equal(t, 1, tr.ActiveCount())
}

func TestAddSignalReinforcesAveragingConfidence(t *testing.T) {
	tr, storage, now := newTestTracker(t)

	tr.AddSignal(buySignal("s1", 60, *now))
	tr.AddSignal(buySignal("s2", 66, now.Add(time.Minute)))

	require.Equal(t, 1, tr.ActiveCount(), "reinforcement must not add a second signal")

	active := tr.ActiveSignals()
	assert.Equal(t, "s1", active[0].ID)
	assert.InDelta(t, 63.0, active[0].Confidence, 1e-9)
	assert.Contains(t, storage.eventKinds(), domain.EventSignalReinforced)
}

func TestAddSignalReplaceBoundary(t *testing.T) {
	t.Run("diff exactly 10 reinforces", func(t *testing.T) {
		tr, storage, now := newTestTracker(t)

		tr.AddSignal(buySignal("s1", 60, *now))
		tr.AddSignal(buySignal("s2", 70, now.Add(time.Minute)))

		active := tr.ActiveSignals()
		require.Len(t, active, 1)
		assert.Equal(t, "s1", active[0].ID)
		assert.InDelta(t, 65.0, active[0].Confidence, 1e-9)
		assert.Empty(t, storage.closed)
	})

	t.Run("diff above 10 replaces", func(t *testing.T) {
		tr, storage, now := newTestTracker(t)

		tr.AddSignal(buySignal("s1", 60, *now))
		tr.AddSignal(buySignal("s2", 70.01, now.Add(time.Minute)))

		active := tr.ActiveSignals()
		require.Len(t, active, 1)
		assert.Equal(t, "s2", active[0].ID)
		assert.Equal(t, "REPLACED", storage.closed["s1"])
		assert.Contains(t, storage.eventKinds(), domain.EventSignalReplaced)
	})
}

func TestAddSignalOppositeDirection(t *testing.T) {
	sellSignal := func(id string, confidence float64, at time.Time) domain.Signal {
		s := buySignal(id, confidence, at)
		s.Direction = domain.DirectionSell
		return s
	}

	t.Run("stronger opposite replaces", func(t *testing.T) {
		tr, storage, now := newTestTracker(t)

		tr.AddSignal(buySignal("s1", 60, *now))
		tr.AddSignal(sellSignal("s2", 80, now.Add(time.Minute)))

		active := tr.ActiveSignals()
		require.Len(t, active, 1)
		assert.Equal(t, "s2", active[0].ID)
		assert.Equal(t, "REPLACED", storage.closed["s1"])
	})

	t.Run("weaker opposite is dropped", func(t *testing.T) {
		tr, storage, now := newTestTracker(t)

		tr.AddSignal(buySignal("s1", 80, *now))
		tr.AddSignal(sellSignal("s2", 60, now.Add(time.Minute)))

		active := tr.ActiveSignals()
		require.Len(t, active, 1)
		assert.Equal(t, "s1", active[0].ID)
		assert.Empty(t, storage.closed)
		assert.NotContains(t, storage.eventKinds(), domain.EventSignalConflicted)
	})

	t.Run("close opposite records conflict", func(t *testing.T) {
		tr, storage, now := newTestTracker(t)

		tr.AddSignal(buySignal("s1", 70, *now))
		tr.AddSignal(sellSignal("s2", 75, now.Add(time.Minute)))

		active := tr.ActiveSignals()
		require.Len(t, active, 1)
		assert.Equal(t, "s1", active[0].ID)
		assert.Contains(t, storage.eventKinds(), domain.EventSignalConflicted)
	})
}

func TestUpdatePricesTP1(t *testing.T) {
	tr, _, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	events := tr.UpdatePrices(map[string]decimal.Decimal{
		"BTC-USD": decimal.RequireFromString("101.5"),
	})

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTP1Hit, events[0].Kind)
	assert.InDelta(t, 1.5, events[0].ProfitLossPct, 1e-9)
	assert.Equal(t, 1, tr.ActiveCount(), "TP1 keeps the signal active")

	active := tr.ActiveSignals()
	assert.True(t, active[0].TP1Hit)
	assert.Equal(t, domain.StatusTP1Hit, active[0].Status)
}

func TestUpdatePricesOneTransitionPerCall(t *testing.T) {
	tr, _, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	// price beyond every target fires only the first pending transition
	events := tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(200)})
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTP1Hit, events[0].Kind)

	events = tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(200)})
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTP2Hit, events[0].Kind)

	events = tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(200)})
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTP3Hit, events[0].Kind)
	assert.Zero(t, tr.ActiveCount(), "TP3 closes the signal")
}

func TestUpdatePricesStopLossCloses(t *testing.T) {
	tr, storage, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	events := tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(99)})

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventStopLossHit, events[0].Kind)
	assert.Zero(t, tr.ActiveCount())
	assert.Equal(t, "STOP_LOSS_HIT", storage.closed["s1"])
}

func TestUpdatePricesSellDirectionMirrored(t *testing.T) {
	tr, _, now := newTestTracker(t)

	s := buySignal("s1", 70, *now)
	s.Direction = domain.DirectionSell
	s.TP1 = decimal.RequireFromString("98.5")
	s.TP2 = decimal.RequireFromString("97")
	s.TP3 = decimal.RequireFromString("95")
	s.StopLoss = decimal.RequireFromString("100.8")
	tr.AddSignal(s)

	events := tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.RequireFromString("98.5")})

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTP1Hit, events[0].Kind)
	assert.InDelta(t, 1.5, events[0].ProfitLossPct, 1e-9)
}

func TestUpdatePricesExpiry(t *testing.T) {
	tr, storage, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	*now = now.Add(signalTimeout + time.Minute)

	events := tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(100)})

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSignalClosed, events[0].Kind)
	assert.Zero(t, tr.ActiveCount())
	assert.Equal(t, "EXPIRED", storage.closed["s1"])
}

func TestUpdatePricesIgnoresUnknownSymbols(t *testing.T) {
	tr, _, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	events := tr.UpdatePrices(map[string]decimal.Decimal{"ETH-USD": decimal.NewFromInt(5000)})

	assert.Empty(t, events)
	assert.Equal(t, 1, tr.ActiveCount())
}

func TestTrackingSurvivesStorageFailures(t *testing.T) {
	tr, storage, now := newTestTracker(t)
	storage.failAll = true

	tr.AddSignal(buySignal("s1", 70, *now))
	events := tr.UpdatePrices(map[string]decimal.Decimal{"BTC-USD": decimal.RequireFromString("101.5")})

	require.Len(t, events, 1, "persistence failures must not interrupt tracking")
	assert.Equal(t, 1, tr.ActiveCount())
}

func TestCloseSignalManually(t *testing.T) {
	tr, storage, now := newTestTracker(t)
	tr.AddSignal(buySignal("s1", 70, *now))

	require.True(t, tr.CloseSignal("s1", "MANUALLY_CLOSED"))
	assert.Zero(t, tr.ActiveCount())
	assert.Equal(t, "MANUALLY_CLOSED", storage.closed["s1"])

	assert.False(t, tr.CloseSignal("missing", "MANUALLY_CLOSED"))
}

func TestRestore(t *testing.T) {
	tr, _, now := newTestTracker(t)

	tr.Restore([]domain.Signal{
		buySignal("s1", 70, *now),
		buySignal("s2", 60, *now),
	})

	assert.Equal(t, 2, tr.ActiveCount())
}
