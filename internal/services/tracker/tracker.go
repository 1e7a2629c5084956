// Package tracker owns the lifecycle of emitted signals: admission
// arbitration against existing signals per symbol, TP/SL hit detection on
// price updates and timeout expiry.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainpulse/chainpulse/internal/domain"
)

// signalTimeout closes any signal still active after this age.
const signalTimeout = 24 * time.Hour

// Arbitration thresholds on confidence difference against the latest
// existing signal for the same symbol.
const (
	replaceThreshold  = 10
	conflictThreshold = 15
)

// Storage is the persistence contract the tracker writes through. Write
// failures are logged and never interrupt tracking.
type Storage interface {
	SaveSignal(signal domain.Signal) error
	UpdateSignalHits(id string, update domain.SignalHitUpdate) error
	MarkSignalClosed(id, reason string) error
	SaveTrackingEvent(event domain.TrackingEvent) error
	ActiveSignals() ([]domain.Signal, error)
	RecentSignals(limit int) ([]domain.Signal, error)
}

// Tracker tracks active signals in memory, mirroring every mutation to
// storage.
type Tracker struct {
	logger  *zap.Logger
	storage Storage

	mu       sync.Mutex
	byID     map[string]*domain.Signal
	bySymbol map[string][]string

	now func() time.Time
}

func NewTracker(storage Storage, logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:   logger,
		storage:  storage,
		byID:     make(map[string]*domain.Signal),
		bySymbol: make(map[string][]string),
		now:      time.Now,
	}
}

// Restore loads previously active signals back into tracking, used once
// at startup.
func (t *Tracker) Restore(signals []domain.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range signals {
		s := s
		t.byID[s.ID] = &s
		t.bySymbol[s.Symbol] = append(t.bySymbol[s.Symbol], s.ID)
	}

	if len(signals) > 0 {
		t.logger.Info("restored active signals", zap.Int("count", len(signals)))
	}
}

// AddSignal arbitrates the incoming signal against the active one for the
// same symbol. It reports whether the signal was admitted for tracking;
// reinforced, conflicted and outmatched signals are dropped.
func (t *Tracker) AddSignal(sig domain.Signal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	existing := t.latestForSymbol(sig.Symbol)
	if existing == nil {
		t.admit(sig)
		return true
	}

	diff := sig.Confidence - existing.Confidence

	if sig.Direction == existing.Direction {
		if diff > replaceThreshold {
			t.replaceSymbolSignals(sig)
			return true
		}
		t.reinforce(existing, sig)
		return false
	}

	switch {
	case diff > conflictThreshold:
		t.replaceSymbolSignals(sig)
		return true
	case diff < -conflictThreshold:
		t.logger.Info("keeping existing signal, new opposite signal is weaker",
			zap.String("symbol", sig.Symbol), zap.String("existing", existing.ID))
		return false
	default:
		t.conflict(existing, sig)
		return false
	}
}

// latestForSymbol returns the most recently admitted active signal for
// the symbol.
func (t *Tracker) latestForSymbol(symbol string) *domain.Signal {
	ids := t.bySymbol[symbol]
	if len(ids) == 0 {
		return nil
	}
	return t.byID[ids[len(ids)-1]]
}

func (t *Tracker) admit(sig domain.Signal) {
	t.byID[sig.ID] = &sig
	t.bySymbol[sig.Symbol] = append(t.bySymbol[sig.Symbol], sig.ID)

	t.logger.Info("signal added to tracking",
		zap.String("signal_id", sig.ID), zap.String("symbol", sig.Symbol))
}

// replaceSymbolSignals closes every active signal for the symbol and
// admits the new one.
func (t *Tracker) replaceSymbolSignals(sig domain.Signal) {
	ids := append([]string(nil), t.bySymbol[sig.Symbol]...)
	for _, id := range ids {
		t.closeLocked(id, "REPLACED", domain.StatusCancelled)
	}
	t.admit(sig)

	t.saveEvent(domain.TrackingEvent{
		SignalID:     sig.ID,
		Symbol:       sig.Symbol,
		Kind:         domain.EventSignalReplaced,
		CurrentPrice: sig.CurrentPrice,
		TargetPrice:  sig.EntryPrice,
		Message:      fmt.Sprintf("Signal replaced for %s with confidence %.1f%%", sig.Symbol, sig.Confidence),
		Timestamp:    t.now().UTC(),
	})
}

// reinforce averages the incoming confidence into the existing signal
// instead of admitting a duplicate.
func (t *Tracker) reinforce(existing *domain.Signal, sig domain.Signal) {
	oldConfidence := existing.Confidence
	existing.Confidence = (existing.Confidence + sig.Confidence) / 2

	t.persistHits(existing.ID, domain.SignalHitUpdate{Confidence: &existing.Confidence})

	t.saveEvent(domain.TrackingEvent{
		SignalID:     existing.ID,
		Symbol:       existing.Symbol,
		Kind:         domain.EventSignalReinforced,
		CurrentPrice: sig.CurrentPrice,
		TargetPrice:  existing.EntryPrice,
		Message:      fmt.Sprintf("Signal reinforced, confidence %.1f%% -> %.1f%%", oldConfidence, existing.Confidence),
		Timestamp:    t.now().UTC(),
	})

	t.logger.Info("signal reinforced",
		zap.String("signal_id", existing.ID),
		zap.Float64("old_confidence", oldConfidence),
		zap.Float64("new_confidence", existing.Confidence))
}

// conflict records the opposite-direction disagreement, keeping the
// existing signal.
func (t *Tracker) conflict(existing *domain.Signal, sig domain.Signal) {
	t.saveEvent(domain.TrackingEvent{
		SignalID:     existing.ID,
		Symbol:       existing.Symbol,
		Kind:         domain.EventSignalConflicted,
		CurrentPrice: existing.CurrentPrice,
		TargetPrice:  existing.EntryPrice,
		Message:      fmt.Sprintf("Conflicting %s signal discarded for %s", sig.Direction, sig.Symbol),
		Timestamp:    t.now().UTC(),
	})

	t.logger.Warn("signal conflict, keeping existing",
		zap.String("symbol", sig.Symbol), zap.String("existing", existing.ID))
}

// UpdatePrices checks every active signal against the latest prices and
// returns the emitted transition events. At most one transition fires per
// signal per call.
func (t *Tracker) UpdatePrices(prices map[string]decimal.Decimal) []domain.TrackingEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []domain.TrackingEvent

	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}

	for _, id := range ids {
		sig := t.byID[id]
		price, ok := prices[sig.Symbol]
		if !ok {
			continue
		}

		sig.CurrentPrice = price
		t.persistHits(id, domain.SignalHitUpdate{CurrentPrice: &price})

		if event := t.checkHits(sig, price); event != nil {
			events = append(events, *event)
			t.saveEvent(*event)
		}
	}

	return events
}

// checkHits evaluates the transition ladder in order: TP1, TP2, TP3,
// stop loss, timeout. The first transition that fires wins the update.
func (t *Tracker) checkHits(sig *domain.Signal, price decimal.Decimal) *domain.TrackingEvent {
	pl := sig.ProfitLossPct(price)
	flag := true

	switch {
	case !sig.TP1Hit && tpHit(sig, price, sig.TP1):
		sig.TP1Hit = true
		status := domain.StatusTP1Hit
		sig.Status = status
		t.persistHits(sig.ID, domain.SignalHitUpdate{TP1Hit: &flag, CurrentPrice: &price, Status: &status})
		return t.transitionEvent(sig, domain.EventTP1Hit, price, sig.TP1, pl,
			fmt.Sprintf("TP1 hit, %s reached %s (%+.1f%%)", sig.Symbol, sig.TP1, pl))

	case !sig.TP2Hit && tpHit(sig, price, sig.TP2):
		sig.TP2Hit = true
		status := domain.StatusTP2Hit
		sig.Status = status
		t.persistHits(sig.ID, domain.SignalHitUpdate{TP2Hit: &flag, CurrentPrice: &price, Status: &status})
		return t.transitionEvent(sig, domain.EventTP2Hit, price, sig.TP2, pl,
			fmt.Sprintf("TP2 hit, %s reached %s (%+.1f%%)", sig.Symbol, sig.TP2, pl))

	case !sig.TP3Hit && tpHit(sig, price, sig.TP3):
		sig.TP3Hit = true
		status := domain.StatusTP3Hit
		sig.Status = status
		t.persistHits(sig.ID, domain.SignalHitUpdate{TP3Hit: &flag, CurrentPrice: &price, Status: &status})
		t.closeLocked(sig.ID, "TP3_HIT", domain.StatusTP3Hit)
		return t.transitionEvent(sig, domain.EventTP3Hit, price, sig.TP3, pl,
			fmt.Sprintf("TP3 hit, %s reached %s (%+.1f%%), signal closed", sig.Symbol, sig.TP3, pl))

	case !sig.StopLossHit && slHit(sig, price):
		sig.StopLossHit = true
		status := domain.StatusSLHit
		sig.Status = status
		t.persistHits(sig.ID, domain.SignalHitUpdate{StopLossHit: &flag, CurrentPrice: &price, Status: &status})
		t.closeLocked(sig.ID, "STOP_LOSS_HIT", domain.StatusSLHit)
		return t.transitionEvent(sig, domain.EventStopLossHit, price, sig.StopLoss, pl,
			fmt.Sprintf("Stop loss hit, %s reached %s (%+.1f%%), signal closed", sig.Symbol, sig.StopLoss, pl))

	case sig.Age(t.now()) > signalTimeout:
		sig.Status = domain.StatusExpired
		t.closeLocked(sig.ID, "EXPIRED", domain.StatusExpired)
		return t.transitionEvent(sig, domain.EventSignalClosed, price, price, pl,
			fmt.Sprintf("Timeout, %s closed after %s (%+.1f%%)", sig.Symbol, signalTimeout, pl))
	}

	return nil
}

func tpHit(sig *domain.Signal, price, target decimal.Decimal) bool {
	if sig.IsBuy() {
		return price.GreaterThanOrEqual(target)
	}
	return price.LessThanOrEqual(target)
}

func slHit(sig *domain.Signal, price decimal.Decimal) bool {
	if sig.IsBuy() {
		return price.LessThanOrEqual(sig.StopLoss)
	}
	return price.GreaterThanOrEqual(sig.StopLoss)
}

func (t *Tracker) transitionEvent(sig *domain.Signal, kind domain.TrackingEventKind, price, target decimal.Decimal, pl float64, message string) *domain.TrackingEvent {
	return &domain.TrackingEvent{
		SignalID:      sig.ID,
		Symbol:        sig.Symbol,
		Kind:          kind,
		CurrentPrice:  price,
		TargetPrice:   target,
		ProfitLossPct: pl,
		Message:       message,
		Timestamp:     t.now().UTC(),
	}
}

// CloseSignal manually cancels an active signal.
func (t *Tracker) CloseSignal(id, reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[id]; !ok {
		return false
	}
	t.closeLocked(id, reason, domain.StatusCancelled)
	return true
}

// closeLocked removes the signal from both indexes atomically and records
// the closure. Caller must hold the mutex.
func (t *Tracker) closeLocked(id, reason string, status domain.SignalStatus) {
	sig, ok := t.byID[id]
	if !ok {
		return
	}
	sig.Status = status

	delete(t.byID, id)

	ids := t.bySymbol[sig.Symbol]
	for i, sid := range ids {
		if sid == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(t.bySymbol, sig.Symbol)
	} else {
		t.bySymbol[sig.Symbol] = ids
	}

	if err := t.storage.MarkSignalClosed(id, reason); err != nil {
		t.logger.Error("failed to mark signal closed",
			zap.String("signal_id", id), zap.Error(err))
	}

	t.logger.Info("signal closed",
		zap.String("signal_id", id), zap.String("reason", reason))
}

// ActiveSignals returns a snapshot of the currently tracked signals.
func (t *Tracker) ActiveSignals() []domain.Signal {
	t.mu.Lock()
	defer t.mu.Unlock()

	signals := make([]domain.Signal, 0, len(t.byID))
	for _, s := range t.byID {
		signals = append(signals, *s)
	}
	return signals
}

// ActiveCount returns how many signals are currently tracked.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

func (t *Tracker) persistHits(id string, update domain.SignalHitUpdate) {
	if err := t.storage.UpdateSignalHits(id, update); err != nil {
		t.logger.Error("failed to persist signal update",
			zap.String("signal_id", id), zap.Error(err))
	}
}

func (t *Tracker) saveEvent(event domain.TrackingEvent) {
	if err := t.storage.SaveTrackingEvent(event); err != nil {
		t.logger.Error("failed to persist tracking event",
			zap.String("signal_id", event.SignalID), zap.Error(err))
	}
}
