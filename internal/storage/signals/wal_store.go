// Package signals persists signals and tracking events in a write-ahead
// log and materializes the current signal state from it on startup.
package signals

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/chainpulse/chainpulse/internal/domain"
)

const (
	DefaultDir   = "./wal/signals"
	segmentLimit = 1000
	maxSegments  = 100

	signalKeyPrefix = "signal_"
	hitsKeyPrefix   = "hits_"
	closedKeyPrefix = "closed_"
	eventKeyPrefix  = "event_"
)

type recordKind string

const (
	recordSignal recordKind = "signal"
	recordHits   recordKind = "hits"
	recordClosed recordKind = "closed"
	recordEvent  recordKind = "event"
)

// record is the WAL envelope. Exactly one payload field is set per kind.
type record struct {
	Kind     recordKind              `json:"kind"`
	SignalID string                  `json:"signal_id,omitempty"`
	Signal   *domain.Signal          `json:"signal,omitempty"`
	Update   *domain.SignalHitUpdate `json:"update,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
	Event    *domain.TrackingEvent   `json:"event,omitempty"`
}

// WALStore is the WAL-backed signal store. All reads are served from the
// in-memory view, the WAL is the durable source of truth.
type WALStore struct {
	wal *gowal.Wal

	mu      sync.RWMutex
	signals map[string]*domain.Signal
	order   []string
}

// NewWALStore opens the WAL in dir and replays it into the in-memory
// view.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "signal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init signal WAL")
	}

	s := &WALStore{
		wal:     wal,
		signals: make(map[string]*domain.Signal),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *WALStore) replay() error {
	current := s.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		_, payload, err := s.wal.Get(idx)
		if err != nil {
			continue
		}

		var rec record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return errors.Wrapf(err, "decode signal WAL record at index %d", idx)
		}
		s.apply(rec)
	}
	return nil
}

// apply folds one record into the in-memory view. Caller must hold the
// mutex (or own the store exclusively, as replay does).
func (s *WALStore) apply(rec record) {
	switch rec.Kind {
	case recordSignal:
		if rec.Signal == nil {
			return
		}
		if _, ok := s.signals[rec.Signal.ID]; ok {
			return
		}
		sig := *rec.Signal
		s.signals[sig.ID] = &sig
		s.order = append(s.order, sig.ID)

	case recordHits:
		sig, ok := s.signals[rec.SignalID]
		if !ok || rec.Update == nil {
			return
		}
		applyUpdate(sig, *rec.Update)

	case recordClosed:
		sig, ok := s.signals[rec.SignalID]
		if !ok {
			return
		}
		if status := statusForCloseReason(rec.Reason); !sig.Status.Terminal() {
			sig.Status = status
		}

	case recordEvent:
		// events are append-only history, nothing to materialize
	}
}

func applyUpdate(sig *domain.Signal, u domain.SignalHitUpdate) {
	if u.CurrentPrice != nil {
		sig.CurrentPrice = *u.CurrentPrice
	}
	if u.TP1Hit != nil {
		sig.TP1Hit = *u.TP1Hit
	}
	if u.TP2Hit != nil {
		sig.TP2Hit = *u.TP2Hit
	}
	if u.TP3Hit != nil {
		sig.TP3Hit = *u.TP3Hit
	}
	if u.StopLossHit != nil {
		sig.StopLossHit = *u.StopLossHit
	}
	if u.Confidence != nil {
		sig.Confidence = *u.Confidence
	}
	if u.Status != nil {
		sig.Status = *u.Status
	}
}

// statusForCloseReason maps a closure reason onto the terminal status.
// Unknown reasons (manual closes, replacements) cancel the signal.
func statusForCloseReason(reason string) domain.SignalStatus {
	switch reason {
	case "TP3_HIT":
		return domain.StatusTP3Hit
	case "STOP_LOSS_HIT":
		return domain.StatusSLHit
	case "EXPIRED":
		return domain.StatusExpired
	default:
		return domain.StatusCancelled
	}
}

func (s *WALStore) append(key string, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal signal WAL record")
	}

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, key, payload); err != nil {
		return errors.Wrap(err, "write signal WAL record")
	}

	s.apply(rec)
	return nil
}

// SaveSignal persists a new signal. Saving an already stored signal ID is
// a no-op.
func (s *WALStore) SaveSignal(sig domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[sig.ID]; ok {
		return nil
	}

	return s.append(signalKeyPrefix+sig.ID, record{Kind: recordSignal, Signal: &sig})
}

// UpdateSignalHits applies a partial hit-state update to a stored signal.
func (s *WALStore) UpdateSignalHits(id string, update domain.SignalHitUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[id]; !ok {
		return errors.Errorf("signal %s not found", id)
	}

	return s.append(hitsKeyPrefix+id, record{Kind: recordHits, SignalID: id, Update: &update})
}

// MarkSignalClosed records the closure reason and moves the signal to its
// terminal status.
func (s *WALStore) MarkSignalClosed(id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.signals[id]; !ok {
		return errors.Errorf("signal %s not found", id)
	}

	return s.append(closedKeyPrefix+id, record{Kind: recordClosed, SignalID: id, Reason: reason})
}

// SaveTrackingEvent appends a tracking event to the log.
func (s *WALStore) SaveTrackingEvent(event domain.TrackingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s%s_%d", eventKeyPrefix, event.SignalID, event.Timestamp.UnixNano())
	return s.append(key, record{Kind: recordEvent, Event: &event})
}

// ActiveSignals returns every stored signal not in a terminal state.
func (s *WALStore) ActiveSignals() ([]domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []domain.Signal
	for _, id := range s.order {
		if sig := s.signals[id]; !sig.Status.Terminal() {
			active = append(active, *sig)
		}
	}
	return active, nil
}

// RecentSignals returns up to limit signals, most recently stored first.
func (s *WALStore) RecentSignals(limit int) ([]domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}

	recent := make([]domain.Signal, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(recent) < n; i-- {
		recent = append(recent, *s.signals[s.order[i]])
	}
	return recent, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}
