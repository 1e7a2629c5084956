package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrackingEventKind kind of a tracking state transition.
type TrackingEventKind string

const (
	EventTP1Hit           TrackingEventKind = "tp1_hit"
	EventTP2Hit           TrackingEventKind = "tp2_hit"
	EventTP3Hit           TrackingEventKind = "tp3_hit"
	EventStopLossHit      TrackingEventKind = "stop_loss_hit"
	EventSignalClosed     TrackingEventKind = "signal_closed"
	EventSignalReinforced TrackingEventKind = "signal_reinforced"
	EventSignalConflicted TrackingEventKind = "signal_conflicted"
	EventSignalReplaced   TrackingEventKind = "signal_replaced"
)

// TrackingEvent append-only record emitted by the tracker on every signal
// state transition.
type TrackingEvent struct {
	SignalID      string
	Symbol        string
	Kind          TrackingEventKind
	CurrentPrice  decimal.Decimal
	TargetPrice   decimal.Decimal
	ProfitLossPct float64
	Message       string
	Timestamp     time.Time
}
