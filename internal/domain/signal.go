package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction side of an emitted signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// SignalStatus lifecycle state of a signal. Terminal states are final.
type SignalStatus string

const (
	StatusActive    SignalStatus = "ACTIVE"
	StatusTP1Hit    SignalStatus = "TP1_HIT"
	StatusTP2Hit    SignalStatus = "TP2_HIT"
	StatusTP3Hit    SignalStatus = "TP3_HIT"
	StatusSLHit     SignalStatus = "SL_HIT"
	StatusExpired   SignalStatus = "EXPIRED"
	StatusCancelled SignalStatus = "CANCELLED"
)

// Terminal reports whether the status closes the signal permanently.
func (s SignalStatus) Terminal() bool {
	switch s {
	case StatusTP3Hit, StatusSLHit, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Signal directional trading signal with dynamic exit levels. Created by the
// generator, mutated only by the tracker until it reaches a terminal state.
type Signal struct {
	ID           string
	Symbol       string
	Direction    Direction
	EntryPrice   decimal.Decimal
	CurrentPrice decimal.Decimal
	TP1          decimal.Decimal
	TP2          decimal.Decimal
	TP3          decimal.Decimal
	StopLoss     decimal.Decimal
	// Confidence final signal confidence in [0, 100].
	Confidence float64
	// RiskReward TP1 distance over stop-loss distance, strictly positive.
	RiskReward float64
	Regime     Regime
	// ContributingIndicators indicator names backing the signal.
	ContributingIndicators []string
	IndicatorScores        map[string]float64
	Reasoning              string
	// ExpectedDuration coarse holding-time hint: SHORT, MEDIUM or LONG.
	ExpectedDuration string
	Status           SignalStatus

	// Hit flags are monotonic: once true, never reset.
	TP1Hit      bool
	TP2Hit      bool
	TP3Hit      bool
	StopLossHit bool

	CreatedAt time.Time
}

// NewSignalID builds the deterministic signal identifier.
func NewSignalID(symbol string, direction Direction, createdAt time.Time) string {
	return fmt.Sprintf("%s_%s_%d", symbol, direction, createdAt.Unix())
}

// IsBuy reports whether the signal is long.
func (s *Signal) IsBuy() bool {
	return s.Direction == DirectionBuy
}

// ProfitLossPct unrealized move from entry to price, signed by direction.
func (s *Signal) ProfitLossPct(price decimal.Decimal) float64 {
	if s.EntryPrice.IsZero() {
		return 0
	}
	diff := price.Sub(s.EntryPrice)
	if !s.IsBuy() {
		diff = s.EntryPrice.Sub(price)
	}
	pct, _ := diff.Div(s.EntryPrice).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Age time elapsed since the signal was created.
func (s *Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// SignalHitUpdate partial update for persisted hit state. Nil fields are
// left untouched by the store.
type SignalHitUpdate struct {
	CurrentPrice *decimal.Decimal
	TP1Hit       *bool
	TP2Hit       *bool
	TP3Hit       *bool
	StopLossHit  *bool
	Confidence   *float64
	Status       *SignalStatus
}
