package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the side of an order (back or lay), using the wire encoding shared
// by both exchange APIs.
type Side int

const (
	SideBack Side = 1
	SideLay  Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBack:
		return "BACK"
	case SideLay:
		return "LAY"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the lifecycle state of an order. Transitions are monotonic:
// NotPlaced -> Unmatched -> {Matched, Cancelled}.
type OrderStatus int

const (
	OrderNotPlaced OrderStatus = iota
	OrderUnmatched
	OrderMatched
	OrderCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderNotPlaced:
		return "NOT_PLACED"
	case OrderUnmatched:
		return "UNMATCHED"
	case OrderMatched:
		return "MATCHED"
	case OrderCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further status change is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderMatched || s == OrderCancelled
}

// Order is a bet: first a pending intent constructed by a strategy, then a
// tracked position once executed against an exchange. The local ID doubles
// as the client-side correlation id for the exchange that does not return
// order references synchronously.
type Order struct {
	ID          uuid.UUID   `json:"id"`
	ExchangeID  ExchangeID  `json:"exchange_id"`
	MarketID    int64       `json:"market_id"`
	SelectionID int64       `json:"selection_id"`
	Stake       float64     `json:"stake"`
	Price       float64     `json:"price"`
	Side        Side        `json:"side"`
	Status      OrderStatus `json:"status"`

	// Ref is the exchange-assigned order reference. Empty until confirmed;
	// immutable once set.
	Ref string `json:"ref,omitempty"`

	MatchedStake   float64   `json:"matched_stake"`
	UnmatchedStake float64   `json:"unmatched_stake"`
	PlacedAt       time.Time `json:"placed_at,omitempty"`

	// BetDAQ bookkeeping copied from the selection snapshot at build time.
	ResetCount    int `json:"reset_count"`
	WithdrawalSeq int `json:"withdrawal_seq"`

	// Persistence keeps the order alive when the market turns in-running;
	// CancelRunning requests the opposite.
	Persistence   bool `json:"persistence"`
	CancelRunning bool `json:"cancel_running"`
}

// NewOrder builds a not-yet-placed order intent against a selection snapshot.
func NewOrder(sel *Selection, side Side, price, stake float64) *Order {
	return &Order{
		ID:            uuid.New(),
		ExchangeID:    sel.ExchangeID,
		MarketID:      sel.MarketID,
		SelectionID:   sel.ID,
		Stake:         stake,
		Price:         price,
		Side:          side,
		Status:        OrderNotPlaced,
		ResetCount:    sel.ResetCount,
		WithdrawalSeq: sel.WithdrawalSeq,
		CancelRunning: true,
	}
}

// Validate checks the construction invariants of an order intent.
func (o *Order) Validate() error {
	if o.Stake <= 0 {
		return fmt.Errorf("%w: stake %.2f", ErrInvalidStake, o.Stake)
	}
	if o.Price < MinOdds || o.Price > MaxOdds {
		return fmt.Errorf("%w: price %.2f", ErrInvalidPrice, o.Price)
	}
	if o.Side != SideBack && o.Side != SideLay {
		return fmt.Errorf("invalid order side %d", int(o.Side))
	}
	return nil
}

// ApplyReport folds an exchange-reported copy of this order into the local
// state. The reference is write-once and a terminal status never changes
// again, so any report moving the order away from MATCHED or CANCELLED is
// rejected.
func (o *Order) ApplyReport(r *Order) error {
	if r == nil {
		return nil
	}
	if o.Ref != "" && r.Ref != "" && o.Ref != r.Ref {
		return fmt.Errorf("%w: have %s, got %s", ErrRefMismatch, o.Ref, r.Ref)
	}
	if o.Status.Terminal() && r.Status != o.Status {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, o.Status, r.Status)
	}
	if o.Ref == "" && r.Ref != "" {
		o.Ref = r.Ref
	}
	o.Status = r.Status
	o.MatchedStake = r.MatchedStake
	o.UnmatchedStake = r.UnmatchedStake
	if o.PlacedAt.IsZero() && !r.PlacedAt.IsZero() {
		o.PlacedAt = r.PlacedAt
	}
	if r.Price > 0 {
		o.Price = r.Price
	}
	if r.Stake > 0 {
		o.Stake = r.Stake
	}
	return nil
}

// Unmatched reports whether the order is live on an exchange awaiting a match.
func (o *Order) Unmatched() bool {
	return o.Status == OrderUnmatched
}

// RoundStake rounds a stake to exactly two decimal places, half away from
// zero, matching exchange stake precision.
func RoundStake(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
