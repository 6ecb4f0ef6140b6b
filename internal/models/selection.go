package models

import "time"

// DefaultLadderDepth is the number of price levels kept per side of the book.
const DefaultLadderDepth = 5

// PricePoint is one level of a price ladder: unmatched money available at a
// price. The zero value marks an empty level.
type PricePoint struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// Empty reports whether no money is offered at this level.
func (p PricePoint) Empty() bool {
	return p.Price == 0
}

// SelectionKey identifies a selection within one exchange.
type SelectionKey struct {
	MarketID    int64
	SelectionID int64
}

// Selection is an immutable per-tick snapshot of the order book for one
// tradable outcome on one exchange. It is recreated wholesale on every price
// refresh and never mutated in place; strategies swap their reference for
// the newest snapshot.
type Selection struct {
	ExchangeID ExchangeID `json:"exchange_id"`
	ID         int64      `json:"selection_id"`
	MarketID   int64      `json:"market_id"`
	Name       string     `json:"name"`

	// Back and Lay are padded to a fixed depth and ordered best to worst.
	Back []PricePoint `json:"back"`
	Lay  []PricePoint `json:"lay"`

	LastMatchedPrice  *float64 `json:"last_matched_price,omitempty"`
	LastMatchedAmount *float64 `json:"last_matched_amount,omitempty"`

	// BetDAQ bookkeeping required when placing orders on this selection.
	ResetCount    int `json:"reset_count"`
	WithdrawalSeq int `json:"withdrawal_seq"`

	FetchedAt time.Time `json:"fetched_at"`
}

// NewSelection builds a snapshot with both ladders padded to depth levels.
// A depth of zero or less falls back to DefaultLadderDepth.
func NewSelection(ex ExchangeID, marketID, selectionID int64, name string, back, lay []PricePoint, depth int) *Selection {
	if depth <= 0 {
		depth = DefaultLadderDepth
	}
	return &Selection{
		ExchangeID: ex,
		ID:         selectionID,
		MarketID:   marketID,
		Name:       name,
		Back:       padLadder(back, depth),
		Lay:        padLadder(lay, depth),
		FetchedAt:  time.Now(),
	}
}

func padLadder(levels []PricePoint, depth int) []PricePoint {
	padded := make([]PricePoint, depth)
	copy(padded, levels)
	return padded
}

// Key returns the selection's identity within its exchange.
func (s *Selection) Key() SelectionKey {
	return SelectionKey{MarketID: s.MarketID, SelectionID: s.ID}
}

// BestBack returns the best price currently available to back, or MinOdds
// when no back price is offered.
func (s *Selection) BestBack() float64 {
	if len(s.Back) == 0 || s.Back[0].Empty() {
		return MinOdds
	}
	return s.Back[0].Price
}

// BestLay returns the best price currently available to lay, or MaxOdds
// when no lay price is offered.
func (s *Selection) BestLay() float64 {
	if len(s.Lay) == 0 || s.Lay[0].Empty() {
		return MaxOdds
	}
	return s.Lay[0].Price
}

// MakeBestBack returns the price to quote to become the best offer on the
// back side of the book: one exchange tick below the current best lay. At
// the absence sentinel there is no market to improve on and the sentinel is
// returned unchanged.
func (s *Selection) MakeBestBack() float64 {
	bl := s.BestLay()
	if bl >= MaxOdds {
		return MaxOdds
	}
	return TickBelow(s.ExchangeID, bl)
}

// MakeBestLay returns the price to quote to become the best offer on the
// lay side of the book: one exchange tick above the current best back.
// Sentinel passes through unchanged.
func (s *Selection) MakeBestLay() float64 {
	bb := s.BestBack()
	if bb <= MinOdds {
		return MinOdds
	}
	return TickAbove(s.ExchangeID, bb)
}
