// Package strategy contains the per-selection decision logic: finite state
// machines that inspect current odds, detect cross-exchange or market-making
// opportunities, construct order intents and track them through matching.
// Strategies never perform I/O; the managers feed them reconciled data and
// collect their pending intents.
package strategy

import (
	"github.com/google/uuid"

	"github.com/yourusername/cross-book/internal/models"
)

// PriceBook exposes the latest price snapshots to strategies. A missing
// selection means its prices are stale or not yet fetched; strategies skip
// evaluation rather than act on absent data.
type PriceBook interface {
	Selection(ex models.ExchangeID, marketID, selectionID int64) (*models.Selection, bool)
}

// Strategy is one active decision unit over one or two selections.
type Strategy interface {
	Name() string

	// MarketIDs lists the markets whose prices the strategy needs, per
	// exchange.
	MarketIDs() map[models.ExchangeID][]int64

	// UpdateInterval is the strategy's refresh cadence in engine ticks.
	UpdateInterval() int

	// WasUpdated reports whether the strategy received prices this tick.
	// Only updated strategies contribute pending orders.
	WasUpdated() bool
	SetUpdated(updated bool)

	// UpdatePrices runs one state machine evaluation against the latest
	// snapshots. Pending sets are cleared on entry and repopulated only by
	// transitions triggered by this call.
	UpdatePrices(book PriceBook)

	// UpdateOrders folds exchange-reported order state into the strategy's
	// tracked orders.
	UpdateOrders(reports map[uuid.UUID]*models.Order)

	// UnmatchedOrders returns tracked orders still awaiting a match, per
	// exchange.
	UnmatchedOrders() map[models.ExchangeID][]*models.Order

	// Pending intents produced by the last UpdatePrices call, per exchange.
	PendingPlace() map[models.ExchangeID][]*models.Order
	PendingCancel() map[models.ExchangeID][]*models.Order
	PendingUpdate() map[models.ExchangeID][]*models.Order

	// SetTicksToLive feeds the externally computed time-to-live used by
	// close-out logic. Set by automations between updates.
	SetTicksToLive(ticks int)

	// Finished reports the strategy has closed out and can be retired.
	Finished() bool
}

// State is a strategy state machine position.
type State int

const (
	StateNoOpp State = iota
	StateOpp
	StateLayPlaced
	StateBothPlaced
	StateLayMatched
	StateBackMatched
	StateBothMatched
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNoOpp:
		return "no_opportunity"
	case StateOpp:
		return "opportunity"
	case StateLayPlaced:
		return "lay_placed"
	case StateBothPlaced:
		return "both_placed"
	case StateLayMatched:
		return "lay_matched"
	case StateBackMatched:
		return "back_matched"
	case StateBothMatched:
		return "both_matched"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}
