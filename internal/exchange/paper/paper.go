// Package paper provides an in-memory simulation of an exchange implementing
// both the price and order contracts. It backs practice mode and tests: the
// BetDAQ flavour reproduces the asynchronous reference flow (no refs at
// placement, correlation through the changed-orders feed), the Betfair
// flavour reports synchronously.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
)

type change struct {
	seq   int64
	order *models.Order
}

// Exchange is an in-memory simulated exchange.
type Exchange struct {
	id      models.ExchangeID
	logger  *logrus.Entry
	mu      sync.Mutex
	book    map[models.SelectionKey]*models.Selection
	orders  map[uuid.UUID]*models.Order
	byRef   map[string]*models.Order
	changes []change
	seq     int64
	bootSeq int64
	nextRef int64
	balance float64
}

// New creates a simulated exchange with the given starting balance.
func New(id models.ExchangeID, balance float64, logger *logrus.Entry) *Exchange {
	return &Exchange{
		id:      id,
		logger:  logger,
		book:    make(map[models.SelectionKey]*models.Selection),
		orders:  make(map[uuid.UUID]*models.Order),
		byRef:   make(map[string]*models.Order),
		balance: balance,
	}
}

// SetSelections loads or replaces book snapshots. Orders already resting are
// re-evaluated against the new prices.
func (e *Exchange) SetSelections(selections ...*models.Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sel := range selections {
		e.book[sel.Key()] = sel
	}
	for _, o := range e.orders {
		if o.Unmatched() {
			e.tryFill(o)
		}
	}
}

// RemoveMarket drops a market from the book so fetches report it errored.
func (e *Exchange) RemoveMarket(marketID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.book {
		if key.MarketID == marketID {
			delete(e.book, key)
		}
	}
}

// FetchPrices returns snapshots for the requested markets. Markets with no
// selections in the book come back errored.
func (e *Exchange) FetchPrices(ctx context.Context, marketIDs []int64) (map[models.SelectionKey]*models.Selection, []int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[models.SelectionKey]*models.Selection)
	var errored []int64
	for _, id := range marketIDs {
		found := false
		for key, sel := range e.book {
			if key.MarketID != id {
				continue
			}
			found = true
			copied := *sel
			copied.FetchedAt = time.Now()
			out[key] = &copied
		}
		if !found {
			errored = append(errored, id)
		}
	}
	return out, errored, nil
}

// Login is a no-op on the simulated exchange.
func (e *Exchange) Login(ctx context.Context) error { return nil }

// PlaceOrders accepts intents and rests or fills them against the book.
// The BetDAQ flavour withholds references from the placement response and
// publishes them on the changed-orders feed instead.
func (e *Exchange) PlaceOrders(ctx context.Context, intents []*models.Order) (map[uuid.UUID]*models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make(map[uuid.UUID]*models.Order, len(intents))
	for _, intent := range intents {
		if err := intent.Validate(); err != nil {
			e.logger.WithError(err).WithField("order_id", intent.ID).Warn("rejecting invalid order")
			continue
		}

		e.nextRef++
		tracked := *intent
		tracked.Ref = fmt.Sprintf("P%d-%d", int(e.id), e.nextRef)
		tracked.Status = models.OrderUnmatched
		tracked.UnmatchedStake = tracked.Stake
		tracked.PlacedAt = time.Now()
		e.orders[tracked.ID] = &tracked
		e.byRef[tracked.Ref] = &tracked
		e.record(&tracked)
		e.tryFill(&tracked)

		report := tracked
		if e.id == models.ExchangeBDAQ {
			// Async flavour: reference arrives via ListChangedOrders only.
			report.Ref = ""
		}
		reports[intent.ID] = &report
	}
	return reports, nil
}

// CancelOrders cancels unmatched orders.
func (e *Exchange) CancelOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		tracked, ok := e.orders[o.ID]
		if !ok || tracked.Status.Terminal() {
			continue
		}
		tracked.Status = models.OrderCancelled
		tracked.UnmatchedStake = 0
		e.record(tracked)
		report := *tracked
		reports[o.ID] = &report
	}
	return reports, nil
}

// UpdateOrders reprices unmatched orders in place and re-evaluates fills.
func (e *Exchange) UpdateOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		tracked, ok := e.orders[o.ID]
		if !ok || !tracked.Unmatched() {
			continue
		}
		tracked.Price = o.Price
		e.record(tracked)
		e.tryFill(tracked)
		report := *tracked
		reports[o.ID] = &report
	}
	return reports, nil
}

// ListChangedOrders returns order changes after the given sequence number,
// keyed by reference, newest state per reference.
func (e *Exchange) ListChangedOrders(ctx context.Context, since int64) (map[string]*models.Order, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]*models.Order)
	newSeq := since
	for _, ch := range e.changes {
		if ch.seq <= since {
			continue
		}
		copied := *ch.order
		out[ch.order.Ref] = &copied
		if ch.seq > newSeq {
			newSeq = ch.seq
		}
	}
	return out, newSeq, nil
}

// OrderStatus returns the current state of tracked orders.
func (e *Exchange) OrderStatus(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make(map[uuid.UUID]*models.Order, len(orders))
	for _, o := range orders {
		tracked, ok := e.orders[o.ID]
		if !ok {
			continue
		}
		copied := *tracked
		reports[o.ID] = &copied
	}
	return reports, nil
}

// Bootstrap drains the changed-orders feed: each call returns everything
// after the previous call's cursor, so repeating until empty establishes the
// startup baseline.
func (e *Exchange) Bootstrap(ctx context.Context) (map[string]*models.Order, int64, error) {
	e.mu.Lock()
	since := e.bootSeq
	e.bootSeq = e.seq
	e.mu.Unlock()
	return e.ListChangedOrders(ctx, since)
}

// Balance returns the configured balance less matched stake exposure.
func (e *Exchange) Balance(ctx context.Context) (*models.AccountBalance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var exposure float64
	for _, o := range e.orders {
		if o.Status == models.OrderUnmatched || o.Status == models.OrderMatched {
			exposure += o.MatchedStake + o.UnmatchedStake
		}
	}
	return &models.AccountBalance{
		ExchangeID: e.id,
		Available:  e.balance - exposure,
		Exposure:   exposure,
		FetchedAt:  time.Now(),
	}, nil
}

// PerMarketPlacement reports the BetDAQ one-call-per-market constraint.
func (e *Exchange) PerMarketPlacement() bool {
	return e.id == models.ExchangeBDAQ
}

// tryFill matches an unmatched order against the stored book: a back order
// fills when someone lays at or above its price, a lay order when someone
// backs at or below. Fills are all-or-nothing. Caller holds the lock.
func (e *Exchange) tryFill(o *models.Order) {
	sel, ok := e.book[models.SelectionKey{MarketID: o.MarketID, SelectionID: o.SelectionID}]
	if !ok {
		return
	}

	filled := false
	switch o.Side {
	case models.SideBack:
		filled = sel.BestBack() > models.MinOdds && sel.BestBack() >= o.Price
	case models.SideLay:
		filled = sel.BestLay() < models.MaxOdds && sel.BestLay() <= o.Price
	}
	if !filled {
		return
	}

	o.Status = models.OrderMatched
	o.MatchedStake = o.Stake
	o.UnmatchedStake = 0
	e.record(o)
}

// record appends a change-feed entry for the order. Caller holds the lock.
func (e *Exchange) record(o *models.Order) {
	e.seq++
	copied := *o
	e.changes = append(e.changes, change{seq: e.seq, order: &copied})
}
