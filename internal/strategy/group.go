package strategy

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yourusername/cross-book/internal/models"
)

// Group is the set of currently active strategies. It fans price and order
// updates out to members and fans pending intents back in, partitioned by
// exchange. All mutation happens on the engine tick goroutine; the lock only
// guards against concurrent reads from the monitor.
type Group struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewGroup creates an empty strategy group.
func NewGroup() *Group {
	return &Group{strategies: make(map[string]Strategy)}
}

// Add registers a strategy, replacing any existing one with the same name.
func (g *Group) Add(s Strategy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.strategies[s.Name()] = s
}

// Remove drops a strategy by name.
func (g *Group) Remove(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.strategies, name)
}

// Len returns the number of active strategies.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.strategies)
}

// Strategies returns a snapshot of the members.
func (g *Group) Strategies() []Strategy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Strategy, 0, len(g.strategies))
	for _, s := range g.strategies {
		out = append(out, s)
	}
	return out
}

// UpdateOrders pushes exchange order reports into every strategy; each folds
// only the reports for orders it tracks.
func (g *Group) UpdateOrders(reports map[uuid.UUID]*models.Order) {
	if len(reports) == 0 {
		return
	}
	for _, s := range g.Strategies() {
		s.UpdateOrders(reports)
	}
}

// UpdatePricesIf evaluates every strategy marked updated this tick against
// the book.
func (g *Group) UpdatePricesIf(book PriceBook) {
	for _, s := range g.Strategies() {
		if s.WasUpdated() {
			s.UpdatePrices(book)
		}
	}
}

// UnmatchedOrders unions live orders across all strategies, per exchange.
func (g *Group) UnmatchedOrders() map[models.ExchangeID][]*models.Order {
	out := make(map[models.ExchangeID][]*models.Order)
	for _, s := range g.Strategies() {
		for ex, orders := range s.UnmatchedOrders() {
			out[ex] = append(out[ex], orders...)
		}
	}
	return out
}

// PendingPlace unions new-order intents from strategies updated this tick.
func (g *Group) PendingPlace() map[models.ExchangeID][]*models.Order {
	return g.pending(Strategy.PendingPlace)
}

// PendingCancel unions cancel intents from strategies updated this tick.
func (g *Group) PendingCancel() map[models.ExchangeID][]*models.Order {
	return g.pending(Strategy.PendingCancel)
}

// PendingUpdate unions reprice intents from strategies updated this tick.
func (g *Group) PendingUpdate() map[models.ExchangeID][]*models.Order {
	return g.pending(Strategy.PendingUpdate)
}

func (g *Group) pending(f func(Strategy) map[models.ExchangeID][]*models.Order) map[models.ExchangeID][]*models.Order {
	out := make(map[models.ExchangeID][]*models.Order)
	for _, s := range g.Strategies() {
		if !s.WasUpdated() {
			continue
		}
		for ex, orders := range f(s) {
			out[ex] = append(out[ex], orders...)
		}
	}
	return out
}

// RemoveByMarket drops every strategy that needs the given market on the
// given exchange. Called when a price fetch reports the market errored or
// gone.
func (g *Group) RemoveByMarket(ex models.ExchangeID, marketID int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var removed []string
	for name, s := range g.strategies {
		for _, id := range s.MarketIDs()[ex] {
			if id == marketID {
				delete(g.strategies, name)
				removed = append(removed, name)
				break
			}
		}
	}
	return removed
}
