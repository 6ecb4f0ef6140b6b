package strategy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/cross-book/internal/models"
)

// DualMaker runs one market maker per exchange over a matched selection pair
/// behind a single strategy interface. There is no cross-exchange logic: all
// queries and updates are plain unions over the two inner makers.
type DualMaker struct {
	name     string
	interval int
	updated  bool
	makers   [2]*MarketMaker
}

// NewDualMaker builds market makers for both exchanges' views of a matched
// selection.
func NewDualMaker(bdaqKey, bfKey models.SelectionKey, cfg MarketMakerConfig, logger *logrus.Entry) *DualMaker {
	if cfg.Interval <= 0 {
		cfg.Interval = 1
	}
	return &DualMaker{
		name:     fmt.Sprintf("dual-maker-%d-%d", bdaqKey.MarketID, bdaqKey.SelectionID),
		interval: cfg.Interval,
		makers: [2]*MarketMaker{
			NewMarketMaker(models.ExchangeBDAQ, bdaqKey, cfg, logger),
			NewMarketMaker(models.ExchangeBF, bfKey, cfg, logger),
		},
	}
}

func (s *DualMaker) Name() string            { return s.name }
func (s *DualMaker) UpdateInterval() int     { return s.interval }
func (s *DualMaker) WasUpdated() bool        { return s.updated }
func (s *DualMaker) SetUpdated(updated bool) { s.updated = updated }

func (s *DualMaker) MarketIDs() map[models.ExchangeID][]int64 {
	out := make(map[models.ExchangeID][]int64)
	for _, m := range s.makers {
		for ex, ids := range m.MarketIDs() {
			out[ex] = append(out[ex], ids...)
		}
	}
	return out
}

func (s *DualMaker) UpdatePrices(book PriceBook) {
	for _, m := range s.makers {
		m.UpdatePrices(book)
	}
}

func (s *DualMaker) UpdateOrders(reports map[uuid.UUID]*models.Order) {
	for _, m := range s.makers {
		m.UpdateOrders(reports)
	}
}

func (s *DualMaker) UnmatchedOrders() map[models.ExchangeID][]*models.Order {
	return s.union(func(m *MarketMaker) map[models.ExchangeID][]*models.Order {
		return m.UnmatchedOrders()
	})
}

func (s *DualMaker) PendingPlace() map[models.ExchangeID][]*models.Order {
	return s.union(func(m *MarketMaker) map[models.ExchangeID][]*models.Order {
		return m.PendingPlace()
	})
}

func (s *DualMaker) PendingCancel() map[models.ExchangeID][]*models.Order {
	return s.union(func(m *MarketMaker) map[models.ExchangeID][]*models.Order {
		return m.PendingCancel()
	})
}

func (s *DualMaker) PendingUpdate() map[models.ExchangeID][]*models.Order {
	return s.union(func(m *MarketMaker) map[models.ExchangeID][]*models.Order {
		return m.PendingUpdate()
	})
}

func (s *DualMaker) SetTicksToLive(ticks int) {
	for _, m := range s.makers {
		m.SetTicksToLive(ticks)
	}
}

// Finished reports done only when both inner makers have closed out.
func (s *DualMaker) Finished() bool {
	return s.makers[0].Finished() && s.makers[1].Finished()
}

func (s *DualMaker) union(f func(*MarketMaker) map[models.ExchangeID][]*models.Order) map[models.ExchangeID][]*models.Order {
	out := make(map[models.ExchangeID][]*models.Order)
	for _, m := range s.makers {
		for ex, orders := range f(m) {
			out[ex] = append(out[ex], orders...)
		}
	}
	return out
}
