package bot

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/cross-book/internal/exchange"
	"github.com/yourusername/cross-book/internal/metrics"
	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/repository"
	"github.com/yourusername/cross-book/internal/strategy"
)

// PricingManager decides per tick which strategies are due fresh prices,
// batches their market ids per exchange, fetches concurrently and merges the
// results into the price store after both workers join.
type PricingManager struct {
	group    *strategy.Group
	services map[models.ExchangeID]exchange.PriceService
	store    *PriceStore
	selRepo  repository.SelectionRepository
	logger   *logrus.Entry
}

// NewPricingManager creates a pricing manager.
func NewPricingManager(
	group *strategy.Group,
	services map[models.ExchangeID]exchange.PriceService,
	store *PriceStore,
	selRepo repository.SelectionRepository,
	logger *logrus.Entry,
) *PricingManager {
	return &PricingManager{
		group:    group,
		services: services,
		store:    store,
		selRepo:  selRepo,
		logger:   logger.WithField("component", "pricing_manager"),
	}
}

// UpdatePrices marks due strategies updated, fetches their markets' prices
// and stores the results. Strategies whose markets came back errored are
// removed from the group. Returns true when at least one strategy was due.
func (m *PricingManager) UpdatePrices(ctx context.Context, tick int64) bool {
	needed := make(map[models.ExchangeID]map[int64]bool)
	anyDue := false

	for _, s := range m.group.Strategies() {
		interval := s.UpdateInterval()
		if interval < 1 {
			interval = 1
		}
		due := tick%int64(interval) == 0
		s.SetUpdated(due)
		if !due {
			continue
		}
		anyDue = true
		for ex, ids := range s.MarketIDs() {
			if needed[ex] == nil {
				needed[ex] = make(map[int64]bool)
			}
			for _, id := range ids {
				needed[ex][id] = true
			}
		}
	}
	if !anyDue {
		return false
	}

	// One worker per exchange; results land in per-worker locals and merge
	// only after the join, keeping store writes single-threaded.
	// Selections collect into a flat slice: the two exchanges assign market
	// and selection ids independently, so any map shared across workers must
	// not be keyed by the bare (market, selection) pair.
	var mu sync.Mutex
	var fetched []*models.Selection
	errored := make(map[models.ExchangeID][]int64)

	g, gctx := errgroup.WithContext(ctx)
	for ex, ids := range needed {
		ex := ex
		if len(ids) == 0 {
			continue
		}
		svc, ok := m.services[ex]
		if !ok {
			continue
		}

		marketIDs := make([]int64, 0, len(ids))
		for id := range ids {
			marketIDs = append(marketIDs, id)
		}

		g.Go(func() error {
			start := time.Now()
			selections, bad, err := svc.FetchPrices(gctx, marketIDs)
			if err != nil {
				// Degrade to no new data for this exchange this tick; a
				// transport failure never means "market gone".
				metrics.RecordPriceFetch(ex.String(), "error", time.Since(start).Seconds())
				m.logger.WithError(err).WithField("exchange", ex.String()).Warn("price fetch failed")
				return nil
			}
			metrics.RecordPriceFetch(ex.String(), "ok", time.Since(start).Seconds())

			mu.Lock()
			for _, sel := range selections {
				fetched = append(fetched, sel)
			}
			errored[ex] = append(errored[ex], bad...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for ex, ids := range errored {
		for _, marketID := range ids {
			removed := m.group.RemoveByMarket(ex, marketID)
			if len(removed) > 0 {
				m.logger.WithFields(logrus.Fields{
					"exchange":   ex.String(),
					"market_id":  marketID,
					"strategies": removed,
				}).Info("market gone, removed strategies")
			}
		}
	}

	if len(fetched) > 0 {
		m.store.Put(fetched)
		m.persist(ctx, fetched)
	}
	return true
}

// persist writes the freshly fetched ladders through to the store. Failures
// only log: persistence is an audit trail, not the live path.
func (m *PricingManager) persist(ctx context.Context, fetched []*models.Selection) {
	if m.selRepo == nil {
		return
	}
	if err := m.selRepo.UpsertLatest(ctx, fetched); err != nil {
		m.logger.WithError(err).Warn("failed to persist selections")
	}
}
