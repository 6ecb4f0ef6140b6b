// Package bot contains the tick-driven core: the engine loop, the pricing
// and order managers, the shared price store and the automations that spawn
// and retire strategies.
package bot

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/yourusername/cross-book/internal/models"
	"github.com/yourusername/cross-book/internal/strategy"
)

// PriceStore holds the authoritative latest selection snapshots. Entries
// expire after the configured TTL, so a selection whose prices have not been
// refreshed recently simply goes missing from lookups and strategies skip
// their evaluation instead of acting on stale data.
//
// Only the pricing manager writes; strategies read on the same tick
// goroutine after the write completes.
type PriceStore struct {
	cache *gocache.Cache
}

// NewPriceStore creates a store whose entries expire after ttl.
func NewPriceStore(ttl time.Duration) *PriceStore {
	return &PriceStore{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func selectionCacheKey(ex models.ExchangeID, marketID, selectionID int64) string {
	return fmt.Sprintf("%d:%d:%d", int(ex), marketID, selectionID)
}

// Put replaces the stored snapshots for the given selections.
func (p *PriceStore) Put(selections []*models.Selection) {
	for _, sel := range selections {
		p.cache.Set(selectionCacheKey(sel.ExchangeID, sel.MarketID, sel.ID), sel, gocache.DefaultExpiration)
	}
}

// Selection returns the latest snapshot, or false when never fetched or
// expired. Implements strategy.PriceBook.
func (p *PriceStore) Selection(ex models.ExchangeID, marketID, selectionID int64) (*models.Selection, bool) {
	v, ok := p.cache.Get(selectionCacheKey(ex, marketID, selectionID))
	if !ok {
		return nil, false
	}
	return v.(*models.Selection), true
}

var _ strategy.PriceBook = (*PriceStore)(nil)
