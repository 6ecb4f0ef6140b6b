// Package repository persists the bot's working state: orders, latest price
// ladders, matched market/selection mappings and balance snapshots. All
// writes are idempotent upserts so replaying a tick's persistence is safe.
package repository

import (
	"context"
	"time"

	"github.com/yourusername/cross-book/internal/models"
)

// OrderRepository stores order state, keyed by local id.
type OrderRepository interface {
	Upsert(ctx context.Context, order *models.Order) error
	UpsertBatch(ctx context.Context, orders []*models.Order) error

	// GetActive returns orders not yet in a terminal state, used to rebuild
	// tracking after a restart.
	GetActive(ctx context.Context) ([]*models.Order, error)

	GetByRef(ctx context.Context, ex models.ExchangeID, ref string) (*models.Order, error)
}

// SelectionRepository stores the latest price ladder per selection.
type SelectionRepository interface {
	UpsertLatest(ctx context.Context, selections []*models.Selection) error
}

// MatchRepository stores the identity mapping between the two exchanges'
// markets and selections.
type MatchRepository interface {
	UpsertMarket(ctx context.Context, m *models.MatchedMarket) error

	// GetUpcoming returns matched markets starting within the window,
	// selections included.
	GetUpcoming(ctx context.Context, from, to time.Time) ([]*models.MatchedMarket, error)
}

// BalanceRepository stores account balance snapshots.
type BalanceRepository interface {
	Insert(ctx context.Context, b *models.AccountBalance) error
	Latest(ctx context.Context, ex models.ExchangeID) (*models.AccountBalance, error)
}
