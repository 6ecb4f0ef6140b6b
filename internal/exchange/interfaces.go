// Package exchange defines the collaborator contracts the bot core consumes:
// price fetching and order execution against the two betting exchanges.
// Exchange-specific throttling is handled inside the implementations.
package exchange

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/cross-book/internal/models"
)

// PriceService fetches current price ladders for a batch of markets.
// Implementations own batching/chunking to the exchange API limits; callers
// issue one logical call per exchange per tick.
type PriceService interface {
	// FetchPrices returns fresh selection snapshots for the requested
	// markets keyed by (market id, selection id), plus the ids of markets
	// the exchange reported as errored or no longer available.
	FetchPrices(ctx context.Context, marketIDs []int64) (map[models.SelectionKey]*models.Selection, []int64, error)
}

// OrderService executes and tracks orders on one exchange. All result maps
// are keyed by the local order id so callers can fold reports back into
// their tracked orders.
type OrderService interface {
	// Login establishes a session where the exchange requires one.
	Login(ctx context.Context) error

	// PlaceOrders submits not-yet-placed intents. On the synchronous
	// exchange the returned reports carry exchange references; on the
	// asynchronous exchange references stay empty until correlated through
	// ListChangedOrders.
	PlaceOrders(ctx context.Context, intents []*models.Order) (map[uuid.UUID]*models.Order, error)

	// CancelOrders cancels unmatched orders.
	CancelOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error)

	// UpdateOrders reprices unmatched orders. Where the exchange implements
	// repricing as cancel-and-replace, the report under the old local id
	// carries a fresh id and reference; callers swap their tracked order for
	// the replacement.
	UpdateOrders(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error)

	// ListChangedOrders returns orders changed since the given sequence
	// number, keyed by exchange reference, with the new sequence cursor.
	// Only meaningful on the asynchronous exchange.
	ListChangedOrders(ctx context.Context, since int64) (map[string]*models.Order, int64, error)

	// OrderStatus fetches current status for tracked orders. Only
	// meaningful on the synchronous exchange.
	OrderStatus(ctx context.Context, orders []*models.Order) (map[uuid.UUID]*models.Order, error)

	// Bootstrap drains the changed-orders feed at startup, establishing the
	// baseline sequence number. Callers repeat until the result is empty.
	Bootstrap(ctx context.Context) (map[string]*models.Order, int64, error)

	// Balance returns current account funds.
	Balance(ctx context.Context) (*models.AccountBalance, error)
}

// PerMarketPlacement reports whether the exchange requires order placement
// to be submitted one call per market. Implemented by the BetDAQ service.
type PerMarketPlacement interface {
	PerMarketPlacement() bool
}
