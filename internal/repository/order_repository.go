package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/cross-book/internal/database"
	"github.com/yourusername/cross-book/internal/models"
)

// PostgresOrderRepository implements OrderRepository for PostgreSQL
type PostgresOrderRepository struct {
	db *database.DB
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *database.DB) OrderRepository {
	return &PostgresOrderRepository{db: db}
}

const orderUpsertQuery = `
	INSERT INTO orders (id, exchange_id, market_id, selection_id, side, price, stake,
	                    status, ref, matched_stake, unmatched_stake, placed_at,
	                    reset_count, withdrawal_seq, persistence, cancel_running, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	ON CONFLICT (id) DO UPDATE SET
		price = EXCLUDED.price,
		stake = EXCLUDED.stake,
		status = EXCLUDED.status,
		ref = EXCLUDED.ref,
		matched_stake = EXCLUDED.matched_stake,
		unmatched_stake = EXCLUDED.unmatched_stake,
		placed_at = EXCLUDED.placed_at,
		updated_at = NOW()
`

// Upsert inserts or updates one order
func (r *PostgresOrderRepository) Upsert(ctx context.Context, o *models.Order) error {
	_, err := r.db.GetPool().Exec(ctx, orderUpsertQuery,
		o.ID, o.ExchangeID, o.MarketID, o.SelectionID, o.Side, o.Price, o.Stake,
		o.Status, o.Ref, o.MatchedStake, o.UnmatchedStake, nullableTime(o.PlacedAt),
		o.ResetCount, o.WithdrawalSeq, o.Persistence, o.CancelRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order: %w", err)
	}
	return nil
}

// UpsertBatch upserts orders in one implicit transaction via a batch
func (r *PostgresOrderRepository) UpsertBatch(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(orderUpsertQuery,
			o.ID, o.ExchangeID, o.MarketID, o.SelectionID, o.Side, o.Price, o.Stake,
			o.Status, o.Ref, o.MatchedStake, o.UnmatchedStake, nullableTime(o.PlacedAt),
			o.ResetCount, o.WithdrawalSeq, o.Persistence, o.CancelRunning,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range orders {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert order batch: %w", err)
		}
	}
	return nil
}

const orderSelectColumns = `
	id, exchange_id, market_id, selection_id, side, price, stake, status,
	COALESCE(ref, ''), matched_stake, unmatched_stake,
	COALESCE(placed_at, 'epoch'::timestamptz),
	reset_count, withdrawal_seq, persistence, cancel_running
`

// GetActive returns all orders not yet matched or cancelled
func (r *PostgresOrderRepository) GetActive(ctx context.Context) ([]*models.Order, error) {
	query := `SELECT ` + orderSelectColumns + `
		FROM orders
		WHERE status IN ($1, $2)
		ORDER BY placed_at ASC NULLS FIRST
	`

	rows, err := r.db.GetPool().Query(ctx, query, models.OrderNotPlaced, models.OrderUnmatched)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByRef returns the order carrying the given exchange reference
func (r *PostgresOrderRepository) GetByRef(ctx context.Context, ex models.ExchangeID, ref string) (*models.Order, error) {
	query := `SELECT ` + orderSelectColumns + ` FROM orders WHERE exchange_id = $1 AND ref = $2`

	rows, err := r.db.GetPool().Query(ctx, query, ex, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to query order by ref: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query order by ref: %w", err)
		}
		return nil, models.ErrNotFound
	}
	return scanOrder(rows)
}

func scanOrder(rows pgx.Rows) (*models.Order, error) {
	o := &models.Order{}
	err := rows.Scan(
		&o.ID, &o.ExchangeID, &o.MarketID, &o.SelectionID, &o.Side, &o.Price, &o.Stake,
		&o.Status, &o.Ref, &o.MatchedStake, &o.UnmatchedStake, &o.PlacedAt,
		&o.ResetCount, &o.WithdrawalSeq, &o.Persistence, &o.CancelRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return o, nil
}
