package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/cross-book/internal/database"
	"github.com/yourusername/cross-book/internal/models"
)

// PostgresSelectionRepository implements SelectionRepository for PostgreSQL
type PostgresSelectionRepository struct {
	db *database.DB
}

// NewPostgresSelectionRepository creates a new selection repository
func NewPostgresSelectionRepository(db *database.DB) SelectionRepository {
	return &PostgresSelectionRepository{db: db}
}

const selectionUpsertQuery = `
	INSERT INTO selections (exchange_id, market_id, selection_id, name, back, lay,
	                        last_matched_price, last_matched_amount,
	                        reset_count, withdrawal_seq, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (exchange_id, market_id, selection_id) DO UPDATE SET
		name = EXCLUDED.name,
		back = EXCLUDED.back,
		lay = EXCLUDED.lay,
		last_matched_price = EXCLUDED.last_matched_price,
		last_matched_amount = EXCLUDED.last_matched_amount,
		reset_count = EXCLUDED.reset_count,
		withdrawal_seq = EXCLUDED.withdrawal_seq,
		fetched_at = EXCLUDED.fetched_at
`

// UpsertLatest overwrites the stored ladder for each selection
func (r *PostgresSelectionRepository) UpsertLatest(ctx context.Context, selections []*models.Selection) error {
	if len(selections) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sel := range selections {
		back, err := json.Marshal(sel.Back)
		if err != nil {
			return fmt.Errorf("failed to marshal back ladder: %w", err)
		}
		lay, err := json.Marshal(sel.Lay)
		if err != nil {
			return fmt.Errorf("failed to marshal lay ladder: %w", err)
		}
		batch.Queue(selectionUpsertQuery,
			sel.ExchangeID, sel.MarketID, sel.ID, sel.Name, back, lay,
			sel.LastMatchedPrice, sel.LastMatchedAmount,
			sel.ResetCount, sel.WithdrawalSeq, sel.FetchedAt,
		)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range selections {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert selection batch: %w", err)
		}
	}
	return nil
}

// nullableTime maps the zero time to NULL.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
