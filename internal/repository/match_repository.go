package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/cross-book/internal/database"
	"github.com/yourusername/cross-book/internal/models"
)

// PostgresMatchRepository implements MatchRepository for PostgreSQL
type PostgresMatchRepository struct {
	db *database.DB
}

// NewPostgresMatchRepository creates a new match repository
func NewPostgresMatchRepository(db *database.DB) MatchRepository {
	return &PostgresMatchRepository{db: db}
}

// UpsertMarket stores a matched market pair and its selection mappings
func (r *PostgresMatchRepository) UpsertMarket(ctx context.Context, m *models.MatchedMarket) error {
	marketQuery := `
		INSERT INTO matched_markets (bdaq_market_id, bf_market_id, name, start_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bdaq_market_id, bf_market_id) DO UPDATE SET
			name = EXCLUDED.name,
			start_time = EXCLUDED.start_time
	`
	_, err := r.db.GetPool().Exec(ctx, marketQuery, m.BdaqMarketID, m.BfMarketID, m.Name, m.StartTime)
	if err != nil {
		return fmt.Errorf("failed to upsert matched market: %w", err)
	}

	selectionQuery := `
		INSERT INTO matched_selections (bdaq_market_id, bf_market_id, bdaq_selection_id, bf_selection_id, name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bdaq_market_id, bf_market_id, bdaq_selection_id) DO UPDATE SET
			bf_selection_id = EXCLUDED.bf_selection_id,
			name = EXCLUDED.name
	`
	for _, sel := range m.Selections {
		_, err := r.db.GetPool().Exec(ctx, selectionQuery,
			m.BdaqMarketID, m.BfMarketID, sel.BdaqSelectionID, sel.BfSelectionID, sel.Name)
		if err != nil {
			return fmt.Errorf("failed to upsert matched selection: %w", err)
		}
	}
	return nil
}

// GetUpcoming returns matched markets starting inside [from, to], selections
// included
func (r *PostgresMatchRepository) GetUpcoming(ctx context.Context, from, to time.Time) ([]*models.MatchedMarket, error) {
	marketQuery := `
		SELECT bdaq_market_id, bf_market_id, name, start_time
		FROM matched_markets
		WHERE start_time >= $1 AND start_time <= $2
		ORDER BY start_time ASC
	`

	rows, err := r.db.GetPool().Query(ctx, marketQuery, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming matched markets: %w", err)
	}
	defer rows.Close()

	var markets []*models.MatchedMarket
	for rows.Next() {
		m := &models.MatchedMarket{}
		if err := rows.Scan(&m.BdaqMarketID, &m.BfMarketID, &m.Name, &m.StartTime); err != nil {
			return nil, fmt.Errorf("failed to scan matched market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range markets {
		if err := r.loadSelections(ctx, m); err != nil {
			return nil, err
		}
	}
	return markets, nil
}

func (r *PostgresMatchRepository) loadSelections(ctx context.Context, m *models.MatchedMarket) error {
	query := `
		SELECT bdaq_selection_id, bf_selection_id, name
		FROM matched_selections
		WHERE bdaq_market_id = $1 AND bf_market_id = $2
	`

	rows, err := r.db.GetPool().Query(ctx, query, m.BdaqMarketID, m.BfMarketID)
	if err != nil {
		return fmt.Errorf("failed to query matched selections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sel models.MatchedSelection
		if err := rows.Scan(&sel.BdaqSelectionID, &sel.BfSelectionID, &sel.Name); err != nil {
			return fmt.Errorf("failed to scan matched selection: %w", err)
		}
		m.Selections = append(m.Selections, sel)
	}
	return rows.Err()
}
