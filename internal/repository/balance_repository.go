package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/cross-book/internal/database"
	"github.com/yourusername/cross-book/internal/models"
)

// PostgresBalanceRepository implements BalanceRepository for PostgreSQL
type PostgresBalanceRepository struct {
	db *database.DB
}

// NewPostgresBalanceRepository creates a new balance repository
func NewPostgresBalanceRepository(db *database.DB) BalanceRepository {
	return &PostgresBalanceRepository{db: db}
}

// Insert stores one balance snapshot
func (r *PostgresBalanceRepository) Insert(ctx context.Context, b *models.AccountBalance) error {
	query := `
		INSERT INTO account_balances (exchange_id, available, exposure, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (exchange_id, fetched_at) DO NOTHING
	`
	_, err := r.db.GetPool().Exec(ctx, query, b.ExchangeID, b.Available, b.Exposure, b.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to insert balance snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for one exchange
func (r *PostgresBalanceRepository) Latest(ctx context.Context, ex models.ExchangeID) (*models.AccountBalance, error) {
	query := `
		SELECT exchange_id, available, exposure, fetched_at
		FROM account_balances
		WHERE exchange_id = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	b := &models.AccountBalance{}
	err := r.db.GetPool().QueryRow(ctx, query, ex).Scan(&b.ExchangeID, &b.Available, &b.Exposure, &b.FetchedAt)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest balance: %w", err)
	}
	return b, nil
}
