package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository handles transaction record persistence
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Upsert inserts a transaction record keyed by tx_hash. Re-syncing the same
// record updates the mutable fields in place; created_at is set once at first
// insertion and never rewritten. Returns whether a new row was inserted.
func (r *TransactionRepository) Upsert(ctx context.Context, tx *models.Transaction) (bool, error) {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	now := time.Now()

	query := `
		INSERT INTO transactions (
			id, tx_hash, owner_address, from_address, to_address, amount,
			token_symbol, kind, block_number, gas_used, gas_price, status,
			block_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		ON CONFLICT (tx_hash) DO UPDATE SET
			owner_address = EXCLUDED.owner_address,
			from_address = EXCLUDED.from_address,
			to_address = EXCLUDED.to_address,
			amount = EXCLUDED.amount,
			token_symbol = EXCLUDED.token_symbol,
			kind = EXCLUDED.kind,
			block_number = EXCLUDED.block_number,
			gas_used = EXCLUDED.gas_used,
			gas_price = EXCLUDED.gas_price,
			status = EXCLUDED.status,
			block_time = EXCLUDED.block_time,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`

	var inserted bool
	err := r.db.Pool().QueryRow(ctx, query,
		tx.ID,
		tx.TxHash,
		types.NormalizeAddress(tx.OwnerAddress),
		tx.From,
		tx.To,
		tx.Amount,
		tx.TokenSymbol,
		tx.Kind,
		tx.BlockNumber,
		tx.GasUsed,
		tx.GasPrice,
		tx.Status,
		tx.BlockTime,
		now,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert transaction %s: %w", tx.TxHash, err)
	}

	return inserted, nil
}

// GetByHash retrieves a transaction by its hash
func (r *TransactionRepository) GetByHash(ctx context.Context, txHash string) (*models.Transaction, error) {
	query := selectTransactionColumns + ` WHERE tx_hash = $1`

	row := r.db.Pool().QueryRow(ctx, query, txHash)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", txHash, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListByOwner retrieves an address's transactions newest-first by insertion
// time, capped at limit.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerAddress string, limit int) ([]*models.Transaction, error) {
	query := selectTransactionColumns + `
		WHERE owner_address = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, types.NormalizeAddress(ownerAddress), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

const selectTransactionColumns = `
	SELECT id, tx_hash, owner_address, from_address, to_address, amount,
	       token_symbol, kind, block_number, gas_used, gas_price, status,
	       block_time, created_at, updated_at
	FROM transactions`

// scanTransaction scans one transaction row
func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction

	err := row.Scan(
		&tx.ID,
		&tx.TxHash,
		&tx.OwnerAddress,
		&tx.From,
		&tx.To,
		&tx.Amount,
		&tx.TokenSymbol,
		&tx.Kind,
		&tx.BlockNumber,
		&tx.GasUsed,
		&tx.GasPrice,
		&tx.Status,
		&tx.BlockTime,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &tx, nil
}
