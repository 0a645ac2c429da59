package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates a requested row does not exist
var ErrNotFound = errors.New("not found")

// AccountRepository handles account snapshot persistence
type AccountRepository struct {
	db *PostgresDB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *PostgresDB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindOrCreate returns the account for an address, creating an empty snapshot
// when none exists. Concurrent callers racing on the same address converge on
// one row: the insert is ON CONFLICT DO NOTHING and losers fall through to the
// read. The returned bool reports whether a new row was created.
func (r *AccountRepository) FindOrCreate(ctx context.Context, address string) (*models.Account, bool, error) {
	address = types.NormalizeAddress(address)

	now := time.Now()
	holdingsJSON, err := json.Marshal([]types.Holding{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal holdings: %w", err)
	}

	insert := `
		INSERT INTO accounts (id, address, holdings, portfolio_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (address) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, insert,
		uuid.New().String(),
		address,
		holdingsJSON,
		decimal.Zero,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create account: %w", err)
	}

	account, err := r.GetByAddress(ctx, address)
	if err != nil {
		return nil, false, err
	}

	return account, result.RowsAffected() > 0, nil
}

// GetByAddress retrieves an account snapshot by its lowercase address
func (r *AccountRepository) GetByAddress(ctx context.Context, address string) (*models.Account, error) {
	address = types.NormalizeAddress(address)

	query := `
		SELECT id, address, holdings, portfolio_value, last_synced_at, created_at, updated_at
		FROM accounts
		WHERE address = $1
	`

	var account models.Account
	var holdingsJSON []byte

	err := r.db.Pool().QueryRow(ctx, query, address).Scan(
		&account.ID,
		&account.Address,
		&holdingsJSON,
		&account.PortfolioValue,
		&account.LastSyncedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", address, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if len(holdingsJSON) > 0 {
		if err := json.Unmarshal(holdingsJSON, &account.Holdings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
		}
	}

	return &account, nil
}

// UpdateSnapshot replaces an account's holdings, derived portfolio value and
// sync timestamp in a single write.
func (r *AccountRepository) UpdateSnapshot(ctx context.Context, address string, holdings []types.Holding, portfolioValue decimal.Decimal, syncedAt time.Time) error {
	address = types.NormalizeAddress(address)

	holdingsJSON, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	query := `
		UPDATE accounts
		SET holdings = $2, portfolio_value = $3, last_synced_at = $4, updated_at = $5
		WHERE address = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		address,
		holdingsJSON,
		portfolioValue,
		syncedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update account snapshot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", address, ErrNotFound)
	}

	return nil
}
