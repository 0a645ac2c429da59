// Package service implements the reconciliation engine: the single write path
// that folds chain state into the persisted account snapshots and transaction
// records.
package service

import (
	"context"
	"time"

	"github.com/defi-dashboard/internal/chain"
	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/models"
	"github.com/defi-dashboard/internal/pricing"
	"github.com/defi-dashboard/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultTransactionLimit caps transaction listings
const DefaultTransactionLimit = 50

// Dependency interfaces for injection

// ChainClient reads balances and transfer history from the chain
type ChainClient interface {
	NativeBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, address string) (decimal.Decimal, error)
	TransferHistory(ctx context.Context, address string) ([]*types.TransferRecord, error)
}

// AccountRepository persists account snapshots
type AccountRepository interface {
	FindOrCreate(ctx context.Context, address string) (*models.Account, bool, error)
	GetByAddress(ctx context.Context, address string) (*models.Account, error)
	UpdateSnapshot(ctx context.Context, address string, holdings []types.Holding, portfolioValue decimal.Decimal, syncedAt time.Time) error
}

// TransactionRepository persists transaction records
type TransactionRepository interface {
	Upsert(ctx context.Context, tx *models.Transaction) (bool, error)
	ListByOwner(ctx context.Context, ownerAddress string, limit int) ([]*models.Transaction, error)
}

// Cache accelerates reads; the engine treats it as optional and best-effort
type Cache interface {
	PortfolioKey(address string) string
	TransactionsKey(address string) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	InvalidateAddress(ctx context.Context, address string) error
}

// Notifier pushes realtime updates to subscribed clients
type Notifier interface {
	PortfolioUpdated(address string, account *models.Account)
	TransactionsSynced(address string, count int)
}

// Engine coordinates chain reads, persistence and cache invalidation.
// Chain state is authoritative: every successful sync overwrites the snapshot
// and upserts history keyed by transaction hash, so re-running a sync is safe.
type Engine struct {
	chainClient     ChainClient
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	priceSource     pricing.Source
	cache           Cache
	notifier        Notifier
	nativeSymbol    string
	tokenSymbol     string
	logger          *logging.Logger
}

// Option configures optional engine dependencies
type Option func(*Engine)

// WithCache attaches a read cache to the engine
func WithCache(cache Cache) Option {
	return func(e *Engine) { e.cache = cache }
}

// WithNotifier attaches a realtime notifier to the engine
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// NewEngine creates a reconciliation engine
func NewEngine(
	chainClient ChainClient,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	priceSource pricing.Source,
	nativeSymbol, tokenSymbol string,
	opts ...Option,
) *Engine {
	e := &Engine{
		chainClient:     chainClient,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		priceSource:     priceSource,
		nativeSymbol:    nativeSymbol,
		tokenSymbol:     tokenSymbol,
		logger:          logging.GetGlobalLogger().WithField("component", "reconcile"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// SyncResult summarizes one reconciliation pass
type SyncResult struct {
	Address            string          `json:"address"`
	TransactionsSynced int             `json:"transactionsSynced"`
	NewTransactions    int             `json:"newTransactions"`
	PortfolioValue     decimal.Decimal `json:"portfolioValue"`
	SyncedAt           time.Time       `json:"syncedAt"`
}

// GetPortfolio returns the snapshot for an address, creating the account on
// first sight and refreshing its holdings from live chain balances. The cache
// short-circuits the chain read for its TTL window; transaction records are
// untouched either way, those move only through SyncTransactions.
func (e *Engine) GetPortfolio(ctx context.Context, address string) (*models.Account, error) {
	if !types.ValidAddress(address) {
		return nil, invalidAddressError(address)
	}
	address = types.NormalizeAddress(address)

	if e.cache != nil {
		var cached models.Account
		found, err := e.cache.Get(ctx, e.cache.PortfolioKey(address), &cached)
		if err != nil {
			e.logger.WithError(err).Warn("Portfolio cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	_, created, err := e.accountRepo.FindOrCreate(ctx, address)
	if err != nil {
		return nil, storageError("failed to load account", err)
	}

	if created {
		e.logger.WithField("address", address).Info("Created account on first lookup")
	}

	if _, _, err := e.refreshSnapshot(ctx, address); err != nil {
		return nil, err
	}

	account, err := e.accountRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, storageError("failed to load account", err)
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, e.cache.PortfolioKey(address), account); err != nil {
			e.logger.WithError(err).Warn("Portfolio cache write failed")
		}
	}

	return account, nil
}

// ListTransactions returns an address's records newest-first. Limits at or
// below zero collapse to the default; the engine imposes no upper bound, so
// callers cap the limit themselves. An address with no history yields an
// empty list, not an error.
func (e *Engine) ListTransactions(ctx context.Context, address string, limit int) ([]*models.Transaction, error) {
	if !types.ValidAddress(address) {
		return nil, invalidAddressError(address)
	}
	address = types.NormalizeAddress(address)

	if limit <= 0 {
		limit = DefaultTransactionLimit
	}

	cacheable := e.cache != nil && limit == DefaultTransactionLimit

	if cacheable {
		var cached []*models.Transaction
		found, err := e.cache.Get(ctx, e.cache.TransactionsKey(address), &cached)
		if err != nil {
			e.logger.WithError(err).Warn("Transaction cache read failed")
		} else if found {
			return cached, nil
		}
	}

	transactions, err := e.transactionRepo.ListByOwner(ctx, address, limit)
	if err != nil {
		return nil, storageError("failed to list transactions", err)
	}

	if transactions == nil {
		transactions = []*models.Transaction{}
	}

	if cacheable {
		if err := e.cache.Set(ctx, e.cache.TransactionsKey(address), transactions); err != nil {
			e.logger.WithError(err).Warn("Transaction cache write failed")
		}
	}

	return transactions, nil
}

// SyncTransactions reconciles an address against the chain: it upserts the
// full transfer history keyed by hash, then rebuilds the holdings snapshot
// from live balances. The first storage failure aborts the pass; since every
// write is idempotent the next sync converges.
func (e *Engine) SyncTransactions(ctx context.Context, address string) (*SyncResult, error) {
	if !types.ValidAddress(address) {
		return nil, invalidAddressError(address)
	}
	address = types.NormalizeAddress(address)

	if _, _, err := e.accountRepo.FindOrCreate(ctx, address); err != nil {
		return nil, storageError("failed to load account", err)
	}

	records, err := e.chainClient.TransferHistory(ctx, address)
	if err != nil {
		return nil, chain.AsServiceError(err)
	}

	inserted := 0
	for _, record := range records {
		tx := models.FromTransferRecord(record, address)
		wasInserted, err := e.transactionRepo.Upsert(ctx, tx)
		if err != nil {
			return nil, storageError("failed to upsert transaction", err)
		}
		if wasInserted {
			inserted++
		}
	}

	portfolioValue, syncedAt, err := e.refreshSnapshot(ctx, address)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.InvalidateAddress(ctx, address); err != nil {
			e.logger.WithError(err).Warn("Cache invalidation failed after sync")
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"address":        address,
		"records":        len(records),
		"new":            inserted,
		"portfolioValue": portfolioValue.String(),
	}).Info("Synced address")

	if e.notifier != nil {
		account, err := e.accountRepo.GetByAddress(ctx, address)
		if err != nil {
			e.logger.WithError(err).Warn("Failed to reload account for notification")
		} else {
			e.notifier.PortfolioUpdated(address, account)
			e.notifier.TransactionsSynced(address, len(records))
		}
	}

	return &SyncResult{
		Address:            address,
		TransactionsSynced: len(records),
		NewTransactions:    inserted,
		PortfolioValue:     portfolioValue,
		SyncedAt:           syncedAt,
	}, nil
}

// refreshSnapshot rebuilds the holdings snapshot from live balances and
// persists it with a fresh sync time. Chain failures surface before anything
// is written, so the stored snapshot stays untouched.
func (e *Engine) refreshSnapshot(ctx context.Context, address string) (decimal.Decimal, time.Time, error) {
	holdings, portfolioValue, err := e.buildHoldings(ctx, address)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}

	syncedAt := time.Now().UTC()
	if err := e.accountRepo.UpdateSnapshot(ctx, address, holdings, portfolioValue, syncedAt); err != nil {
		return decimal.Zero, time.Time{}, storageError("failed to update account snapshot", err)
	}

	return portfolioValue, syncedAt, nil
}

// buildHoldings reads live balances and values them with the price source.
// The portfolio value is always the sum of the holding values.
func (e *Engine) buildHoldings(ctx context.Context, address string) ([]types.Holding, decimal.Decimal, error) {
	nativeBalance, err := e.chainClient.NativeBalance(ctx, address)
	if err != nil {
		return nil, decimal.Zero, chain.AsServiceError(err)
	}

	tokenBalance, err := e.chainClient.TokenBalance(ctx, address)
	if err != nil {
		return nil, decimal.Zero, chain.AsServiceError(err)
	}

	holdings := []types.Holding{
		{Symbol: e.nativeSymbol, Balance: nativeBalance, Value: nativeBalance.Mul(e.priceFor(ctx, e.nativeSymbol))},
		{Symbol: e.tokenSymbol, Balance: tokenBalance, Value: tokenBalance.Mul(e.priceFor(ctx, e.tokenSymbol))},
	}

	portfolioValue := decimal.Zero
	for _, holding := range holdings {
		portfolioValue = portfolioValue.Add(holding.Value)
	}

	return holdings, portfolioValue, nil
}

// priceFor resolves a unit price, degrading to zero on lookup failure
func (e *Engine) priceFor(ctx context.Context, symbol string) decimal.Decimal {
	price, err := e.priceSource.PriceFor(ctx, symbol)
	if err != nil {
		e.logger.WithError(err).WithField("symbol", symbol).Warn("Price lookup failed, valuing at zero")
		return decimal.Zero
	}
	return price
}

func invalidAddressError(address string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeInvalidAddress,
		Message: "invalid address format",
		Details: map[string]interface{}{"address": address},
	}
}

func storageError(message string, err error) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeStorageError,
		Message: message,
		Details: map[string]interface{}{"cause": err.Error()},
	}
}
