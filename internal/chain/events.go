package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/defi-dashboard/internal/config"
	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/retry"
	"github.com/defi-dashboard/internal/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// ObservedEvent is one contract event seen by the watcher
type ObservedEvent struct {
	Name        types.ChainEventName `json:"name"`
	Address     string               `json:"address"`
	Amount      decimal.Decimal      `json:"amount"`
	TxKind      string               `json:"txKind,omitempty"`
	BlockNumber uint64               `json:"blockNumber"`
	TxHash      string               `json:"txHash"`
	ObservedAt  time.Time            `json:"observedAt"`
}

// EventSink receives observed events. Sinks must only produce observability
// output; account snapshots and transaction records are mutated exclusively
// through the reconciliation engine's upsert path.
type EventSink interface {
	Record(ctx context.Context, event *ObservedEvent)
}

// Watcher subscribes to PortfolioUpdated and TransactionRecorded logs over a
// websocket RPC endpoint and fans them out to the configured sinks.
// It is fire-and-forget: no engine operation depends on it.
type Watcher struct {
	wsURL        string
	contractABI  abi.ABI
	contractAddr common.Address
	sinks        []EventSink
	logger       *logging.Logger
}

// NewWatcher creates a watcher for the configured contract. Returns an error
// when no websocket endpoint is configured.
func NewWatcher(cfg *config.ChainConfig, sinks ...EventSink) (*Watcher, error) {
	if cfg.RPCWebsocket == "" {
		return nil, fmt.Errorf("no websocket RPC endpoint configured")
	}

	contractABI, err := parsePortfolioTokenABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &Watcher{
		wsURL:        cfg.RPCWebsocket,
		contractABI:  contractABI,
		contractAddr: common.HexToAddress(cfg.ContractAddress),
		sinks:        sinks,
		logger:       logging.GetGlobalLogger().WithField("component", "event-watcher"),
	}, nil
}

// Run subscribes and consumes logs until the context is cancelled,
// resubscribing with exponential backoff after stream failures.
func (w *Watcher) Run(ctx context.Context) {
	backoff := &retry.Config{
		MaxAttempts:  10,
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
	}

	for ctx.Err() == nil {
		result := retry.WithExponentialBackoff(ctx, backoff, func(ctx context.Context, attempt int) error {
			return w.consume(ctx)
		})

		if ctx.Err() != nil {
			return
		}

		if result.LastError != nil {
			w.logger.WithError(result.LastError).Warn("Event stream interrupted, resubscribing")
		}
	}
}

// consume dials the websocket endpoint, subscribes and processes logs until
// the subscription fails or the context is cancelled.
func (w *Watcher) consume(ctx context.Context) error {
	eth, err := ethclient.DialContext(ctx, w.wsURL)
	if err != nil {
		return fmt.Errorf("failed to dial websocket RPC: %w", err)
	}
	defer eth.Close()

	portfolioUpdatedID := w.contractABI.Events["PortfolioUpdated"].ID
	transactionRecordedID := w.contractABI.Events["TransactionRecorded"].ID

	query := ethereum.FilterQuery{
		Addresses: []common.Address{w.contractAddr},
		Topics:    [][]common.Hash{{portfolioUpdatedID, transactionRecordedID}},
	}

	logs := make(chan ethtypes.Log, 64)
	sub, err := eth.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to contract logs: %w", err)
	}
	defer sub.Unsubscribe()

	w.logger.WithField("contract", w.contractAddr.Hex()).Info("Subscribed to contract events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return fmt.Errorf("subscription error: %w", err)
		case log := <-logs:
			w.handleLog(ctx, &log, portfolioUpdatedID, transactionRecordedID)
		}
	}
}

// handleLog decodes one contract log and fans it out to the sinks
func (w *Watcher) handleLog(ctx context.Context, log *ethtypes.Log, portfolioUpdatedID, transactionRecordedID common.Hash) {
	if len(log.Topics) < 2 {
		return
	}

	event := &ObservedEvent{
		Address:     strings.ToLower(common.BytesToAddress(log.Topics[1].Bytes()).Hex()),
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		ObservedAt:  time.Now().UTC(),
	}

	switch log.Topics[0] {
	case portfolioUpdatedID:
		event.Name = types.EventPortfolioUpdated
		values, err := w.contractABI.Unpack("PortfolioUpdated", log.Data)
		if err != nil || len(values) < 1 {
			w.logger.WithField("txHash", event.TxHash).Warn("Failed to decode PortfolioUpdated event")
			return
		}
		if newValue, ok := values[0].(*big.Int); ok {
			event.Amount = decimal.NewFromBigInt(newValue, weiExponent)
		}

	case transactionRecordedID:
		event.Name = types.EventTransactionRecorded
		values, err := w.contractABI.Unpack("TransactionRecorded", log.Data)
		if err != nil || len(values) < 2 {
			w.logger.WithField("txHash", event.TxHash).Warn("Failed to decode TransactionRecorded event")
			return
		}
		if txKind, ok := values[0].(string); ok {
			event.TxKind = txKind
		}
		if amount, ok := values[1].(*big.Int); ok {
			event.Amount = decimal.NewFromBigInt(amount, weiExponent)
		}

	default:
		return
	}

	w.logger.WithFields(map[string]interface{}{
		"event":   string(event.Name),
		"address": event.Address,
		"amount":  event.Amount.String(),
		"block":   event.BlockNumber,
	}).Info("Observed contract event")

	for _, sink := range w.sinks {
		sink.Record(ctx, event)
	}
}
