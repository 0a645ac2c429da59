package storage

import (
	"context"
	"fmt"

	"github.com/defi-dashboard/internal/chain"
	"github.com/defi-dashboard/internal/logging"
)

// EventLogRepository appends observed contract events to ClickHouse. It
// implements chain.EventSink: failures are logged and swallowed so the event
// stream never stalls on the analytics store.
type EventLogRepository struct {
	db     *ClickHouseDB
	logger *logging.Logger
}

// NewEventLogRepository creates a new event log repository
func NewEventLogRepository(db *ClickHouseDB) *EventLogRepository {
	return &EventLogRepository{
		db:     db,
		logger: logging.GetGlobalLogger().WithField("component", "event-log"),
	}
}

// EnsureSchema creates the chain_events table if it does not exist
func (r *EventLogRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chain_events (
			event_name   LowCardinality(String),
			address      String,
			amount       String,
			tx_kind      LowCardinality(String),
			block_number UInt64,
			tx_hash      String,
			observed_at  DateTime64(3, 'UTC')
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(observed_at)
		ORDER BY (address, observed_at)
		TTL toDateTime(observed_at) + INTERVAL 90 DAY
	`

	if err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create chain_events table: %w", err)
	}

	return nil
}

// Record appends one observed event to the log
func (r *EventLogRepository) Record(ctx context.Context, event *chain.ObservedEvent) {
	query := `
		INSERT INTO chain_events (
			event_name, address, amount, tx_kind, block_number, tx_hash, observed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := r.db.Exec(ctx, query,
		string(event.Name),
		event.Address,
		event.Amount.String(),
		event.TxKind,
		event.BlockNumber,
		event.TxHash,
		event.ObservedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithField("txHash", event.TxHash).Warn("Failed to append chain event")
	}
}
