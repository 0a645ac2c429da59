package models

import (
	"time"

	"github.com/defi-dashboard/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction represents one chain transaction associated with a wallet.
// TxHash is unique; OwnerAddress references an Account by address, by
// convention only. Records are never deleted.
type Transaction struct {
	ID           string                  `json:"-"`
	TxHash       string                  `json:"txHash"`
	OwnerAddress string                  `json:"ownerAddress"`
	From         string                  `json:"from"`
	To           string                  `json:"to"`
	Amount       decimal.Decimal         `json:"amount"`
	TokenSymbol  *string                 `json:"tokenSymbol,omitempty"`
	Kind         types.TransactionKind   `json:"kind"`
	BlockNumber  *uint64                 `json:"blockNumber,omitempty"`
	GasUsed      *uint64                 `json:"gasUsed,omitempty"`
	GasPrice     *string                 `json:"gasPrice,omitempty"`
	Status       types.TransactionStatus `json:"status"`
	BlockTime    *time.Time              `json:"blockTime,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// FromTransferRecord builds a Transaction from a chain transfer record for
// the given owner. Sync writes records directly in the confirmed state since
// the chain client only returns finalized history.
func FromTransferRecord(rec *types.TransferRecord, ownerAddress string) *Transaction {
	tx := &Transaction{
		TxHash:       rec.TxHash,
		OwnerAddress: types.NormalizeAddress(ownerAddress),
		From:         rec.From,
		To:           rec.To,
		Amount:       rec.Amount,
		Kind:         rec.Kind,
		Status:       types.StatusConfirmed,
	}

	if rec.TokenSymbol != "" {
		symbol := rec.TokenSymbol
		tx.TokenSymbol = &symbol
	}

	if rec.BlockNumber > 0 {
		blockNumber := rec.BlockNumber
		tx.BlockNumber = &blockNumber
	}

	if rec.BlockTime > 0 {
		blockTime := time.Unix(rec.BlockTime, 0).UTC()
		tx.BlockTime = &blockTime
	}

	return tx
}
