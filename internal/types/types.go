// Package types provides common type definitions for the portfolio dashboard system.
package types

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionKind represents the kind of a recorded transaction
type TransactionKind string

const (
	// KindSend represents an outgoing transfer
	KindSend TransactionKind = "send"
	// KindReceive represents an incoming transfer
	KindReceive TransactionKind = "receive"
	// KindSwap represents a token swap
	KindSwap TransactionKind = "swap"
)

// Valid reports whether the kind is one of the known values
func (k TransactionKind) Valid() bool {
	switch k {
	case KindSend, KindReceive, KindSwap:
		return true
	}
	return false
}

// TransactionStatus represents transaction lifecycle status
type TransactionStatus string

const (
	// StatusPending represents a transaction not yet finalized
	StatusPending TransactionStatus = "pending"
	// StatusConfirmed represents a finalized successful transaction
	StatusConfirmed TransactionStatus = "confirmed"
	// StatusFailed represents a finalized failed transaction
	StatusFailed TransactionStatus = "failed"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Error codes used across services
const (
	// CodeChainUnavailable indicates an RPC or contract call failed or timed out
	CodeChainUnavailable = "CHAIN_UNAVAILABLE"
	// CodeStorageError indicates the persistence layer failed
	CodeStorageError = "STORAGE_ERROR"
	// CodeInvalidAddress indicates a malformed wallet address
	CodeInvalidAddress = "INVALID_ADDRESS"
	// CodeNotFound indicates a requested resource is absent
	CodeNotFound = "NOT_FOUND"
)

// Holding represents a single asset position within an account snapshot
type Holding struct {
	Symbol          string          `json:"symbol"`
	Balance         decimal.Decimal `json:"balance"`
	Value           decimal.Decimal `json:"value"`
	ContractAddress string          `json:"contractAddress,omitempty"`
}

// TransferRecord represents one transfer from the chain's view of an
// address's history. The hash is chain-assigned and unique per record.
type TransferRecord struct {
	TxHash      string          `json:"txHash"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	TokenSymbol string          `json:"tokenSymbol,omitempty"`
	Kind        TransactionKind `json:"kind"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	BlockTime   int64           `json:"blockTime"` // Unix timestamp from the chain
}

// ChainEventName identifies contract events observed by the watcher
type ChainEventName string

const (
	// EventPortfolioUpdated is emitted when a user's on-chain portfolio value changes
	EventPortfolioUpdated ChainEventName = "PortfolioUpdated"
	// EventTransactionRecorded is emitted when the contract records a transaction
	EventTransactionRecorded ChainEventName = "TransactionRecorded"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// NormalizeAddress lowercases a wallet address. Every entry point must apply
// this before lookups so case-insensitive variants resolve to one snapshot.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ValidAddress reports whether the string is a syntactically valid wallet address
func ValidAddress(address string) bool {
	return addressPattern.MatchString(strings.TrimSpace(address))
}
