// Package models defines the persisted entities of the portfolio dashboard.
package models

import (
	"time"

	"github.com/defi-dashboard/internal/types"
	"github.com/shopspring/decimal"
)

// Account represents the denormalized snapshot of a wallet's balances.
// Address is unique and always stored lowercase. PortfolioValue is derived
// from Holdings at write time and never mutated independently.
type Account struct {
	ID             string          `json:"-"`
	Address        string          `json:"address"`
	Holdings       []types.Holding `json:"holdings"`
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	LastSyncedAt   *time.Time      `json:"lastSyncedAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
