package models

import (
	"testing"

	"github.com/defi-dashboard/internal/types"
	"github.com/shopspring/decimal"
)

func TestFromTransferRecord(t *testing.T) {
	record := &types.TransferRecord{
		TxHash:      "0xhash",
		From:        "0xfrom",
		To:          "0xto",
		Amount:      decimal.NewFromInt(5),
		TokenSymbol: "PFT",
		Kind:        types.KindSend,
		BlockNumber: 100,
		BlockTime:   1700000000,
	}

	tx := FromTransferRecord(record, "0xOWNER")

	if tx.OwnerAddress != "0xowner" {
		t.Errorf("OwnerAddress = %q, want lowercase %q", tx.OwnerAddress, "0xowner")
	}
	if tx.Status != types.StatusConfirmed {
		t.Errorf("Status = %q, want confirmed", tx.Status)
	}
	if tx.TokenSymbol == nil || *tx.TokenSymbol != "PFT" {
		t.Errorf("TokenSymbol = %v, want PFT", tx.TokenSymbol)
	}
	if tx.BlockNumber == nil || *tx.BlockNumber != 100 {
		t.Errorf("BlockNumber = %v, want 100", tx.BlockNumber)
	}
	if tx.BlockTime == nil || tx.BlockTime.Unix() != 1700000000 {
		t.Errorf("BlockTime = %v, want unix 1700000000", tx.BlockTime)
	}
}

func TestFromTransferRecord_OptionalFieldsAbsent(t *testing.T) {
	record := &types.TransferRecord{
		TxHash: "0xhash",
		From:   "0xfrom",
		To:     "0xto",
		Amount: decimal.NewFromInt(1),
		Kind:   types.KindReceive,
	}

	tx := FromTransferRecord(record, "0xowner")

	if tx.TokenSymbol != nil {
		t.Errorf("TokenSymbol = %v, want nil", tx.TokenSymbol)
	}
	if tx.BlockNumber != nil {
		t.Errorf("BlockNumber = %v, want nil", tx.BlockNumber)
	}
	if tx.BlockTime != nil {
		t.Errorf("BlockTime = %v, want nil", tx.BlockTime)
	}
}
