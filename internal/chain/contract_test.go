package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParsePortfolioTokenABI(t *testing.T) {
	contractABI, err := parsePortfolioTokenABI()
	if err != nil {
		t.Fatalf("parsePortfolioTokenABI() error = %v", err)
	}

	for _, method := range []string{"balanceOf", "getUserTransactions"} {
		if _, ok := contractABI.Methods[method]; !ok {
			t.Errorf("ABI missing method %q", method)
		}
	}

	for _, event := range []string{"PortfolioUpdated", "TransactionRecorded"} {
		if _, ok := contractABI.Events[event]; !ok {
			t.Errorf("ABI missing event %q", event)
		}
	}
}

func TestTransferRecordHash_Deterministic(t *testing.T) {
	owner := common.HexToAddress("0x1234567890123456789012345678901234567890")
	transfer := &contractTransfer{
		From:      owner,
		To:        common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"),
		Amount:    big.NewInt(42),
		Timestamp: big.NewInt(1700000000),
		TxType:    "send",
	}

	first := transferRecordHash(owner, 3, transfer)
	second := transferRecordHash(owner, 3, transfer)
	if first != second {
		t.Errorf("hash not stable: %s != %s", first, second)
	}

	if len(first) != 66 || first[:2] != "0x" {
		t.Errorf("hash %q is not a 32-byte hex string", first)
	}

	// Position is part of the identity
	if other := transferRecordHash(owner, 4, transfer); other == first {
		t.Error("different indexes produced the same hash")
	}

	// Amount is part of the identity
	changed := *transfer
	changed.Amount = big.NewInt(43)
	if other := transferRecordHash(owner, 3, &changed); other == first {
		t.Error("different amounts produced the same hash")
	}
}

func TestTransferRecordHash_NilFields(t *testing.T) {
	owner := common.HexToAddress("0x1234567890123456789012345678901234567890")
	transfer := &contractTransfer{
		From: owner,
		To:   common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"),
	}

	// Must not panic on nil amount or timestamp
	hash := transferRecordHash(owner, 0, transfer)
	if hash == "" {
		t.Error("hash is empty for nil big.Int fields")
	}
}
