package chain

import (
	"encoding/binary"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// portfolioTokenABI is the subset of the deployed PortfolioToken contract ABI
// the dashboard depends on: balance lookup, per-user transaction history and
// the two observability events.
const portfolioTokenABI = `[
	{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"user","type":"address"}],"name":"getUserTransactions","outputs":[{"components":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"},{"name":"timestamp","type":"uint256"},{"name":"txType","type":"string"}],"name":"","type":"tuple[]"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"user","type":"address"},{"indexed":false,"name":"newValue","type":"uint256"}],"name":"PortfolioUpdated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"user","type":"address"},{"indexed":false,"name":"txType","type":"string"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"TransactionRecorded","type":"event"}
]`

// contractTransfer mirrors the tuple layout returned by getUserTransactions
type contractTransfer struct {
	From      common.Address
	To        common.Address
	Amount    *big.Int
	Timestamp *big.Int
	TxType    string
}

// parsePortfolioTokenABI parses the embedded contract ABI
func parsePortfolioTokenABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(portfolioTokenABI))
}

// transferRecordHash derives a stable, chain-determined hash for one history
// entry. The contract tuples carry no transaction hash of their own, so the
// upsert key is Keccak-256 over the owner, the entry's position and its
// immutable fields. Resyncing the same history always produces the same hash.
func transferRecordHash(owner common.Address, index uint64, t *contractTransfer) string {
	var indexBytes [8]byte
	binary.BigEndian.PutUint64(indexBytes[:], index)

	var timestampBytes []byte
	if t.Timestamp != nil {
		timestampBytes = t.Timestamp.Bytes()
	}

	var amountBytes []byte
	if t.Amount != nil {
		amountBytes = t.Amount.Bytes()
	}

	hash := crypto.Keccak256Hash(
		owner.Bytes(),
		indexBytes[:],
		t.From.Bytes(),
		t.To.Bytes(),
		amountBytes,
		timestampBytes,
	)

	return hash.Hex()
}
