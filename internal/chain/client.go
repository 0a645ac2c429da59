// Package chain abstracts reads against a blockchain node and the deployed
// portfolio token contract.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/defi-dashboard/internal/config"
	"github.com/defi-dashboard/internal/logging"
	"github.com/defi-dashboard/internal/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// weiExponent converts wei amounts to whole-token decimals
const weiExponent = -18

// Client exposes the three chain reads the reconciliation engine depends on.
// It is constructed once at process start and injected as a dependency.
type Client struct {
	cfg      *config.ChainConfig
	provider DataProvider

	mu  sync.Mutex
	eth *ethclient.Client

	contractABI  abi.ABI
	contractAddr common.Address
	logger       *logging.Logger
}

// NewClient dials the configured RPC endpoint and binds the contract ABI
func NewClient(cfg *config.ChainConfig, provider DataProvider) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %q", cfg.ContractAddress)
	}

	rpcURL, err := provider.GetCurrentURL()
	if err != nil {
		return nil, fmt.Errorf("failed to get RPC URL: %w", err)
	}

	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, NewClientError("Dial", err)
	}

	contractABI, err := parsePortfolioTokenABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &Client{
		cfg:          cfg,
		provider:     provider,
		eth:          eth,
		contractABI:  contractABI,
		contractAddr: common.HexToAddress(cfg.ContractAddress),
		logger:       logging.GetGlobalLogger().WithField("component", "chain"),
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eth != nil {
		c.eth.Close()
	}
}

// NativeBalance returns the native asset balance for an address in whole tokens
func (c *Client) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !types.ValidAddress(address) {
		return decimal.Zero, NewClientError("NativeBalance", ErrInvalidAddress)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	addr := common.HexToAddress(address)

	var balance *big.Int
	err := c.withFailover(func(eth *ethclient.Client) error {
		var callErr error
		balance, callErr = eth.BalanceAt(ctx, addr, nil)
		return callErr
	})
	if err != nil {
		return decimal.Zero, NewClientError("NativeBalance", err)
	}

	return decimal.NewFromBigInt(balance, weiExponent), nil
}

// TokenBalance returns the portfolio token balance for an address in whole tokens
func (c *Client) TokenBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !types.ValidAddress(address) {
		return decimal.Zero, NewClientError("TokenBalance", ErrInvalidAddress)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	data, err := c.contractABI.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, NewClientError("TokenBalance", err)
	}

	result, err := c.callContract(ctx, data)
	if err != nil {
		return decimal.Zero, NewClientError("TokenBalance", err)
	}

	out, err := c.contractABI.Unpack("balanceOf", result)
	if err != nil {
		return decimal.Zero, NewClientError("TokenBalance", err)
	}

	balance := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	return decimal.NewFromBigInt(balance, weiExponent), nil
}

// TransferHistory retrieves the contract's recorded transaction history for
// an address. Only finalized history is returned; each record carries a
// stable chain-derived hash suitable as an upsert key.
func (c *Client) TransferHistory(ctx context.Context, address string) ([]*types.TransferRecord, error) {
	if !types.ValidAddress(address) {
		return nil, NewClientError("TransferHistory", ErrInvalidAddress)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	owner := common.HexToAddress(address)

	data, err := c.contractABI.Pack("getUserTransactions", owner)
	if err != nil {
		return nil, NewClientError("TransferHistory", err)
	}

	result, err := c.callContract(ctx, data)
	if err != nil {
		return nil, NewClientError("TransferHistory", err)
	}

	out, err := c.contractABI.Unpack("getUserTransactions", result)
	if err != nil {
		return nil, NewClientError("TransferHistory", err)
	}

	transfers := *abi.ConvertType(out[0], new([]contractTransfer)).(*[]contractTransfer)

	records := make([]*types.TransferRecord, 0, len(transfers))
	for i := range transfers {
		records = append(records, c.normalizeTransfer(owner, uint64(i), &transfers[i]))
	}

	return records, nil
}

// normalizeTransfer converts one contract tuple to the common record format
func (c *Client) normalizeTransfer(owner common.Address, index uint64, t *contractTransfer) *types.TransferRecord {
	record := &types.TransferRecord{
		TxHash:      transferRecordHash(owner, index, t),
		From:        strings.ToLower(t.From.Hex()),
		To:          strings.ToLower(t.To.Hex()),
		TokenSymbol: c.cfg.TokenSymbol,
	}

	if t.Amount != nil {
		record.Amount = decimal.NewFromBigInt(t.Amount, weiExponent)
	}

	if t.Timestamp != nil {
		record.BlockTime = t.Timestamp.Int64()
	}

	kind := types.TransactionKind(t.TxType)
	if !kind.Valid() {
		// Older contract versions leave txType empty; derive from direction
		kind = types.KindReceive
		if t.From == owner {
			kind = types.KindSend
		}
	}
	record.Kind = kind

	return record
}

// callContract performs an eth_call against the bound contract
func (c *Client) callContract(ctx context.Context, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &c.contractAddr,
		Data: data,
	}

	var result []byte
	err := c.withFailover(func(eth *ethclient.Client) error {
		var callErr error
		result, callErr = eth.CallContract(ctx, msg, nil)
		return callErr
	})
	return result, err
}

// withFailover runs fn against the current client and, on failure, retries
// once against the secondary endpoint when one is configured.
func (c *Client) withFailover(fn func(*ethclient.Client) error) error {
	c.mu.Lock()
	eth := c.eth
	c.mu.Unlock()

	err := fn(eth)
	if err == nil {
		return nil
	}

	if failErr := c.provider.Failover(); failErr != nil {
		return err
	}

	rpcURL, urlErr := c.provider.GetCurrentURL()
	if urlErr != nil {
		return err
	}

	next, dialErr := ethclient.Dial(rpcURL)
	if dialErr != nil {
		return err
	}

	c.logger.WithFields(map[string]interface{}{
		"rpc":   rpcURL,
		"cause": err.Error(),
	}).Warn("RPC call failed, switched to secondary endpoint")

	c.mu.Lock()
	c.eth.Close()
	c.eth = next
	c.mu.Unlock()

	return fn(next)
}
