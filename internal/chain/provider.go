package chain

import (
	"fmt"
	"sync"
)

// DataProvider defines the interface for JSON-RPC endpoint selection
type DataProvider interface {
	// GetCurrentURL returns the RPC URL currently in use
	GetCurrentURL() (string, error)

	// Failover switches to the next available endpoint.
	// Returns an error when no further endpoint is available.
	Failover() error

	// Reset switches back to the primary endpoint
	Reset()
}

// RPCProvider selects between a primary and an optional secondary RPC endpoint
type RPCProvider struct {
	mu           sync.RWMutex
	primaryURL   string
	secondaryURL string
	onSecondary  bool
}

// NewRPCProvider creates a provider with a primary and optional secondary URL
func NewRPCProvider(primaryURL, secondaryURL string) (*RPCProvider, error) {
	if primaryURL == "" {
		return nil, fmt.Errorf("primary RPC URL is required")
	}

	return &RPCProvider{
		primaryURL:   primaryURL,
		secondaryURL: secondaryURL,
	}, nil
}

// GetCurrentURL returns the RPC URL currently in use
func (p *RPCProvider) GetCurrentURL() (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.onSecondary {
		return p.secondaryURL, nil
	}
	return p.primaryURL, nil
}

// Failover switches to the secondary endpoint if one is configured
func (p *RPCProvider) Failover() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.onSecondary || p.secondaryURL == "" {
		return fmt.Errorf("no secondary RPC endpoint: %w", ErrProviderUnavailable)
	}

	p.onSecondary = true
	return nil
}

// Reset switches back to the primary endpoint
func (p *RPCProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onSecondary = false
}
