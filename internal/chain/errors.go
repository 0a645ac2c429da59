package chain

import (
	"errors"
	"fmt"

	"github.com/defi-dashboard/internal/types"
)

// Common chain errors
var (
	// ErrInvalidAddress indicates a malformed wallet address
	ErrInvalidAddress = errors.New("invalid address format")
	// ErrProviderUnavailable indicates all RPC endpoints are unreachable
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ClientError wraps a chain client failure with the failed operation
type ClientError struct {
	Op  string
	Err error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("chain client %s: %v", e.Op, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a ClientError for the given operation
func NewClientError(op string, err error) *ClientError {
	return &ClientError{Op: op, Err: err}
}

// AsServiceError classifies a chain client failure into the service error
// taxonomy. RPC errors, contract reverts and timeouts all surface as
// CHAIN_UNAVAILABLE; malformed addresses as INVALID_ADDRESS.
func AsServiceError(err error) *types.ServiceError {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrInvalidAddress) {
		return &types.ServiceError{
			Code:    types.CodeInvalidAddress,
			Message: err.Error(),
		}
	}

	var clientErr *ClientError
	op := ""
	if errors.As(err, &clientErr) {
		op = clientErr.Op
	}

	return &types.ServiceError{
		Code:    types.CodeChainUnavailable,
		Message: "chain is unavailable",
		Details: map[string]interface{}{
			"operation": op,
			"cause":     err.Error(),
		},
	}
}
