package evm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrDeploymentReverted is returned when a contract creation transaction reverts, either while
	// estimating gas or after being mined.
	ErrDeploymentReverted = errors.New("deployment reverted")
	// ErrRPCUnavailable is returned when the configured RPC endpoint cannot be reached.
	ErrRPCUnavailable = errors.New("rpc unavailable")
)

// revertErrorCode is the JSON-RPC error code nodes use for "execution reverted".
const revertErrorCode = 3

// IsRevert reports whether err is a node's answer that execution reverted.
func IsRevert(err error) bool {
	if err == nil {
		return false
	}

	var rerr rpc.Error
	if errors.As(err, &rerr) && rerr.ErrorCode() == revertErrorCode {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// RevertData returns the hex encoded revert data carried by err, if any.
func RevertData(err error) string {
	var derr rpc.DataError
	if !errors.As(err, &derr) || derr.ErrorData() == nil {
		return ""
	}

	return fmt.Sprintf("%v", derr.ErrorData())
}

// classifyTransportError wraps err with ErrRPCUnavailable unless the node answered it.
//
// Errors returned by the node itself (JSON-RPC errors), ethereum.NotFound and context errors
// are returned unchanged.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrRPCUnavailable) ||
		errors.Is(err, ethereum.NotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrRPCUnavailable, err)
}
