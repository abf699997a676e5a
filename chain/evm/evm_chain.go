// Package evm holds the EVM chain handle the tasks run against, its JSON-RPC client and
// address helpers.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc is a function that takes a transaction, waits for the transaction to be confirmed,
// and returns the block number and an error.
type ConfirmFunc func(tx *types.Transaction) (uint64, error)

// OnchainClient is an EVM chain client.
// For EVM specifically we can use existing geth interface to abstract chain clients.
type OnchainClient interface {
	bind.ContractBackend
	bind.DeployBackend

	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// RawCaller issues JSON-RPC calls which have no typed client method, such as the node
// administration namespace (evm_*).
type RawCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Chain represents the EVM chain selected by a network profile.
type Chain struct {
	// Network is the name of the network profile the chain was loaded from.
	Network string
	ChainID uint64

	Client OnchainClient
	// RPC is nil when the backend does not speak JSON-RPC, e.g. the simulated backend.
	RPC RawCaller
	// Note the Sign function can be abstract supporting a variety of key storage mechanisms.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
	// Users are a set of keys that can be used to interact with the chain.
	// These are distinct from the deployer key.
	Users []*bind.TransactOpts
}

// Name returns the canonical chain name for the chain id, falling back to the network name when
// the chain id is not a known chain.
func (c Chain) Name() string {
	details, err := chainsel.GetChainDetailsByChainIDAndFamily(
		strconv.FormatUint(c.ChainID, 10), chainsel.FamilyEVM,
	)
	if err != nil {
		return c.Network
	}

	return details.ChainName
}

// String returns "<network> (chain id <id>)".
func (c Chain) String() string {
	return fmt.Sprintf("%s (chain id %d)", c.Network, c.ChainID)
}
