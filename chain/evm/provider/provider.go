// Package provider sets up EVM chains: an RPC backed chain for real networks and an in-memory
// simulated chain for tests.
package provider

import (
	"context"

	"github.com/stableyield/deployments/chain/evm"
)

// Provider initializes an EVM chain.
type Provider interface {
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
	BlockChain() evm.Chain
}

var (
	_ Provider = (*RPCChainProvider)(nil)
	_ Provider = (*SimChainProvider)(nil)
)
