package provider

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/deployments/chain/evm"
)

// SimNetwork is the network name of simulated chains.
const SimNetwork = "simulated"

var (
	// simChainID is the chain ID for the simulated EVM chain. This is always set to 1337 across
	// all instances of EVM Simulated Chains.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is the amount each account is funded with: 1,000,000 Ether.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimChainProviderConfig holds the configuration to initialize the SimChainProvider.
type SimChainProviderConfig struct {
	// Optional: NumAdditionalAccounts is the number of additional accounts to generate for the
	// simulated chain.
	NumAdditionalAccounts uint
	// Optional: BlockTime configures the time between blocks being committed. By default, this is
	// set to 0s, meaning that blocks are only produced when a transaction is confirmed.
	BlockTime time.Duration
}

// SimChainProvider manages a simulated EVM chain that is backed by go-ethereum's in memory
// simulated backend. It is meant for tests only.
type SimChainProvider struct {
	t      *testing.T
	config SimChainProviderConfig

	chain *evm.Chain
}

// NewSimChainProvider creates a new SimChainProvider with the given configuration.
func NewSimChainProvider(t *testing.T, config SimChainProviderConfig) *SimChainProvider {
	t.Helper()

	return &SimChainProvider{
		t:      t,
		config: config,
	}
}

// Initialize sets up the simulated chain with a deployer account and additional accounts as
// specified in the configuration. Each account is prefunded with 1,000,000 Ether.
func (p *SimChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	// Generate a deployer account
	key, err := crypto.GenerateKey()
	require.NoError(p.t, err, "failed to generate deployer key")

	adminTransactor, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
	require.NoError(p.t, err)

	// Prefund the admin account
	genesis := types.GenesisAlloc{
		adminTransactor.From: {Balance: prefundAmountWei},
	}

	// Generate keys for additional accounts
	additionalTransactors := make([]*bind.TransactOpts, 0, p.config.NumAdditionalAccounts)
	for range p.config.NumAdditionalAccounts {
		gen := TransactorRandom()
		transactor, err := gen.Generate(simChainID)
		require.NoError(p.t, err)

		additionalTransactors = append(additionalTransactors, transactor)

		// Prefund each additional account
		genesis[transactor.From] = types.Account{Balance: prefundAmountWei}
	}

	// Initialize the simulated backend with the genesis state
	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50000000))
	backend.Commit() // Commit the genesis block
	p.t.Cleanup(func() {
		_ = backend.Close()
	})

	// Start mining blocks if a block time is configured
	if p.config.BlockTime > 0 {
		startAutoMine(p.t, backend, p.config.BlockTime)
	}

	client := NewSimClient(p.t, backend)

	p.chain = &evm.Chain{
		Network:     SimNetwork,
		ChainID:     simChainID.Uint64(),
		Client:      client,
		DeployerKey: adminTransactor,
		Users:       additionalTransactors,
		Confirm: func(tx *types.Transaction) (uint64, error) {
			if tx == nil {
				return 0, fmt.Errorf("tx was nil, nothing to confirm on network %s", SimNetwork)
			}

			// Ensure the transaction is mined by committing a new block
			client.Commit()

			waitCtx, cancel := context.WithTimeout(ctx, 1*time.Minute)
			defer cancel()

			receipt, err := bind.WaitMined(waitCtx, client, tx)
			if err != nil {
				return 0, fmt.Errorf("tx %s failed to confirm on network %s: %w",
					tx.Hash().Hex(), SimNetwork, err,
				)
			}

			return checkReceipt(waitCtx, SimNetwork, client, adminTransactor.From, tx, receipt)
		},
	}

	return *p.chain, nil
}

// Name returns the name of the SimChainProvider.
func (*SimChainProvider) Name() string {
	return "Simulated EVM Chain Provider"
}

// BlockChain returns the simulated chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *SimChainProvider) BlockChain() evm.Chain {
	return *p.chain
}

// startAutoMine triggers the simulated backend to create a new block at intervals defined by
// `blockTime`. After the test is done, it stops the mining goroutine.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
