package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/pkg/logger"
)

// RPCChainProviderConfig holds the configuration to initialize the RPCChainProvider.
type RPCChainProviderConfig struct {
	// Required: Network is the name of the network profile, used in logs and errors.
	Network string
	// Required: URL is the RPC endpoint with secrets already substituted.
	URL string
	// Optional: ChainID is the expected chain id. When zero it is read from the node.
	ChainID uint64
	// Optional: A generator for the deployer key. Use TransactorFromMnemonic to derive the
	// deployer key from the configured mnemonic. When nil the chain is read-only and its
	// DeployerKey is nil.
	DeployerTransactorGen SignerGenerator
	// Required: ConfirmFunctor is a type that generates a confirmation function for transactions.
	// If in doubt, use ConfirmFuncGeth.
	ConfirmFunctor ConfirmFunctor
	// Optional: ClientOpts are additional options to configure the evm.Client.
	ClientOpts []evm.ClientOption
	// Optional: A generator for the additional user transactors. If not provided, no user
	// transactors will be generated.
	UsersTransactorGen []SignerGenerator
	// Optional: Logger is the logger to use for the RPCChainProvider. If not provided, a default
	// logger will be used.
	Logger logger.Logger
}

// validate checks if the RPCChainProviderConfig is valid.
func (c RPCChainProviderConfig) validate() error {
	if c.Network == "" {
		return errors.New("network is required")
	}
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.ConfirmFunctor == nil {
		return errors.New("confirm functor is required")
	}

	return nil
}

// RPCChainProvider is a chain provider that provides a chain that connects to an EVM node via RPC.
type RPCChainProvider struct {
	config RPCChainProviderConfig

	client *evm.Client
	chain  *evm.Chain
}

// NewRPCChainProvider creates a new RPCChainProvider with the given configuration.
func NewRPCChainProvider(config RPCChainProviderConfig) *RPCChainProvider {
	return &RPCChainProvider{
		config: config,
	}
}

// Initialize dials the endpoint and sets up the EVM chain with the provided configuration.
// Subsequent calls return the same chain.
func (p *RPCChainProvider) Initialize(ctx context.Context) (evm.Chain, error) {
	if p.chain != nil {
		return *p.chain, nil // Already initialized
	}

	// Set up the logger if not provided
	if p.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		p.config.Logger = lggr
	}

	// Validate the provider configuration
	if err := p.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate provider config: %w", err)
	}

	client, err := evm.DialClient(ctx, p.config.Logger, p.config.Network, p.config.URL, p.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, err
	}

	chain, err := p.setup(ctx, client)
	if err != nil {
		client.Close()

		return evm.Chain{}, err
	}

	p.client = client
	p.chain = &chain

	return chain, nil
}

func (p *RPCChainProvider) setup(ctx context.Context, client *evm.Client) (evm.Chain, error) {
	chainID := p.config.ChainID
	if chainID == 0 {
		id, err := client.ChainID(ctx)
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to read chain id of network %s: %w", p.config.Network, err)
		}
		chainID = id.Uint64()
	}
	chainIDBig := new(big.Int).SetUint64(chainID)

	// Generate the deployer key using the provided transactor generator
	var (
		deployerKey *bind.TransactOpts
		from        common.Address
	)
	if p.config.DeployerTransactorGen != nil {
		key, err := p.config.DeployerTransactorGen.Generate(chainIDBig)
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to generate deployer key: %w", err)
		}
		deployerKey, from = key, key.From
	}

	// Generate the other user transactors
	users := make([]*bind.TransactOpts, 0, len(p.config.UsersTransactorGen))
	for _, g := range p.config.UsersTransactorGen {
		u, gerr := g.Generate(chainIDBig)
		if gerr != nil {
			return evm.Chain{}, fmt.Errorf("failed to generate user transactor: %w", gerr)
		}

		users = append(users, u)
	}

	confirmFunc, err := p.config.ConfirmFunctor.Generate(ctx, p.config.Network, client, from)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to generate confirm function: %w", err)
	}

	p.config.Logger.Debugw("Initialized chain",
		"network", p.config.Network, "chainID", chainID, "deployer", from.Hex(), "readOnly", deployerKey == nil,
	)

	return evm.Chain{
		Network:     p.config.Network,
		ChainID:     chainID,
		Client:      client,
		RPC:         client,
		DeployerKey: deployerKey,
		Confirm:     confirmFunc,
		Users:       users,
	}, nil
}

// Name returns the name of the RPCChainProvider.
func (*RPCChainProvider) Name() string {
	return "EVM RPC Chain Provider"
}

// BlockChain returns the chain instance managed by this provider. You must call Initialize
// before using this method to ensure the chain is properly set up.
func (p *RPCChainProvider) BlockChain() evm.Chain {
	return *p.chain
}

// Close closes the underlying RPC connection. It is safe to call before Initialize.
func (p *RPCChainProvider) Close() {
	if p.client != nil {
		p.client.Close()
		p.client = nil
		p.chain = nil
	}
}
