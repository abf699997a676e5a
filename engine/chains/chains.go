// Package chains connects to the chain of the active network profile.
package chains

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stableyield/deployments/chain/evm"
	evmprov "github.com/stableyield/deployments/chain/evm/provider"
	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/pkg/logger"
)

// DefaultConfirmTimeout is how long a transaction may take to be mined before the invocation
// fails.
const DefaultConfirmTimeout = 5 * time.Minute

// Config configures how the chain of a profile is loaded.
type Config struct {
	// AccountIndex is the index of the deployer account below the Hardhat derivation path.
	AccountIndex uint32
	// ConfirmTimeout bounds the wait for each transaction receipt. Defaults to
	// DefaultConfirmTimeout.
	ConfirmTimeout time.Duration
	// TickInterval is the receipt polling interval. Defaults to evmprov.DefaultTickInterval.
	TickInterval time.Duration
	// DialTimeout bounds connecting to the endpoint. Defaults to evm.RPCDefaultDialTimeout.
	DialTimeout time.Duration
}

// Loader connects to the chain of a single network profile on first use and keeps the
// connection until Close.
type Loader struct {
	lggr    logger.Logger
	profile network.Profile
	cfg     Config

	mu       sync.Mutex
	provider *evmprov.RPCChainProvider
}

// NewLoader returns a loader for the profile, which must have its secrets substituted.
func NewLoader(lggr logger.Logger, profile network.Profile, cfg Config) *Loader {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = DefaultConfirmTimeout
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = evmprov.DefaultTickInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = evm.RPCDefaultDialTimeout
	}

	return &Loader{
		lggr:    lggr,
		profile: profile,
		cfg:     cfg,
	}
}

// Load dials the profile's endpoint and derives the deployer key from the profile mnemonic.
// Without a mnemonic the chain is read-only and its DeployerKey is nil. Subsequent calls return
// the same chain.
func (l *Loader) Load(ctx context.Context) (evm.Chain, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		return l.provider.BlockChain(), nil
	}

	l.logNodeSettings()

	signerGen := l.signerGenerator()
	if signerGen == nil {
		l.lggr.Infow("No mnemonic configured, loading a read-only chain; set MNEMONIC to send transactions",
			"network", l.profile.Name,
		)
	}

	p := evmprov.NewRPCChainProvider(evmprov.RPCChainProviderConfig{
		Network:               l.profile.Name,
		URL:                   l.profile.URL,
		ChainID:               l.profile.ChainID,
		DeployerTransactorGen: signerGen,
		ConfirmFunctor: evmprov.ConfirmFuncGeth(l.cfg.ConfirmTimeout,
			evmprov.WithTickInterval(l.cfg.TickInterval),
		),
		ClientOpts: []evm.ClientOption{evm.WithDialTimeout(l.cfg.DialTimeout)},
		Logger:     l.lggr,
	})

	chain, err := p.Initialize(ctx)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to load chain of network %s: %w", l.profile.Name, err)
	}

	fields := []any{"network", chain.Network, "chain", chain.Name(), "chainID", chain.ChainID}
	if chain.DeployerKey != nil {
		fields = append(fields, "deployer", chain.DeployerKey.From.Hex())
	}
	l.lggr.Infow("Connected to chain", fields...)
	l.provider = p

	return chain, nil
}

// Close closes the connection, if one was made.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.provider != nil {
		l.provider.Close()
		l.provider = nil
	}
}

// logNodeSettings reports the settings the profile expects the node to run with. They are
// applied when the node is started, so they can only be checked by the operator.
func (l *Loader) logNodeSettings() {
	if l.profile.Fork == nil && !l.profile.AllowUnlimitedContractSize {
		return
	}

	fields := []any{"network", l.profile.Name, "allowUnlimitedContractSize", l.profile.AllowUnlimitedContractSize}
	if l.profile.Fork != nil {
		fields = append(fields, "forkBlockNumber", l.profile.Fork.BlockNumber)
	}
	l.lggr.Infow("Network profile expects a node started with these settings", fields...)
}

// signerGenerator derives the deployer from the profile mnemonic, applying the profile's gas
// settings. It returns nil when the profile has no mnemonic.
func (l *Loader) signerGenerator() evmprov.SignerGenerator {
	if l.profile.Accounts.Mnemonic == "" {
		return nil
	}

	var opts []evmprov.GeneratorOption
	if l.profile.GasPrice > 0 {
		opts = append(opts, evmprov.WithGasPrice(l.profile.GasPrice))
	}
	if l.profile.GasLimit > 0 {
		opts = append(opts, evmprov.WithGasLimit(l.profile.GasLimit))
	}

	return evmprov.TransactorFromMnemonic(l.profile.Accounts.Mnemonic, l.cfg.AccountIndex, opts...)
}
