package commands

import (
	"context"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/engine/chains"
	"github.com/stableyield/deployments/engine/config/env"
	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/pkg/logger"
)

// ChainLoader connects to the chain of the active profile and releases it on Close.
type ChainLoader interface {
	Load(ctx context.Context) (evm.Chain, error)
	Close()
}

var _ ChainLoader = (*chains.Loader)(nil)

// SecretsLoaderFunc reads the operator secrets, using dotEnvPath for defaults.
type SecretsLoaderFunc func(dotEnvPath string) (*env.Config, error)

// NetworksLoaderFunc loads the network registry from the embedded manifest and extra files.
type NetworksLoaderFunc func(filePaths []string, opts ...network.LoadOption) (*network.Registry, error)

// ChainLoaderFunc creates the chain loader of a resolved profile.
type ChainLoaderFunc func(lggr logger.Logger, profile network.Profile, cfg chains.Config) ChainLoader

// LoggerFunc creates the logger for the configured level.
type LoggerFunc func(level string) (logger.Logger, error)

func defaultChainLoader(lggr logger.Logger, profile network.Profile, cfg chains.Config) ChainLoader {
	return chains.NewLoader(lggr, profile, cfg)
}

func defaultLogger(level string) (logger.Logger, error) {
	cfg, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	return cfg.New()
}

// Deps holds the injectable dependencies of the commands.
// All fields are optional; nil values use production defaults.
type Deps struct {
	// SecretsLoader reads the secrets.
	// Default: env.Load
	SecretsLoader SecretsLoaderFunc

	// NetworksLoader loads the network profiles.
	// Default: network.Load
	NetworksLoader NetworksLoaderFunc

	// ChainLoader connects to the chain.
	// Default: chains.NewLoader
	ChainLoader ChainLoaderFunc

	// Logger creates the logger.
	// Default: a zap production logger writing to stderr
	Logger LoggerFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.SecretsLoader == nil {
		d.SecretsLoader = env.Load
	}
	if d.NetworksLoader == nil {
		d.NetworksLoader = network.Load
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
	if d.Logger == nil {
		d.Logger = defaultLogger
	}
}
