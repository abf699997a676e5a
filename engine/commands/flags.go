package commands

import (
	"time"

	"github.com/spf13/pflag"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/chain/evm/provider"
	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/chains"
)

// Global flag names.
const (
	flagNetwork        = "network"
	flagArtifacts      = "artifacts"
	flagEnvFile        = "env-file"
	flagNetworksFile   = "networks-file"
	flagLogLevel       = "log-level"
	flagConfirmTimeout = "confirm-timeout"
	flagTickInterval   = "tick-interval"
	flagAccountIndex   = "account-index"
	flagDialTimeout    = "dial-timeout"
)

// globalOptions holds the values of the persistent flags shared by every command.
type globalOptions struct {
	network        string
	artifacts      string
	envFile        string
	networksFiles  []string
	logLevel       string
	confirmTimeout time.Duration
	tickInterval   time.Duration
	accountIndex   uint32
	dialTimeout    time.Duration
}

// register binds the options to persistent flags.
func (o *globalOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.network, flagNetwork, "n", "",
		"Network profile to use (defaults to the manifest default, development)")
	fs.StringVar(&o.artifacts, flagArtifacts, contracts.DefaultArtifactsDir,
		"Directory holding the compiled Hardhat artifacts")
	fs.StringVar(&o.envFile, flagEnvFile, ".env",
		"Dotenv file providing MNEMONIC, ALCHEMY_KEY and ALCHEMY_KEY_KOVAN")
	fs.StringArrayVar(&o.networksFiles, flagNetworksFile, nil,
		"Additional YAML or TOML network manifest, may be repeated")
	fs.StringVar(&o.logLevel, flagLogLevel, "info",
		"Log level: debug, info, warn or error")
	fs.DurationVar(&o.confirmTimeout, flagConfirmTimeout, chains.DefaultConfirmTimeout,
		"How long to wait for a transaction to be mined")
	fs.DurationVar(&o.tickInterval, flagTickInterval, provider.DefaultTickInterval,
		"Receipt polling interval")
	fs.Uint32Var(&o.accountIndex, flagAccountIndex, 0,
		"Index of the deployer account derived from the mnemonic")
	fs.DurationVar(&o.dialTimeout, flagDialTimeout, evm.RPCDefaultDialTimeout,
		"How long to wait when connecting to the network's RPC endpoint")
}
