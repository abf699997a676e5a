// Package commands builds the stableyield command line: one sub-command per registered task,
// plus commands to inspect the configuration.
//
// Usage:
//
//	root, err := commands.NewRootCommand(commands.Config{
//	    Registry: tasks.NewRegistryProvider(),
//	})
//	if err != nil { ... }
//	err = root.ExecuteContext(ctx)
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/engine/task"
	"github.com/stableyield/deployments/pkg/logger"
)

var (
	rootLong = `
		Deployment and operational tooling for the StableYield vault.

		Each task runs against one network profile, selected with --network. Profiles come from
		the built-in manifest and any --networks-file. Secrets referenced by the profiles as
		${NAME} are read from the environment or the --env-file.
	`

	rootExample = `
		stableyield maker-ilks
		stableyield --network kovan deploy-stableyield-vault
		stableyield increase-time 1700000000
		stableyield --network kovan aave-reserve-data 0xff795577d9ac8bd7d90ee22b6c1703490b6512fd
	`
)

// Config configures the root command.
type Config struct {
	// Registry provides the tasks exposed as sub-commands. Its Init is called by
	// NewRootCommand.
	Registry task.RegistryProvider
	// Deps are the injectable dependencies. The zero value uses production defaults.
	Deps Deps
}

// NewRootCommand initializes the task registry and builds the root command.
func NewRootCommand(cfg Config) (*cobra.Command, error) {
	if cfg.Registry == nil {
		return nil, errors.New("task registry provider is required")
	}
	cfg.Deps.applyDefaults()

	if err := cfg.Registry.Init(); err != nil {
		return nil, fmt.Errorf("failed to register tasks: %w", err)
	}

	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "stableyield",
		Short:         "StableYield deployment tooling",
		Long:          longDesc(rootLong),
		Example:       examples(rootExample),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(root.PersistentFlags())

	for _, def := range cfg.Registry.Registry().List() {
		root.AddCommand(newTaskCmd(cfg, opts, def))
	}
	root.AddCommand(newNetworksCmd(cfg, opts))

	return root, nil
}

// runtime holds what every command builds from the global flags.
type runtime struct {
	lggr     logger.Logger
	networks *network.Registry
}

func newRuntime(cfg Config, opts *globalOptions) (*runtime, error) {
	lggr, err := cfg.Deps.Logger(opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	secrets, err := cfg.Deps.SecretsLoader(opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	networks, err := cfg.Deps.NetworksLoader(opts.networksFiles,
		network.WithRegistryOptions(network.WithSecrets(secrets.Secrets())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load networks: %w", err)
	}

	return &runtime{lggr: lggr, networks: networks}, nil
}

// profile resolves the profile selected by --network, or the registry default.
func (rt *runtime) profile(opts *globalOptions) (network.Profile, error) {
	name := opts.network
	if name == "" {
		name = rt.networks.Default()
	}

	return rt.networks.Resolve(name)
}
