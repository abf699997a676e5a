package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/chains"
	"github.com/stableyield/deployments/engine/task"
)

// newTaskCmd exposes a registered task as a sub-command. Arity is checked by the registry so the
// command accepts any number of arguments.
func newTaskCmd(cfg Config, opts *globalOptions, def task.Definition) *cobra.Command {
	return &cobra.Command{
		Use:   def.Usage(),
		Short: def.Description,
		Long:  taskLong(def),
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = rt.lggr.Sync() }()

			profile, err := rt.profile(opts)
			if err != nil {
				return err
			}

			loader := cfg.Deps.ChainLoader(rt.lggr.Named("chains"), profile, chains.Config{
				AccountIndex:   opts.accountIndex,
				ConfirmTimeout: opts.confirmTimeout,
				TickInterval:   opts.tickInterval,
				DialTimeout:    opts.dialTimeout,
			})
			defer loader.Close()

			env := task.Env{
				Logger:  rt.lggr.Named("tasks"),
				Network: profile,
				Chain:   loader.Load,
				Artifacts: contracts.NewArtifactStore(opts.artifacts,
					contracts.WithLogger(rt.lggr.Named("artifacts")),
				),
				Out: cmd.OutOrStdout(),
			}

			return cfg.Registry.Registry().Invoke(cmd.Context(), def.Name, env, args)
		},
	}
}

func taskLong(def task.Definition) string {
	if len(def.Params) == 0 {
		return def.Description
	}

	var sb strings.Builder
	sb.WriteString(def.Description)
	sb.WriteString("\n\nArguments:\n")
	for _, p := range def.Params {
		fmt.Fprintf(&sb, "%s%-10s %s\n", indentation, p.Name, p.Description)
	}

	return strings.TrimRight(sb.String(), "\n")
}
