package commands

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stableyield/deployments/engine/config/network"
)

// Output formats of the networks command.
const (
	outputTable = "table"
	outputYAML  = "yaml"
)

var networksLong = `
	Lists the network profiles. URLs are printed as configured, so secret placeholders such as
	${ALCHEMY_KEY} are never substituted. The default network is marked with *.

	With --output yaml the merged manifest is printed instead, ready to be passed back with
	--networks-file.
`

var networksExample = `
	# Print the profiles of the embedded manifest merged with a local one
	stableyield networks --networks-file local.yaml --output yaml
`

func newNetworksCmd(cfg Config, opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "networks",
		Short:   "List the network profiles",
		Long:    longDesc(networksLong),
		Example: examples(networksExample),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = rt.lggr.Sync() }()

			switch output {
			case outputTable:
				writeNetworksTable(cmd, rt.networks)

				return nil
			case outputYAML:
				data, merr := yaml.Marshal(rt.networks)
				if merr != nil {
					return fmt.Errorf("failed to marshal networks: %w", merr)
				}
				_, err = cmd.OutOrStdout().Write(data)

				return err
			default:
				return fmt.Errorf("unknown output format %q, expected %s or %s", output, outputTable, outputYAML)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or yaml")

	return cmd
}

// writeNetworksTable renders one row per profile.
func writeNetworksTable(cmd *cobra.Command, networks *network.Registry) {
	profiles := networks.Profiles()
	data := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		name := p.Name
		if name == networks.Default() {
			name += " *"
		}

		chainID, chainName := "-", "-"
		if p.ChainID != 0 {
			chainID = strconv.FormatUint(p.ChainID, 10)
		}
		if n := p.ChainName(); n != "" {
			chainName = n
		}

		data = append(data, []string{name, chainID, chainName, p.URL})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Name", "Chain ID", "Chain", "URL"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{
		Left:   false,
		Right:  false,
		Top:    true,
		Bottom: true,
	})
	table.AppendBulk(data)
	table.Render()
}
