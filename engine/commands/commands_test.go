package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/engine/chains"
	"github.com/stableyield/deployments/engine/config/env"
	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/engine/task"
	"github.com/stableyield/deployments/internal/testutils"
	"github.com/stableyield/deployments/pkg/logger"
	"github.com/stableyield/deployments/tasks"
)

var testSecrets = &env.Config{
	Mnemonic:        "test test test test test test test test test test test junk",
	AlchemyKey:      "alchemy-secret",
	AlchemyKeyKovan: "kovan-secret",
}

// fakeChainLoader records how it was built and serves a fixed chain.
type fakeChainLoader struct {
	profile network.Profile
	cfg     chains.Config
	chain   evm.Chain
	loads   int
	closed  bool
}

func (l *fakeChainLoader) Load(context.Context) (evm.Chain, error) {
	l.loads++

	return l.chain, nil
}

func (l *fakeChainLoader) Close() { l.closed = true }

// newTestRoot returns a root command with test dependencies and the chain loader it hands out.
func newTestRoot(t *testing.T, chain evm.Chain) (*cobra.Command, *fakeChainLoader, *bytes.Buffer) {
	t.Helper()

	loader := &fakeChainLoader{chain: chain}

	root, err := NewRootCommand(Config{
		Registry: tasks.NewRegistryProvider(),
		Deps: Deps{
			SecretsLoader: func(string) (*env.Config, error) { return testSecrets, nil },
			ChainLoader: func(_ logger.Logger, profile network.Profile, cfg chains.Config) ChainLoader {
				loader.profile = profile
				loader.cfg = cfg

				return loader
			},
			Logger: func(string) (logger.Logger, error) { return logger.Test(t), nil },
		},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	return root, loader, &out
}

func Test_NewRootCommand(t *testing.T) {
	t.Parallel()

	root, _, _ := newTestRoot(t, evm.Chain{})

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	// cobra sorts sub-commands by name.
	assert.ElementsMatch(t, []string{
		"deploy-stableyield-vault", "deploy-stableyield", "increase-time", "blocknumber",
		"aave-reserve-data", "maker-ilks", "networks",
	}, names)

	for _, flag := range []string{
		flagNetwork, flagArtifacts, flagEnvFile, flagNetworksFile, flagLogLevel, flagConfirmTimeout,
		flagTickInterval, flagAccountIndex, flagDialTimeout,
	} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}

	increaseTime, _, err := root.Find([]string{"increase-time"})
	require.NoError(t, err)
	assert.Equal(t, "increase-time <time>", increaseTime.Use)
	assert.Contains(t, increaseTime.Long, "Unix timestamp in seconds")
}

func Test_NewRootCommand_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewRootCommand(Config{})
	require.EqualError(t, err, "task registry provider is required")

	// Init fails on the second registration of the same provider.
	p := tasks.NewRegistryProvider()
	require.NoError(t, p.Init())
	_, err = NewRootCommand(Config{Registry: p})
	require.ErrorIs(t, err, task.ErrDuplicateTaskName)
}

func Test_TaskCommand_MakerIlks(t *testing.T) {
	t.Parallel()

	root, loader, out := newTestRoot(t, evm.Chain{})
	root.SetArgs([]string{"maker-ilks"})

	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.Contains(t, out.String(), "ETH-A 0x4554482d41000000000000000000000000000000000000000000000000000000\n")
	assert.Zero(t, loader.loads)
	assert.True(t, loader.closed)
	assert.Equal(t, "development", loader.profile.Name)
}

func Test_TaskCommand_BlockNumber(t *testing.T) {
	t.Parallel()

	node := testutils.NewFakeNode(t, testutils.FakeNodeConfig{BlockNumber: 99})
	rc := node.DialInProc()
	t.Cleanup(rc.Close)
	client := evm.NewClient(logger.Test(t), "kovan", rc)

	root, loader, out := newTestRoot(t, evm.Chain{Network: "kovan", Client: client, RPC: client})
	root.SetArgs([]string{
		"--network", "kovan", "--confirm-timeout", "30s", "--account-index", "2", "--dial-timeout", "3s",
		"blocknumber",
	})

	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.Equal(t, "99\n", out.String())
	assert.Equal(t, 1, loader.loads)
	assert.True(t, loader.closed)

	// The resolved profile carries the substituted secrets.
	assert.Equal(t, "kovan", loader.profile.Name)
	assert.Equal(t, "https://eth-kovan.alchemyapi.io/v2/kovan-secret", loader.profile.URL)
	assert.Equal(t, testSecrets.Mnemonic, loader.profile.Accounts.Mnemonic)
	assert.Equal(t, uint32(2), loader.cfg.AccountIndex)
	assert.Equal(t, "30s", loader.cfg.ConfirmTimeout.String())
	assert.Equal(t, "3s", loader.cfg.DialTimeout.String())
}

func Test_TaskCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		giveArgs  []string
		wantErrIs error
		wantErr   string
	}{
		{
			name:      "unknown network",
			giveArgs:  []string{"--network", "ropsten", "blocknumber"},
			wantErrIs: network.ErrUnknownNetwork,
		},
		{
			name:      "missing parameter",
			giveArgs:  []string{"increase-time"},
			wantErrIs: task.ErrMissingParameter,
		},
		{
			name:      "unexpected argument",
			giveArgs:  []string{"maker-ilks", "extra"},
			wantErrIs: task.ErrUnexpectedArgument,
		},
		{
			name:      "invalid address",
			giveArgs:  []string{"aave-reserve-data", "0x1234"},
			wantErrIs: tasks.ErrInvalidAddress,
		},
		{
			name:     "unknown command",
			giveArgs: []string{"deploy-everything"},
			wantErr:  `unknown command "deploy-everything"`,
		},
		{
			name:     "missing networks file",
			giveArgs: []string{"--networks-file", "does-not-exist.yaml", "maker-ilks"},
			wantErr:  "failed to load networks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root, loader, _ := newTestRoot(t, evm.Chain{})
			root.SetArgs(tt.giveArgs)

			err := root.ExecuteContext(t.Context())
			require.Error(t, err)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
			}
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			}
			assert.Zero(t, loader.loads)
		})
	}
}

func Test_TaskCommand_NetworksFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_network: local
networks:
  - name: local
    url: http://127.0.0.1:8545/
    gas_price: 1
    chain_id: 31337
    accounts:
      mnemonic: ${MNEMONIC}
`), 0o600))

	root, loader, _ := newTestRoot(t, evm.Chain{})
	root.SetArgs([]string{"--networks-file", path, "maker-ilks"})

	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.Equal(t, "local", loader.profile.Name)
	assert.Equal(t, uint64(31337), loader.profile.ChainID)
}

func Test_TaskCommand_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	root, err := NewRootCommand(Config{
		Registry: tasks.NewRegistryProvider(),
		Deps: Deps{
			SecretsLoader: func(string) (*env.Config, error) { return testSecrets, nil },
		},
	})
	require.NoError(t, err)
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "loud", "maker-ilks"})

	err = root.ExecuteContext(t.Context())
	require.ErrorContains(t, err, `invalid log level "loud"`)
}

func Test_NetworksCommand(t *testing.T) {
	t.Parallel()

	root, _, out := newTestRoot(t, evm.Chain{})
	root.SetArgs([]string{"networks"})

	require.NoError(t, root.ExecuteContext(t.Context()))

	got := out.String()
	assert.Contains(t, got, "NAME")
	assert.Contains(t, got, "CHAIN ID")
	assert.Contains(t, got, "development *")
	assert.Contains(t, got, "ethereum-mainnet")
	assert.Contains(t, got, "${ALCHEMY_KEY_KOVAN}")
	assert.NotContains(t, got, "kovan-secret")
	assert.NotContains(t, got, "alchemy-secret")
	for _, name := range []string{"hardhat", "rinkeby", "kovan", "mainnet"} {
		assert.Contains(t, got, name)
	}
}

func Test_NetworksCommand_Output(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "yaml", give: "yaml"},
		{name: "unknown", give: "json", wantErr: `unknown output format "json", expected table or yaml`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root, _, out := newTestRoot(t, evm.Chain{})
			root.SetArgs([]string{"networks", "--output", tt.give})

			err := root.ExecuteContext(t.Context())
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)

				return
			}
			require.NoError(t, err)

			// The printed manifest loads back as a networks file.
			m, err := network.ParseManifest("networks.yaml", out.Bytes())
			require.NoError(t, err)
			assert.Equal(t, "development", m.DefaultNetwork)
			require.Len(t, m.Networks, 5)
			assert.NotContains(t, out.String(), "kovan-secret")
			assert.Contains(t, out.String(), "${ALCHEMY_KEY_KOVAN}")
		})
	}
}

func Test_examples(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "  a\n  b", examples("\n\t\ta\n\t\tb\n"))
	assert.Equal(t, "a\n\nb", longDesc("\n\ta\n\n\tb\n"))
	assert.Empty(t, examples("  "))
}
