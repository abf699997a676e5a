package tasks

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/chain/evm/provider"
	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/config/network"
	"github.com/stableyield/deployments/engine/task"
	"github.com/stableyield/deployments/internal/testutils"
	"github.com/stableyield/deployments/pkg/logger"
)

// newRegistry returns a registry holding every task.
func newRegistry(t *testing.T) *task.Registry {
	t.Helper()

	p := NewRegistryProvider()
	require.NoError(t, p.Init())

	return p.Registry()
}

// resolveProfile returns an embedded network profile.
func resolveProfile(t *testing.T, name string) network.Profile {
	t.Helper()

	reg, err := network.Load(nil)
	require.NoError(t, err)

	p, err := reg.Resolve(name)
	require.NoError(t, err)

	return p
}

// simChainLoader returns a loader of a fresh simulated chain.
func simChainLoader(t *testing.T) task.ChainLoader {
	t.Helper()

	chain, err := provider.NewSimChainProvider(t, provider.SimChainProviderConfig{}).Initialize(t.Context())
	require.NoError(t, err)

	return func(context.Context) (evm.Chain, error) { return chain, nil }
}

// nodeChainLoader returns a loader of a chain backed by the fake node.
func nodeChainLoader(t *testing.T, node *testutils.FakeNode) task.ChainLoader {
	t.Helper()

	rc := node.DialInProc()
	t.Cleanup(rc.Close)

	client := evm.NewClient(logger.Test(t), "development", rc)
	chain := evm.Chain{Network: "development", ChainID: 1337, Client: client, RPC: client}

	return func(context.Context) (evm.Chain, error) { return chain, nil }
}

// failingChainLoader fails the test when the task connects to the chain.
func failingChainLoader(t *testing.T) task.ChainLoader {
	t.Helper()

	return func(context.Context) (evm.Chain, error) {
		t.Error("chain must not be loaded")

		return evm.Chain{}, assert.AnError
	}
}

// writeArtifacts writes synthetic artifacts for the deployable contracts.
func writeArtifacts(t *testing.T) *contracts.ArtifactStore {
	t.Helper()

	root := t.TempDir()
	for _, k := range []struct {
		kind         contracts.Kind
		name, symbol string
	}{
		{kind: contracts.StableYield, name: "StableYield", symbol: "SY"},
		{kind: contracts.StableYieldVaultWithCreditDelegation, name: "StableYieldVault", symbol: "SYV"},
	} {
		abiJSON, err := k.kind.ABIJSON()
		require.NoError(t, err)

		testutils.WriteArtifact(t, root, testutils.ArtifactFixture{
			Name:     k.kind.ArtifactName(),
			ABI:      abiJSON,
			Bytecode: testutils.NameSymbolContract(k.name, k.symbol),
		})
	}

	return contracts.NewArtifactStore(root)
}

func Test_RegistryProvider_Init(t *testing.T) {
	t.Parallel()

	p := NewRegistryProvider()
	require.NoError(t, p.Init())

	names := make([]string, 0)
	for _, def := range p.Registry().List() {
		names = append(names, def.Name)
		assert.NotEmpty(t, def.Description, def.Name)
	}

	assert.Equal(t, []string{
		"deploy-stableyield-vault",
		"deploy-stableyield",
		"increase-time",
		"blocknumber",
		"aave-reserve-data",
		"maker-ilks",
	}, names)

	require.ErrorIs(t, p.Init(), task.ErrDuplicateTaskName)
}

func Test_Invoke_Arity(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)

	tests := []struct {
		name      string
		giveTask  string
		giveArgs  []string
		wantErrIs error
	}{
		{name: "unknown task", giveTask: "deploy-loot-token", wantErrIs: task.ErrUnknownTask},
		{name: "increase-time without time", giveTask: IncreaseTime, wantErrIs: task.ErrMissingParameter},
		{name: "aave-reserve-data without asset", giveTask: AaveReserveData, wantErrIs: task.ErrMissingParameter},
		{name: "blocknumber with argument", giveTask: BlockNumber, giveArgs: []string{"1"}, wantErrIs: task.ErrUnexpectedArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := task.Env{Chain: failingChainLoader(t)}
			err := r.Invoke(t.Context(), tt.giveTask, env, tt.giveArgs)
			require.ErrorIs(t, err, tt.wantErrIs)
		})
	}
}

func Test_MakerIlks(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)

	// Pure: the output is identical on every invocation.
	for range 2 {
		var out bytes.Buffer
		require.NoError(t, r.Invoke(t.Context(), MakerIlks, task.Env{Out: &out, Chain: failingChainLoader(t)}, nil))

		assert.Equal(t, ""+
			"ETH-A 0x4554482d41000000000000000000000000000000000000000000000000000000\n"+
			"ETH-B 0x4554482d42000000000000000000000000000000000000000000000000000000\n"+
			"USDC-A 0x555344432d410000000000000000000000000000000000000000000000000000\n",
			out.String(),
		)
	}
}

func Test_Bytes32String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "empty", give: ""},
		{name: "ilk", give: "ETH-A"},
		{name: "31 bytes", give: "0123456789012345678901234567890"},
		{name: "32 bytes", give: "01234567890123456789012345678901", wantErr: "bytes32 string must be less than 32 bytes, got 32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Bytes32String(tt.give)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.give, string(bytes.TrimRight(got[:], "\x00")))
			assert.Zero(t, got[31])
		})
	}
}
