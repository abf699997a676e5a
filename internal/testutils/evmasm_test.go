package testutils

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InitCode_Layout(t *testing.T) {
	t.Parallel()

	runtime := []byte{0xde, 0xad, 0xbe, 0xef}
	code := InitCode(runtime)

	require.Len(t, code, initCodeSize+len(runtime))
	assert.Equal(t, []byte{opPUSH2, 0x00, 0x04, opDUP1, opPUSH2, 0x00, initCodeSize}, code[:7])
	assert.Equal(t, runtime, code[initCodeSize:])
}

func Test_NameSymbolContract(t *testing.T) {
	t.Parallel()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	opts, err := bind.NewKeyedTransactorWithChainID(key, params.AllDevChainProtocolChanges.ChainID)
	require.NoError(t, err)

	backend := simulated.NewBackend(types.GenesisAlloc{
		opts.From: {Balance: big.NewInt(params.Ether)},
	})
	t.Cleanup(func() { _ = backend.Close() })
	client := backend.Client()

	parsed, err := abi.JSON(strings.NewReader(`[
		{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
		{"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
		{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"}
	]`))
	require.NoError(t, err)

	addr, tx, bound, err := bind.DeployContract(opts, parsed, NameSymbolContract("Loot Token", "LOOT"), client)
	require.NoError(t, err)
	backend.Commit()

	receipt, err := bind.WaitMined(t.Context(), client, tx)
	require.NoError(t, err)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, addr, receipt.ContractAddress)

	tests := []struct {
		method string
		want   string
	}{
		{method: "name", want: "Loot Token"},
		{method: "symbol", want: "LOOT"},
	}
	for _, tt := range tests {
		var out []any
		require.NoError(t, bound.Call(&bind.CallOpts{Context: t.Context()}, &out, tt.method))
		require.Len(t, out, 1)
		assert.Equal(t, tt.want, out[0], tt.method)
	}

	// Unknown selectors revert.
	data, err := parsed.Pack("decimals")
	require.NoError(t, err)
	_, err = client.CallContract(context.Background(), ethereum.CallMsg{To: &addr, Data: data}, nil)
	require.Error(t, err)
}

func Test_RevertingInitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x60, 0x00, 0x80, 0xfd}, RevertingInitCode())
}
