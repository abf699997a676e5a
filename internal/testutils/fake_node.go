package testutils

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// getReserveDataSelector is the selector of getReserveData(address).
var getReserveDataSelector = crypto.Keccak256([]byte("getReserveData(address)"))[:4]

// ReserveData is the tuple returned by getReserveData, in declaration order.
type ReserveData struct {
	AvailableLiquidity      *big.Int
	TotalStableDebt         *big.Int
	TotalVariableDebt       *big.Int
	LiquidityRate           *big.Int
	VariableBorrowRate      *big.Int
	StableBorrowRate        *big.Int
	AverageStableBorrowRate *big.Int
	LiquidityIndex          *big.Int
	VariableBorrowIndex     *big.Int
	LastUpdateTimestamp     *big.Int
}

// FakeNodeConfig configures a FakeNode.
type FakeNodeConfig struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	// Reserves are answered by eth_call to getReserveData at any address. Unknown assets revert.
	Reserves map[common.Address]ReserveData
	// WithoutDevMethods leaves out the evm_ namespace, like a hosted endpoint.
	WithoutDevMethods bool
}

// rpcError is a JSON-RPC error with a code, as returned by real nodes.
type rpcError struct {
	code int
	msg  string
}

func (e *rpcError) Error() string  { return e.msg }
func (e *rpcError) ErrorCode() int { return e.code }

// FakeNode is an in-memory JSON-RPC node implementing the eth_ and evm_ methods the tasks use.
// The chain head only advances through evm_mine.
type FakeNode struct {
	mu            sync.Mutex
	chainID       uint64
	blockNumber   uint64
	timestamp     uint64
	nextTimestamp *uint64
	reserves      map[common.Address]ReserveData
	calls         []common.Address

	srv  *rpc.Server
	http *httptest.Server
}

// NewFakeNode starts a fake node served over HTTP and in-process. It is stopped when the test
// ends.
func NewFakeNode(t *testing.T, cfg FakeNodeConfig) *FakeNode {
	t.Helper()

	if cfg.ChainID == 0 {
		cfg.ChainID = 1337
	}

	n := &FakeNode{
		chainID:     cfg.ChainID,
		blockNumber: cfg.BlockNumber,
		timestamp:   cfg.Timestamp,
		reserves:    cfg.Reserves,
		srv:         rpc.NewServer(),
	}

	require.NoError(t, n.srv.RegisterName("eth", &fakeEthAPI{n: n}))
	if !cfg.WithoutDevMethods {
		require.NoError(t, n.srv.RegisterName("evm", &fakeEVMAPI{n: n}))
	}

	n.http = httptest.NewServer(n.srv)
	t.Cleanup(func() {
		n.http.Close()
		n.srv.Stop()
	})

	return n
}

// URL returns the HTTP endpoint of the node.
func (n *FakeNode) URL() string {
	return n.http.URL
}

// DialInProc returns an in-process client of the node.
func (n *FakeNode) DialInProc() *rpc.Client {
	return rpc.DialInProc(n.srv)
}

// Head returns the current block number and timestamp.
func (n *FakeNode) Head() (uint64, uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.blockNumber, n.timestamp
}

// Calls returns the contract addresses eth_call was invoked on, in order.
func (n *FakeNode) Calls() []common.Address {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]common.Address(nil), n.calls...)
}

type fakeEthAPI struct{ n *FakeNode }

func (api *fakeEthAPI) ChainId() *hexutil.Big { //nolint:revive // JSON-RPC method name
	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	return (*hexutil.Big)(new(big.Int).SetUint64(api.n.chainID))
}

func (api *fakeEthAPI) BlockNumber() hexutil.Uint64 {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	return hexutil.Uint64(api.n.blockNumber)
}

// GetBlockByNumber only knows the head block, whatever number is requested.
func (api *fakeEthAPI) GetBlockByNumber(_ string, _ bool) *types.Header {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	return &types.Header{
		Number:     new(big.Int).SetUint64(api.n.blockNumber),
		Time:       api.n.timestamp,
		Difficulty: new(big.Int),
		GasLimit:   30_000_000,
		Extra:      []byte{},
	}
}

func (api *fakeEthAPI) Call(args map[string]any, _ string) (hexutil.Bytes, error) {
	to, data, err := parseCallArgs(args)
	if err != nil {
		return nil, err
	}

	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	api.n.calls = append(api.n.calls, to)

	if len(data) != 4+32 || !bytes.Equal(data[:4], getReserveDataSelector) {
		return nil, &rpcError{code: 3, msg: "execution reverted"}
	}

	asset := common.BytesToAddress(data[4:])
	reserve, ok := api.n.reserves[asset]
	if !ok {
		return nil, &rpcError{code: 3, msg: "execution reverted"}
	}

	return packReserveData(reserve)
}

type fakeEVMAPI struct{ n *FakeNode }

// SetNextBlockTimestamp mirrors Hardhat: the timestamp must be greater than the head's.
func (api *fakeEVMAPI) SetNextBlockTimestamp(ts uint64) (hexutil.Uint64, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	if ts <= api.n.timestamp {
		return 0, &rpcError{
			code: -32000,
			msg: fmt.Sprintf("Timestamp %d is lower than or equal to previous block's timestamp %d",
				ts, api.n.timestamp),
		}
	}
	api.n.nextTimestamp = &ts

	return hexutil.Uint64(ts), nil
}

// Mine seals a block using the pending timestamp, or head + 1 when none is set.
func (api *fakeEVMAPI) Mine() string {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()

	api.n.blockNumber++
	if api.n.nextTimestamp != nil {
		api.n.timestamp = *api.n.nextTimestamp
		api.n.nextTimestamp = nil
	} else {
		api.n.timestamp++
	}

	return "0x0"
}

func parseCallArgs(args map[string]any) (common.Address, []byte, error) {
	toStr, _ := args["to"].(string)
	if !common.IsHexAddress(toStr) {
		return common.Address{}, nil, errors.New("missing to address")
	}

	input, ok := args["input"].(string)
	if !ok {
		input, _ = args["data"].(string)
	}

	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("invalid input: %w", err)
	}

	return common.HexToAddress(toStr), data, nil
}

func packReserveData(r ReserveData) ([]byte, error) {
	uint256 := mustType("uint256")
	uint40 := mustType("uint40")

	args := abi.Arguments{
		{Type: uint256}, {Type: uint256}, {Type: uint256}, {Type: uint256}, {Type: uint256},
		{Type: uint256}, {Type: uint256}, {Type: uint256}, {Type: uint256}, {Type: uint40},
	}

	return args.Pack(
		orZero(r.AvailableLiquidity), orZero(r.TotalStableDebt), orZero(r.TotalVariableDebt),
		orZero(r.LiquidityRate), orZero(r.VariableBorrowRate), orZero(r.StableBorrowRate),
		orZero(r.AverageStableBorrowRate), orZero(r.LiquidityIndex), orZero(r.VariableBorrowIndex),
		orZero(r.LastUpdateTimestamp),
	)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
