package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/stableyield/deployments/engine/task"
)

const (
	setNextBlockTimestamp = "evm_setNextBlockTimestamp"

	// rpcMethodNotFound is the JSON-RPC 2.0 code for an unknown method.
	rpcMethodNotFound = -32601
)

// increaseTime sets the timestamp of the next block of the active network. The node must expose
// the evm_setNextBlockTimestamp method, as Hardhat and Anvil do.
func increaseTime(ctx context.Context, env task.Env, args task.Args) error {
	raw := strings.TrimSpace(args.Get("time"))
	ts, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidTimestamp, raw)
	}

	chain, err := env.Chain(ctx)
	if err != nil {
		return err
	}
	if chain.RPC == nil {
		return fmt.Errorf("network %s does not accept raw JSON-RPC calls", chain.Network)
	}

	head, err := chain.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to read head of network %s: %w", chain.Network, err)
	}
	if ts <= head.Time {
		return fmt.Errorf("%w: %d is not after the head timestamp %d (block %d)",
			ErrInvalidTimestamp, ts, head.Time, head.Number,
		)
	}

	var res json.RawMessage
	if err = chain.RPC.CallContext(ctx, &res, setNextBlockTimestamp, ts); err != nil {
		return setTimestampError(chain.Network, ts, err)
	}

	env.Logger.Infow("Next block timestamp set", "network", chain.Network, "timestamp", ts)

	_, err = fmt.Fprintln(env.Out, formatRawResult(res))

	return err
}

// setTimestampError maps node replies to a failed evm_setNextBlockTimestamp call: a missing
// method is ErrUnsupportedMethod and a rejected timestamp is ErrInvalidTimestamp.
func setTimestampError(network string, ts uint64, err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}

	switch {
	case rpcErr.ErrorCode() == rpcMethodNotFound:
		return fmt.Errorf("%w: network %s has no %s method, use a Hardhat or Anvil node: %w",
			ErrUnsupportedMethod, network, setNextBlockTimestamp, err,
		)
	case strings.Contains(strings.ToLower(rpcErr.Error()), "timestamp"):
		return fmt.Errorf("%w: node rejected %d: %w", ErrInvalidTimestamp, ts, err)
	default:
		return fmt.Errorf("failed to set next block timestamp on network %s: %w", network, err)
	}
}

func blockNumber(ctx context.Context, env task.Env, _ task.Args) error {
	chain, err := env.Chain(ctx)
	if err != nil {
		return err
	}

	num, err := chain.Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read block number of network %s: %w", chain.Network, err)
	}

	_, err = fmt.Fprintln(env.Out, num)

	return err
}

// formatRawResult prints JSON strings without quotes and anything else as compact JSON.
func formatRawResult(res json.RawMessage) string {
	var s string
	if err := json.Unmarshal(res, &s); err == nil {
		return s
	}
	if len(res) == 0 {
		return "null"
	}

	return string(res)
}
