package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/stableyield/deployments/chain/evm"
)

// DefaultTickInterval matches the receipt polling interval of bind.WaitMined.
const DefaultTickInterval = 1 * time.Second

// ConfirmFunctor is an interface for creating a confirmation function for transactions on the
// EVM chain.
type ConfirmFunctor interface {
	// Generate returns a function that confirms transactions on the EVM chain.
	Generate(
		ctx context.Context, network string, client evm.OnchainClient, from common.Address,
	) (evm.ConfirmFunc, error)
}

// ConfirmFuncGeth returns a ConfirmFunctor that polls the node for the receipt until it appears
// or waitMinedTimeout elapses.
func ConfirmFuncGeth(waitMinedTimeout time.Duration, opts ...func(*confirmFuncGeth)) ConfirmFunctor {
	cf := &confirmFuncGeth{
		tickInterval:     DefaultTickInterval,
		waitMinedTimeout: waitMinedTimeout,
	}
	for _, o := range opts {
		o(cf)
	}

	return cf
}

// WithTickInterval overrides DefaultTickInterval.
func WithTickInterval(interval time.Duration) func(*confirmFuncGeth) {
	return func(o *confirmFuncGeth) {
		o.tickInterval = interval
	}
}

// confirmFuncGeth implements the ConfirmFunctor interface which generates a confirmation function
// for transactions using the Geth client.
type confirmFuncGeth struct {
	tickInterval     time.Duration
	waitMinedTimeout time.Duration
}

// Generate returns a function that confirms transactions using the Geth client.
func (g *confirmFuncGeth) Generate(
	ctx context.Context, network string, client evm.OnchainClient, from common.Address,
) (evm.ConfirmFunc, error) {
	return func(tx *types.Transaction) (uint64, error) {
		if tx == nil {
			return 0, fmt.Errorf("tx was nil, nothing to confirm on network %s", network)
		}

		ctxTimeout, cancel := context.WithTimeout(ctx, g.waitMinedTimeout)
		defer cancel()

		receipt, err := WaitMinedWithInterval(ctxTimeout, g.tickInterval, client, tx.Hash())
		if err != nil {
			return 0, fmt.Errorf("tx %s failed to confirm on network %s: %w",
				tx.Hash().Hex(), network, err,
			)
		}

		return checkReceipt(ctxTimeout, network, client, from, tx, receipt)
	}, nil
}

// checkReceipt returns the block number of a successful receipt, or ErrDeploymentReverted with
// the decoded revert reason when the transaction failed.
func checkReceipt(
	ctx context.Context,
	network string,
	caller ContractCaller,
	from common.Address,
	tx *types.Transaction,
	receipt *types.Receipt,
) (uint64, error) {
	if receipt == nil {
		return 0, fmt.Errorf("receipt was nil for tx %s on network %s", tx.Hash().Hex(), network)
	}

	blockNum := receipt.BlockNumber.Uint64()

	if receipt.Status == types.ReceiptStatusFailed {
		reason, err := getErrorReasonFromTx(ctx, caller, from, tx, receipt)
		if err == nil && reason != "" {
			return blockNum, fmt.Errorf("%w: tx %s reverted on network %s: %s",
				evm.ErrDeploymentReverted, tx.Hash().Hex(), network, reason,
			)
		}

		return blockNum, fmt.Errorf("%w: tx %s reverted, could not decode error reason on network %s",
			evm.ErrDeploymentReverted, tx.Hash().Hex(), network,
		)
	}

	return blockNum, nil
}

// WaitMinedWithInterval polls for the receipt of txHash every tick until it is found, a
// non-"not found" error occurs, or ctx is done.
func WaitMinedWithInterval(
	ctx context.Context, tick time.Duration, b bind.DeployBackend, txHash common.Hash,
) (*types.Receipt, error) {
	return retry.DoWithData(
		func() (*types.Receipt, error) {
			return b.TransactionReceipt(ctx, txHash)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(tick),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ethereum.NotFound)
		}),
	)
}
