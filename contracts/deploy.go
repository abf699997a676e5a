package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/deployments/chain/evm"
)

// DeploymentResult describes a confirmed contract deployment. It is printed and never stored.
type DeploymentResult struct {
	ContractName string
	Address      common.Address
	TxHash       common.Hash
	BlockNumber  uint64
}

// String returns "<ContractName>: <checksummed address>".
func (r DeploymentResult) String() string {
	return fmt.Sprintf("%s: %s", r.ContractName, r.Address.Hex())
}

// Deploy submits the creation transaction of f with the constructor args, waits for it to be
// confirmed and returns the deployed address.
//
// A constructor revert, whether detected while estimating gas or after mining, fails with
// evm.ErrDeploymentReverted. Endpoint failures surface as evm.ErrRPCUnavailable.
func Deploy(ctx context.Context, chain evm.Chain, f Factory, args ...any) (DeploymentResult, error) {
	if chain.DeployerKey == nil {
		return DeploymentResult{}, fmt.Errorf("network %s has no deployer key, set MNEMONIC to deploy", chain.Network)
	}
	if chain.Confirm == nil {
		return DeploymentResult{}, errors.New("chain has no confirm function")
	}

	opts := *chain.DeployerKey
	opts.Context = ctx

	addr, tx, _, err := bind.DeployContract(&opts, f.ABI, f.Bytecode, chain.Client, args...)
	if err != nil {
		if evm.IsRevert(err) {
			return DeploymentResult{}, revertError(f.Kind, chain.Network, err)
		}

		return DeploymentResult{}, fmt.Errorf("failed to submit deployment of %s on network %s: %w",
			f.Kind, chain.Network, err,
		)
	}

	blockNum, err := chain.Confirm(tx)
	if err != nil {
		return DeploymentResult{}, fmt.Errorf("deployment of %s failed: %w", f.Kind, err)
	}

	return DeploymentResult{
		ContractName: f.Kind.Label(),
		Address:      addr,
		TxHash:       tx.Hash(),
		BlockNumber:  blockNum,
	}, nil
}

// revertError reports a constructor revert, with the node's revert data when it sent any.
func revertError(k Kind, network string, err error) error {
	if data := evm.RevertData(err); data != "" {
		return fmt.Errorf("%w: %s on network %s (revert data %s): %w",
			evm.ErrDeploymentReverted, k, network, data, err,
		)
	}

	return fmt.Errorf("%w: %s on network %s: %w", evm.ErrDeploymentReverted, k, network, err)
}

// Attach binds the embedded interface of k to an already deployed address.
func Attach(k Kind, address common.Address, backend bind.ContractBackend) (*bind.BoundContract, error) {
	parsed, err := k.ABI()
	if err != nil {
		return nil, err
	}

	return bind.NewBoundContract(address, parsed, backend, backend, backend), nil
}

// CallString calls a view method returning a single string, e.g. name() or symbol().
func CallString(ctx context.Context, c *bind.BoundContract, method string) (string, error) {
	var out []any
	if err := c.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return "", fmt.Errorf("failed to call %s(): %w", method, err)
	}

	if len(out) != 1 {
		return "", fmt.Errorf("%s() returned %d values, expected 1", method, len(out))
	}

	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s() returned %T, expected string", method, out[0])
	}

	return s, nil
}
