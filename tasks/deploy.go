package tasks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/task"
)

// approvedTokens are the stablecoins the vault accepts, in constructor order.
var approvedTokens = []string{"DAI", "USDC", "USDT", "TUSD", "SUSD", "BUSD"}

// vaultArgs holds the constructor arguments of the vault read from a network profile.
type vaultArgs struct {
	startingToken   common.Address
	addressProvider common.Address
	dataProvider    common.Address
	approvedTokens  []common.Address
}

func (a vaultArgs) values() []any {
	return []any{a.startingToken, a.addressProvider, a.dataProvider, a.approvedTokens}
}

func vaultArgsFromEnv(env task.Env) (vaultArgs, error) {
	p := env.Network

	var (
		args vaultArgs
		err  error
	)

	if args.startingToken, err = p.Token("DAI"); err != nil {
		return vaultArgs{}, err
	}
	if args.addressProvider, err = p.Contract("addressProvider"); err != nil {
		return vaultArgs{}, err
	}
	if args.dataProvider, err = p.Contract("dataProvider"); err != nil {
		return vaultArgs{}, err
	}

	args.approvedTokens = make([]common.Address, 0, len(approvedTokens))
	for _, sym := range approvedTokens {
		addr, terr := p.Token(sym)
		if terr != nil {
			return vaultArgs{}, terr
		}
		args.approvedTokens = append(args.approvedTokens, addr)
	}

	return args, nil
}

func deployStableYieldVault(ctx context.Context, env task.Env, _ task.Args) error {
	args, err := vaultArgsFromEnv(env)
	if err != nil {
		return err
	}

	return deploy(ctx, env, contracts.StableYieldVaultWithCreditDelegation, args.values()...)
}

func deployStableYield(ctx context.Context, env task.Env, _ task.Args) error {
	return deploy(ctx, env, contracts.StableYield)
}

// deploy loads the factory before connecting so a missing artifact fails without network access.
func deploy(ctx context.Context, env task.Env, kind contracts.Kind, args ...any) error {
	if env.Artifacts == nil {
		return fmt.Errorf("%w: %s (no artifacts directory configured)", contracts.ErrFactoryNotFound, kind)
	}

	f, err := env.Artifacts.Factory(kind)
	if err != nil {
		return err
	}

	chain, err := env.Chain(ctx)
	if err != nil {
		return err
	}

	if chain.DeployerKey == nil {
		return fmt.Errorf("network %s has no deployer key, set MNEMONIC to deploy", chain.Network)
	}

	env.Logger.Infow("Deploying contract", "contract", kind.String(), "network", chain.Network,
		"deployer", chain.DeployerKey.From.Hex(),
	)

	res, err := contracts.Deploy(ctx, chain, f, args...)
	if err != nil {
		return err
	}

	env.Logger.Infow("Contract deployed", "contract", kind.String(), "address", res.Address.Hex(),
		"tx", res.TxHash.Hex(), "block", res.BlockNumber,
	)

	_, err = fmt.Fprintln(env.Out, res.String())

	return err
}
