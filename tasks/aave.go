package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stableyield/deployments/chain/evm"
	"github.com/stableyield/deployments/contracts"
	"github.com/stableyield/deployments/engine/task"
)

// AaveDataProvider is the Aave protocol data provider queried by aave-reserve-data, whatever the
// active network.
var AaveDataProvider = common.HexToAddress("0x057835Ad21a177dbdd3090bB1CAE03EaCF78Fc6d")

const liquidityRateField = "liquidityRate"

func aaveReserveData(ctx context.Context, env task.Env, args task.Args) error {
	asset, err := evm.ParseAddress(args.Get("asset"))
	if err != nil {
		return fmt.Errorf("%w: asset: %w", ErrInvalidAddress, err)
	}

	warnDataProviderMismatch(env)

	chain, err := env.Chain(ctx)
	if err != nil {
		return err
	}

	provider, err := contracts.Attach(contracts.IProtocolDataProvider, AaveDataProvider, chain.Client)
	if err != nil {
		return err
	}

	fields, err := getReserveData(ctx, provider, asset)
	if err != nil {
		return fmt.Errorf("failed to read reserve data of %s on network %s: %w", asset.Hex(), chain.Network, err)
	}

	for _, f := range fields {
		if f.name == liquidityRateField {
			if _, err = fmt.Fprintln(env.Out, f.value); err != nil {
				return err
			}
		}
	}
	for _, f := range fields {
		if _, err = fmt.Fprintf(env.Out, "%s: %v\n", f.name, f.value); err != nil {
			return err
		}
	}

	return nil
}

// reserveField is one named output of getReserveData.
type reserveField struct {
	name  string
	value any
}

func getReserveData(ctx context.Context, c *bind.BoundContract, asset common.Address) ([]reserveField, error) {
	parsed, err := contracts.IProtocolDataProvider.ABI()
	if err != nil {
		return nil, err
	}
	method, ok := parsed.Methods["getReserveData"]
	if !ok {
		return nil, errors.New("getReserveData is missing from the data provider interface")
	}

	var out []any
	if err = c.Call(&bind.CallOpts{Context: ctx}, &out, "getReserveData", asset); err != nil {
		return nil, err
	}
	if len(out) != len(method.Outputs) {
		return nil, fmt.Errorf("getReserveData returned %d values, expected %d", len(out), len(method.Outputs))
	}

	fields := make([]reserveField, len(out))
	for i, arg := range method.Outputs {
		fields[i] = reserveField{name: arg.Name, value: out[i]}
	}

	return fields, nil
}

// warnDataProviderMismatch flags profiles whose own data provider is not the one queried.
func warnDataProviderMismatch(env task.Env) {
	configured, err := env.Network.Contract("dataProvider")
	if err != nil || configured == AaveDataProvider {
		return
	}

	env.Logger.Warnw("Network profile configures a different Aave data provider, querying the fixed one",
		"network", env.Network.Name, "configured", configured.Hex(), "queried", AaveDataProvider.Hex(),
	)
}
