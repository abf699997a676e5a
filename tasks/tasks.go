// Package tasks holds the StableYield deployment and developer tasks.
package tasks

import (
	"errors"

	"github.com/stableyield/deployments/engine/task"
)

var (
	// ErrInvalidTimestamp is returned when a timestamp is not an unsigned integer or is not after
	// the current head.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidAddress is returned when an argument is not a 20 byte hex address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrUnsupportedMethod is returned when the node of the active network lacks a development
	// method such as evm_setNextBlockTimestamp.
	ErrUnsupportedMethod = errors.New("unsupported node method")
)

// Task names.
const (
	DeployStableYieldVault = "deploy-stableyield-vault"
	DeployStableYield      = "deploy-stableyield"
	IncreaseTime           = "increase-time"
	BlockNumber            = "blocknumber"
	AaveReserveData        = "aave-reserve-data"
	MakerIlks              = "maker-ilks"
)

var _ task.RegistryProvider = (*RegistryProvider)(nil)

// RegistryProvider registers every StableYield task.
type RegistryProvider struct {
	*task.BaseRegistryProvider
}

// NewRegistryProvider returns a provider whose registry is filled by Init.
func NewRegistryProvider() *RegistryProvider {
	return &RegistryProvider{
		BaseRegistryProvider: task.NewBaseRegistryProvider(),
	}
}

// Init registers the tasks in the order they are listed.
func (p *RegistryProvider) Init() error {
	defs := []task.Definition{
		{
			Name:        DeployStableYieldVault,
			Description: "Deploy StableYield Vault smart contract",
			Handler:     deployStableYieldVault,
		},
		{
			Name:        DeployStableYield,
			Description: "Deploy StableYield smart contract",
			Handler:     deployStableYield,
		},
		{
			Name:        IncreaseTime,
			Description: "Set the timestamp of the next block",
			Params:      []task.Param{{Name: "time", Description: "Unix timestamp in seconds"}},
			Handler:     increaseTime,
		},
		{
			Name:        BlockNumber,
			Description: "Print the current block number",
			Handler:     blockNumber,
		},
		{
			Name:        AaveReserveData,
			Description: "Get Lending Pool Reserve Data",
			Params:      []task.Param{{Name: "asset", Description: "Reserve asset address"}},
			Handler:     aaveReserveData,
		},
		{
			Name:        MakerIlks,
			Description: "Generate Maker ILKS",
			Handler:     makerIlks,
		},
	}

	for _, def := range defs {
		if err := p.Registry().Register(def); err != nil {
			return err
		}
	}

	return nil
}
