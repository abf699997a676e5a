// Package contracts holds the closed set of contracts the tooling deploys or reads, and the
// machinery to load their compiled artifacts and deploy them.
package contracts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrFactoryNotFound is returned when the compiled artifact of a contract is missing or
// carries no deployable bytecode.
var ErrFactoryNotFound = errors.New("contract factory not found")

//go:embed abi/*.json
var abiFS embed.FS

// Kind identifies one of the contracts known to the tooling.
type Kind int

const (
	// LootToken is the reward ERC-20 token.
	LootToken Kind = iota + 1
	// StableYield is the StableYield core contract.
	StableYield
	// StableYieldVaultWithCreditDelegation is the lending vault with Aave credit delegation.
	StableYieldVaultWithCreditDelegation
	// IProtocolDataProvider is the Aave protocol data provider interface. It has no bytecode
	// and is only attached to at a known address.
	IProtocolDataProvider
)

type kindInfo struct {
	artifact string
	label    string
}

var kindInfos = map[Kind]kindInfo{
	LootToken:                            {artifact: "LootToken", label: "LootToken"},
	StableYield:                          {artifact: "StableYield", label: "StableYield"},
	StableYieldVaultWithCreditDelegation: {artifact: "StableYieldVaultWithCreditDelegation", label: "StableYieldVault"},
	IProtocolDataProvider:                {artifact: "IProtocolDataProvider", label: "IProtocolDataProvider"},
}

// Kinds returns every known kind.
func Kinds() []Kind {
	return []Kind{LootToken, StableYield, StableYieldVaultWithCreditDelegation, IProtocolDataProvider}
}

// ParseKind resolves a contract by its artifact name or display label, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		info := kindInfos[k]
		if strings.EqualFold(s, info.artifact) || strings.EqualFold(s, info.label) {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown contract %q", ErrFactoryNotFound, s)
}

// ArtifactName is the name of the compiled artifact, which is the Solidity contract name.
func (k Kind) ArtifactName() string {
	return kindInfos[k].artifact
}

// Label is the name printed next to a deployed address.
func (k Kind) Label() string {
	return kindInfos[k].label
}

func (k Kind) String() string {
	if info, ok := kindInfos[k]; ok {
		return info.artifact
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ABI returns the embedded interface of the contract.
func (k Kind) ABI() (abi.ABI, error) {
	data, err := k.ABIJSON()
	if err != nil {
		return abi.ABI{}, err
	}

	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse embedded ABI of %s: %w", k, err)
	}

	return parsed, nil
}

// ABIJSON returns the raw embedded interface of the contract.
func (k Kind) ABIJSON() ([]byte, error) {
	info, ok := kindInfos[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFactoryNotFound, k)
	}

	data, err := abiFS.ReadFile("abi/" + info.artifact + ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded ABI of %s: %w", k, err)
	}

	return data, nil
}
