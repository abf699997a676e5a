package network

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
)

var (
	// ErrUnknownToken is returned when a profile has no address for the requested token symbol.
	ErrUnknownToken = errors.New("unknown token")
	// ErrUnknownContract is returned when a profile has no address for the requested contract.
	ErrUnknownContract = errors.New("unknown contract")
)

// allowedURLSchemes are the schemes accepted for RPC endpoints.
var allowedURLSchemes = []string{"http", "https", "ws", "wss"}

// Profile is the connection configuration of one target chain together with the addresses of
// external contracts and tokens the deployment tasks reference on that chain.
type Profile struct {
	Name     string   `yaml:"name" toml:"name"`
	URL      string   `yaml:"url" toml:"url"`
	GasPrice uint64   `yaml:"gas_price" toml:"gas_price"`
	GasLimit uint64   `yaml:"gas_limit,omitempty" toml:"gas_limit,omitempty"`
	ChainID  uint64   `yaml:"chain_id,omitempty" toml:"chain_id,omitempty"`
	Accounts Accounts `yaml:"accounts" toml:"accounts"`
	// Contracts maps a logical contract name (e.g. addressProvider) to its address.
	Contracts map[string]string `yaml:"contracts,omitempty" toml:"contracts,omitempty"`
	// Tokens maps a token symbol (e.g. DAI) to its address.
	Tokens map[string]string `yaml:"tokens,omitempty" toml:"tokens,omitempty"`
	Fork   *ForkSource       `yaml:"fork,omitempty" toml:"fork,omitempty"`

	AllowUnlimitedContractSize bool `yaml:"allow_unlimited_contract_size,omitempty" toml:"allow_unlimited_contract_size,omitempty"`
}

// Accounts describes how the signing accounts of a profile are derived.
type Accounts struct {
	// Mnemonic is the BIP39 seed phrase, normally the ${MNEMONIC} placeholder.
	Mnemonic string `yaml:"mnemonic" toml:"mnemonic"`
}

// ForkSource is the upstream chain a local node forks from.
type ForkSource struct {
	URL         string `yaml:"url" toml:"url"`
	BlockNumber uint64 `yaml:"block_number,omitempty" toml:"block_number,omitempty"`
}

// Validate checks that the profile is usable. Placeholders must already be substituted.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}

	if err := validateURL(p.URL); err != nil {
		return fmt.Errorf("url: %w", err)
	}

	if p.Fork != nil {
		if err := validateURL(p.Fork.URL); err != nil {
			return fmt.Errorf("fork url: %w", err)
		}
	}

	for name, addr := range p.Contracts {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("contract %s: invalid address %q", name, addr)
		}
	}

	for symbol, addr := range p.Tokens {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("token %s: invalid address %q", symbol, addr)
		}
	}

	return nil
}

// Token returns the address of the token with the given symbol.
func (p Profile) Token(symbol string) (common.Address, error) {
	addr, ok := p.Tokens[symbol]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on network %s", ErrUnknownToken, symbol, p.Name)
	}

	return common.HexToAddress(addr), nil
}

// Contract returns the address of the external contract with the given logical name.
func (p Profile) Contract(name string) (common.Address, error) {
	addr, ok := p.Contracts[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s on network %s", ErrUnknownContract, name, p.Name)
	}

	return common.HexToAddress(addr), nil
}

// ChainName returns the canonical chain name for the profile's chain id, or an empty string when
// the chain id is unset or unknown.
func (p Profile) ChainName() string {
	if p.ChainID == 0 {
		return ""
	}

	details, err := chainsel.GetChainDetailsByChainIDAndFamily(
		strconv.FormatUint(p.ChainID, 10), chainsel.FamilyEVM,
	)
	if err != nil {
		return ""
	}

	return details.ChainName
}

// expand returns a copy of the profile with ${NAME} placeholders replaced using lookup.
func (p Profile) expand(lookup func(string) string) Profile {
	out := p
	out.Contracts = maps.Clone(p.Contracts)
	out.Tokens = maps.Clone(p.Tokens)
	out.URL = os.Expand(p.URL, lookup)
	out.Accounts.Mnemonic = os.Expand(p.Accounts.Mnemonic, lookup)

	if p.Fork != nil {
		fork := *p.Fork
		fork.URL = os.Expand(fork.URL, lookup)
		out.Fork = &fork
	}

	return out
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}

	// Errors must not echo the URL since it may embed an API key.
	u, err := url.Parse(raw)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return fmt.Errorf("malformed url: %w", uerr.Err)
		}

		return errors.New("malformed url")
	}

	if !slices.Contains(allowedURLSchemes, u.Scheme) {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("missing host")
	}

	return nil
}
