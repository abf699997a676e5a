package evm

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 20 byte hex address, with or without the 0x prefix. Unlike
// common.HexToAddress it rejects malformed input instead of truncating or padding it.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid EVM address format: %q", s)
	}

	return common.HexToAddress(s), nil
}
