package tasks

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stableyield/deployments/engine/task"
)

// Ilks are the Maker collateral types the vault interacts with.
var Ilks = []string{"ETH-A", "ETH-B", "USDC-A"}

// Bytes32String encodes s as a right zero padded bytes32. The encoding must keep a terminating
// zero byte, so strings of 32 bytes or more are rejected.
func Bytes32String(s string) (common.Hash, error) {
	if len(s) > common.HashLength-1 {
		return common.Hash{}, fmt.Errorf("bytes32 string must be less than 32 bytes, got %d", len(s))
	}

	var out common.Hash
	copy(out[:], s)

	return out, nil
}

func makerIlks(_ context.Context, env task.Env, _ task.Args) error {
	for _, ilk := range Ilks {
		enc, err := Bytes32String(ilk)
		if err != nil {
			return err
		}

		if _, err = fmt.Fprintln(env.Out, ilk, hexutil.Encode(enc[:])); err != nil {
			return err
		}
	}

	return nil
}
