package aegis

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/custodian-labs/aegis/types"
)

// CallOperation is the kind of call performed through the wallet's module
// interface.
type CallOperation uint8

const (
	OperationCall CallOperation = iota
	OperationDelegateCall
)

// Wallet is the consumed interface of the external custodial multisig. The
// wallet itself is out of scope; the scheduler and the RecoverySpell only
// ever touch it through these entry points.
//
// Guard and module registration hooks exist on real wallets but are only
// used during setup, so they are not part of this interface.
type Wallet interface {
	// IsOwner reports whether the address is one of the wallet's owners.
	IsOwner(ctx context.Context, owner common.Address) (bool, error)

	// GetOwners returns the wallet's current owner set.
	GetOwners(ctx context.Context) ([]common.Address, error)

	// ExecTransactionFromModule executes a call on behalf of an enabled
	// module. A false result means the wallet rejected or failed the call.
	ExecTransactionFromModule(
		ctx context.Context,
		to common.Address,
		value *big.Int,
		data []byte,
		operation CallOperation,
	) (bool, error)
}

// replaceOwnersABI describes the wallet's owner-swap entry point: the full
// replacement owner list and the new signing threshold, applied atomically.
const replaceOwnersABI = `[{
	"name": "replaceOwners",
	"type": "function",
	"inputs": [
		{"name": "newOwners", "type": "address[]"},
		{"name": "newThreshold", "type": "uint256"}
	]
}]`

var walletABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(replaceOwnersABI))
})

// PackReplaceOwners encodes the calldata for the wallet's owner-swap entry
// point. The RecoverySpell submits this through ExecTransactionFromModule
// with the wallet itself as the target.
func PackReplaceOwners(newOwners []common.Address, newThreshold *big.Int) ([]byte, error) {
	parsed, err := walletABI()
	if err != nil {
		return nil, err
	}

	return parsed.Pack("replaceOwners", newOwners, newThreshold)
}

// UnpackReplaceOwners decodes owner-swap calldata. Wallet implementations
// and test fakes use this to apply the swap.
func UnpackReplaceOwners(data []byte) ([]common.Address, *big.Int, error) {
	parsed, err := walletABI()
	if err != nil {
		return nil, nil, err
	}

	method := parsed.Methods["replaceOwners"]
	if len(data) < types.SelectorLength || string(data[:types.SelectorLength]) != string(method.ID) {
		return nil, nil, fmt.Errorf("data is not a replaceOwners call")
	}

	args, err := method.Inputs.Unpack(data[types.SelectorLength:])
	if err != nil {
		return nil, nil, err
	}

	owners, ok := args[0].([]common.Address)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected type for newOwners: %T", args[0])
	}
	threshold, ok := args[1].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected type for newThreshold: %T", args[1])
	}

	return owners, threshold, nil
}
