package aegis

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	abiutils "github.com/custodian-labs/aegis/internal/utils/abi"
	"github.com/custodian-labs/aegis/types"
)

// operationCall mirrors the tuple layout the identifier encoding uses. Field
// names must match the ABI component names.
type operationCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// callsTupleABI is the argument layout hashed into an operation identifier.
const callsTupleABI = `[
	{"components":[
		{"name":"target","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"}
	],"name":"calls","type":"tuple[]"},
	{"name":"predecessor","type":"bytes32"},
	{"name":"salt","type":"bytes32"}
]`

// HashOperationBatch derives the deterministic identifier of a proposal from
// the ordered calls, the predecessor identifier and the salt. Identical
// content always derives the identical identifier, which is what makes
// racing duplicate submissions resolve to "second one fails".
func HashOperationBatch(calls []types.Call, predecessor, salt common.Hash) (common.Hash, error) {
	encoded := make([]operationCall, len(calls))
	for i, call := range calls {
		encoded[i] = operationCall{
			Target: call.To,
			Value:  call.ValueOrZero(),
			Data:   call.Data,
		}
	}

	packed, err := abiutils.Encode(callsTupleABI, encoded, [32]byte(predecessor), [32]byte(salt))
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(packed), nil
}

// HashOperation derives the identifier of a single-call proposal.
func HashOperation(call types.Call, predecessor, salt common.Hash) (common.Hash, error) {
	return HashOperationBatch([]types.Call{call}, predecessor, salt)
}
