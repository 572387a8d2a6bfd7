// Package abi provides abi.encode / abi.decode equivalents over argument
// layouts expressed as JSON fragments. Identifier hashing and the self-call
// dispatch both need raw ABI encodings of ad-hoc tuples.
package abi

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Encode packs the values according to the argument layout in abiStr and
// returns the encoding without a selector.
func Encode(abiStr string, values ...any) ([]byte, error) {
	// Wrap the arguments in a dummy method so the standard JSON parser can
	// read the layout.
	inDef := fmt.Sprintf(`[{ "name" : "method", "type": "function", "inputs": %s}]`, abiStr)
	inAbi, err := abi.JSON(strings.NewReader(inDef))
	if err != nil {
		return nil, err
	}

	res, err := inAbi.Pack("method", values...)
	if err != nil {
		return nil, err
	}

	return res[4:], nil
}

// Decode unpacks data according to the argument layout in abiStr.
func Decode(abiStr string, data []byte) ([]any, error) {
	inDef := fmt.Sprintf(`[{ "name" : "method", "type": "function", "outputs": %s}]`, abiStr)
	inAbi, err := abi.JSON(strings.NewReader(inDef))
	if err != nil {
		return nil, err
	}

	return inAbi.Unpack("method", data)
}
