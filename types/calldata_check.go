package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// CalldataCheck is a byte-range rule gating timelock bypass for a specific
// (target, selector) pair. A call payload matches when its
// [StartIndex:EndIndex] slice equals Expected byte-for-byte.
//
// StartIndex is always at least SelectorLength so a check can never reference
// the selector itself.
type CalldataCheck struct {
	StartIndex uint16        `json:"startIndex"`
	EndIndex   uint16        `json:"endIndex"`
	Expected   hexutil.Bytes `json:"expected"`
}

// IsWildcard reports whether the check is the allow-all form: an empty range
// anchored directly after the selector with no expected bytes. A wildcard
// admits every payload for its pair and cannot coexist with range checks.
func (c CalldataCheck) IsWildcard() bool {
	return c.StartIndex == SelectorLength && c.EndIndex == SelectorLength && len(c.Expected) == 0
}
