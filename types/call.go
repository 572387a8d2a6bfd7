package types

import (
	"encoding/json"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

// SelectorLength is the number of leading payload bytes that identify the
// function being invoked.
const SelectorLength = 4

// Selector is the fixed-width function identifier prefix of a call payload.
type Selector [SelectorLength]byte

// SelectorFromData extracts the selector from a call payload. The second
// return value is false when the payload is too short to carry one.
func SelectorFromData(data []byte) (Selector, bool) {
	var sel Selector
	if len(data) < SelectorLength {
		return sel, false
	}
	copy(sel[:], data[:SelectorLength])

	return sel, true
}

// Hex returns the selector as a 0x-prefixed hex string.
func (s Selector) Hex() string {
	return hexutil.Encode(s[:])
}

// Call is a single (target, value, payload) triple executed through the
// wallet's module-call interface.
type Call struct {
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

// ValueOrZero returns the call value, treating a nil value as zero.
func (c Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return big.NewInt(0)
	}

	return c.Value
}

// Selector extracts the function selector from the call payload.
func (c Call) Selector() (Selector, bool) {
	return SelectorFromData(c.Data)
}

// CallBatch is a batch of calls to be scheduled as one proposal, together
// with the predecessor and salt that determine the proposal's identifier.
type CallBatch struct {
	Calls       []Call      `json:"calls" validate:"required,min=1"`
	Predecessor common.Hash `json:"predecessor"`
	Salt        common.Hash `json:"salt"`
	Delay       Duration    `json:"delay"`
	Description string      `json:"description"`
}

// NewCallBatch decodes a batch from JSON and validates it.
func NewCallBatch(r io.Reader) (*CallBatch, error) {
	var b CallBatch
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, err
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return &b, nil
}

// WriteCallBatch encodes the batch as indented JSON.
func WriteCallBatch(w io.Writer, b *CallBatch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(b)
}

// Validate runs tag-based validation over the batch.
func (b *CallBatch) Validate() error {
	return validator.New().Struct(b)
}
