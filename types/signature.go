package types

import (
	"crypto/ecdsa"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureBytesLength is the length of a serialized signature: R and S
	// concatenated with the single recovery byte V.
	SignatureBytesLength = 65

	// SignatureComponentSize is the size of the R and S components in bytes.
	SignatureComponentSize = 32

	// SignatureVOffset adjusts the recovery id between the Ethereum
	// convention (27/28) and the raw convention (0/1).
	SignatureVOffset = 27
)

// Signature is an ECDSA signature split into its R, S and V components, the
// form in which recovery signatures are collected offline.
type Signature struct {
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
	V uint8       `json:"v"`
}

// NewSignatureFromBytes parses a 65-byte R || S || V serialization.
func NewSignatureFromBytes(sig []byte) (Signature, error) {
	if len(sig) != SignatureBytesLength {
		return Signature{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}

	return Signature{
		R: common.BytesToHash(sig[:SignatureComponentSize]),
		S: common.BytesToHash(sig[SignatureComponentSize:(SignatureBytesLength - 1)]),
		V: sig[SignatureBytesLength-1],
	}, nil
}

// NewSignatureFromVRS assembles a signature from separately transported
// components.
func NewSignatureFromVRS(v uint8, r, s common.Hash) Signature {
	return Signature{R: r, S: s, V: v}
}

// ToBytes returns the 65-byte R || S || V serialization.
func (s Signature) ToBytes() []byte {
	return slices.Concat(
		s.R.Bytes(),
		s.S.Bytes(),
		[]byte{s.V},
	)
}

// Recover returns the address that produced the signature over the given
// message hash.
func (s Signature) Recover(hash common.Hash) (common.Address, error) {
	pubKey, err := s.RecoverPublicKey(hash)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// RecoverPublicKey returns the public key that produced the signature over
// the given message hash.
func (s Signature) RecoverPublicKey(hash common.Hash) (*ecdsa.PublicKey, error) {
	sig := s.ToBytes()

	// crypto.SigToPub expects a recovery id of 0 or 1, Ethereum signatures
	// carry 27 or 28.
	if sig[SignatureBytesLength-1] > 1 {
		sig[SignatureBytesLength-1] -= SignatureVOffset
	}

	return crypto.SigToPub(hash.Bytes(), sig)
}
