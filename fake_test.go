package aegis

import (
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// executedCall records one call the fake wallet received.
type executedCall struct {
	to        common.Address
	value     *big.Int
	data      []byte
	operation CallOperation
}

// fakeWallet is an in-memory stand-in for the external custodial multisig.
// It applies replaceOwners calldata targeted at itself and records every
// module call; rejectCalls and failErr simulate wallet-side failures.
type fakeWallet struct {
	mu sync.Mutex

	address   common.Address
	owners    []common.Address
	threshold uint64

	executed    []executedCall
	rejectCalls bool
	failErr     error
}

func newFakeWallet(address common.Address, owners []common.Address, threshold uint64) *fakeWallet {
	return &fakeWallet{
		address:   address,
		owners:    slices.Clone(owners),
		threshold: threshold,
	}
}

func (w *fakeWallet) IsOwner(_ context.Context, owner common.Address) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Contains(w.owners, owner), nil
}

func (w *fakeWallet) GetOwners(_ context.Context) ([]common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.owners), nil
}

func (w *fakeWallet) ExecTransactionFromModule(
	_ context.Context,
	to common.Address,
	value *big.Int,
	data []byte,
	operation CallOperation,
) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failErr != nil {
		return false, w.failErr
	}
	if w.rejectCalls {
		return false, nil
	}

	// Owner-swap calls target the wallet itself.
	if to == w.address {
		owners, threshold, err := UnpackReplaceOwners(data)
		if err != nil {
			return false, err
		}
		w.owners = owners
		w.threshold = threshold.Uint64()
	}

	w.executed = append(w.executed, executedCall{
		to:        to,
		value:     value,
		data:      slices.Clone(data),
		operation: operation,
	})

	return true, nil
}

func (w *fakeWallet) executedCalls() []executedCall {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.executed)
}

func (w *fakeWallet) currentOwners() []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()

	return slices.Clone(w.owners)
}

func (w *fakeWallet) currentThreshold() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.threshold
}

// fakeSigner implements the Signer interface for testing purposes.
type fakeSigner struct {
	sigB []byte
	err  error
}

func (f *fakeSigner) Sign(payload []byte) ([]byte, error) {
	return f.sigB, f.err
}

func (f *fakeSigner) GetAddress() (common.Address, error) {
	if f.err != nil {
		return common.Address{}, f.err
	}

	return common.Address{}, nil
}

var errWalletDown = errors.New("wallet unavailable")
