package aegis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"slices"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	abiutils "github.com/custodian-labs/aegis/internal/utils/abi"
	"github.com/custodian-labs/aegis/internal/utils/safecast"
	"github.com/custodian-labs/aegis/types"
)

// recoveryExecuted is the terminal sentinel for recoveryInitiated: it is
// never a plausible timestamp, so a successful execution permanently blocks
// re-initiation and re-execution.
const recoveryExecuted uint64 = math.MaxUint64

var (
	eip712DomainTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(uint256 chainId,address verifyingContract)"),
	)
	recoveryTypeHash = crypto.Keccak256Hash(
		[]byte("Recovery(address wallet,address[] owners,uint256 newThreshold,uint256 signatureThreshold,uint256 delay)"),
	)
)

// RecoveryParams are the public parameters of one RecoverySpell deployment.
// They are JSON-encodable so signers can compute the digest offline without
// a wallet connection.
type RecoveryParams struct {
	// Address is the deployment identity of this instance. Together with
	// ChainID it is mixed into the signing digest, so two instances never
	// share a valid signature even with identical parameters.
	Address common.Address `json:"address" validate:"required"`
	ChainID *big.Int       `json:"chainId" validate:"required"`

	// WalletAddress is the custodial wallet whose owners are replaced.
	WalletAddress common.Address `json:"walletAddress" validate:"required"`

	// Owners is the pre-committed replacement owner set; its members are
	// also the only addresses allowed to initiate and sign.
	Owners []common.Address `json:"owners" validate:"required,min=1,unique"`

	// NewThreshold is the wallet signing threshold installed on execution.
	NewThreshold uint64 `json:"newThreshold" validate:"required,min=1"`

	// SignatureThreshold is how many distinct owner signatures execution
	// requires. Zero means initiation alone arms the recovery.
	SignatureThreshold uint64 `json:"signatureThreshold"`

	// Delay is the time that must pass between initiation and execution.
	Delay types.Duration `json:"delay"`
}

// NewRecoveryParams decodes parameters from JSON and validates them.
func NewRecoveryParams(r io.Reader) (*RecoveryParams, error) {
	var p RecoveryParams
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, err
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks the parameters for structural soundness.
func (p RecoveryParams) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return err
	}

	if p.NewThreshold > uint64(len(p.Owners)) {
		return fmt.Errorf("new threshold %d exceeds owner count %d", p.NewThreshold, len(p.Owners))
	}
	if p.SignatureThreshold > uint64(len(p.Owners)) {
		return fmt.Errorf("signature threshold %d exceeds owner count %d", p.SignatureThreshold, len(p.Owners))
	}
	for _, owner := range p.Owners {
		if owner == (common.Address{}) {
			return errors.New("recovery owner cannot be the zero address")
		}
	}

	return nil
}

// Digest returns the hash recovery owners sign for this deployment, bound
// under an EIP-712 style domain separator derived from (chain id, deployment
// address). Signers wrap it with the Ethereum signed message prefix before
// signing; hardware wallets do this in-device.
func (p RecoveryParams) Digest() (common.Hash, error) {
	domainSeparator, err := abiutils.Encode(
		`[{"type":"bytes32"},{"type":"uint256"},{"type":"address"}]`,
		[32]byte(eip712DomainTypeHash), p.ChainID, p.Address,
	)
	if err != nil {
		return common.Hash{}, err
	}

	ownersHash := crypto.Keccak256Hash(packAddresses(p.Owners))

	structEncoded, err := abiutils.Encode(
		`[{"type":"bytes32"},{"type":"address"},{"type":"bytes32"},{"type":"uint256"},{"type":"uint256"},{"type":"uint256"}]`,
		[32]byte(recoveryTypeHash),
		p.WalletAddress,
		[32]byte(ownersHash),
		new(big.Int).SetUint64(p.NewThreshold),
		new(big.Int).SetUint64(p.SignatureThreshold),
		big.NewInt(int64(p.Delay.Seconds())),
	)
	if err != nil {
		return common.Hash{}, err
	}

	digest := crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		crypto.Keccak256(domainSeparator),
		crypto.Keccak256(structEncoded),
	)

	return digest, nil
}

func packAddresses(addrs []common.Address) []byte {
	packed := make([]byte, 0, len(addrs)*common.AddressLength)
	for _, addr := range addrs {
		packed = append(packed, addr.Bytes()...)
	}

	return packed
}

// toEthSignedMessageHash wraps a hash with the Ethereum signed message
// prefix so standard EIP-191 signers produce compatible signatures.
func toEthSignedMessageHash(messageHash common.Hash) common.Hash {
	prefix := []byte("\x19Ethereum Signed Message:\n32")

	return crypto.Keccak256Hash(append(prefix, messageHash.Bytes()...))
}

// RecoveryConfig is a RecoveryParams plus the runtime collaborators a live
// RecoverySpell needs.
type RecoveryConfig struct {
	RecoveryParams

	Wallet Wallet      `json:"-" validate:"required"`
	Clock  clock.Clock `json:"-"`
	Logger *zap.Logger `json:"-"`
}

// RecoverySpell replaces the wallet's owners with a pre-committed set after
// a delay, once a quorum of recovery owners has signed off offline. It is a
// two-phase, one-shot machine: initiate, wait, execute.
//
// The spell shares no state with the Timelock; its only mutable field is the
// initiation timestamp.
type RecoverySpell struct {
	mu sync.Mutex

	params RecoveryParams
	wallet Wallet
	digest common.Hash

	// recoveryInitiated is 0 before initiation, the initiation time after,
	// and recoveryExecuted forever after a successful execution.
	recoveryInitiated uint64

	clock  clock.Clock
	logger *zap.Logger
}

// NewRecoverySpell creates a spell from a validated configuration. The
// signing digest is fixed at construction.
func NewRecoverySpell(cfg RecoveryConfig) (*RecoverySpell, error) {
	if cfg.Wallet == nil {
		return nil, errors.New("wallet is required")
	}
	if err := cfg.RecoveryParams.Validate(); err != nil {
		return nil, err
	}

	digest, err := cfg.RecoveryParams.Digest()
	if err != nil {
		return nil, err
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RecoverySpell{
		params: cfg.RecoveryParams,
		wallet: cfg.Wallet,
		digest: digest,
		clock:  clk,
		logger: logger.With(zap.String("component", "recoveryspell"), zap.Stringer("address", cfg.Address)),
	}, nil
}

// GetDigest returns the hash recovery owners sign for this instance.
func (r *RecoverySpell) GetDigest() common.Hash {
	return r.digest
}

// Owners returns the pre-committed replacement owner set.
func (r *RecoverySpell) Owners() []common.Address {
	return slices.Clone(r.params.Owners)
}

// Params returns the instance parameters.
func (r *RecoverySpell) Params() RecoveryParams {
	return r.params
}

// InitiateRecovery arms the spell. Only a recovery owner may initiate, and
// only once: the call fails after initiation and forever after execution.
func (r *RecoverySpell) InitiateRecovery(caller common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.Contains(r.params.Owners, caller) {
		return &NotRecoveryOwnerError{Caller: caller}
	}
	if r.recoveryInitiated != 0 {
		return ErrRecoveryAlreadyInitiated
	}

	now, err := safecast.Int64ToUint64(r.clock.Now().Unix())
	if err != nil {
		return err
	}
	r.recoveryInitiated = now

	r.logger.Warn("recovery initiated", zap.Stringer("caller", caller))

	return nil
}

// ExecuteRecovery swaps the wallet's entire owner set for the pre-committed
// one. It requires a prior initiation regardless of the signature threshold,
// the recovery delay to have elapsed, and, when the threshold is positive,
// at least that many valid, distinct owner signatures over this instance's
// digest, supplied as parallel v, r, s arrays.
//
// A wallet-side rejection leaves the spell unchanged and retryable; success
// is terminal.
func (r *RecoverySpell) ExecuteRecovery(ctx context.Context, vs []uint8, rs, ss []common.Hash) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkReadyLocked(); err != nil {
		return err
	}

	if r.params.SignatureThreshold == 0 {
		if len(vs) != 0 || len(rs) != 0 || len(ss) != 0 {
			return ErrNoSignaturesNeeded
		}
	} else {
		if err := r.verifySignaturesLocked(vs, rs, ss); err != nil {
			return err
		}
	}

	data, err := PackReplaceOwners(r.params.Owners, new(big.Int).SetUint64(r.params.NewThreshold))
	if err != nil {
		return err
	}

	ok, err := r.wallet.ExecTransactionFromModule(ctx, r.params.WalletAddress, big.NewInt(0), data, OperationCall)
	if err != nil {
		return &RecoveryFailedError{Err: err}
	}
	if !ok {
		return &RecoveryFailedError{Err: errors.New("wallet rejected the owner swap")}
	}

	r.recoveryInitiated = recoveryExecuted

	r.logger.Warn("recovery executed",
		zap.Int("owners", len(r.params.Owners)),
		zap.Uint64("newThreshold", r.params.NewThreshold),
	)

	// Sanity check, log only: the swap already succeeded wallet-side.
	if owners, err := r.wallet.GetOwners(ctx); err == nil && !slices.Equal(owners, r.params.Owners) {
		r.logger.Warn("wallet owner set does not match the committed set after recovery")
	}

	return nil
}

// checkReadyLocked gates execution on initiation plus the elapsed delay.
// The executed sentinel also fails here, making execution one-shot.
func (r *RecoverySpell) checkReadyLocked() error {
	if r.recoveryInitiated == 0 || r.recoveryInitiated == recoveryExecuted {
		return ErrRecoveryNotReady
	}

	now, err := safecast.Int64ToUint64(r.clock.Now().Unix())
	if err != nil {
		return err
	}
	if now < r.recoveryInitiated+uint64(r.params.Delay.Seconds()) {
		return ErrRecoveryNotReady
	}

	return nil
}

// verifySignaturesLocked recovers each supplied signature against the
// instance digest, failing fast on the first malformed or non-member
// signature and on the first repeated recovered address.
func (r *RecoverySpell) verifySignaturesLocked(vs []uint8, rs, ss []common.Hash) error {
	if len(vs) != len(rs) || len(vs) != len(ss) {
		return ErrSignatureLengthMismatch
	}

	signedHash := toEthSignedMessageHash(r.digest)

	seen := make(map[common.Address]struct{}, len(vs))
	for i := range vs {
		sig := types.NewSignatureFromVRS(vs[i], rs[i], ss[i])

		recovered, err := sig.Recover(signedHash)
		if err != nil {
			return &InvalidSignatureError{}
		}
		if !slices.Contains(r.params.Owners, recovered) {
			return &InvalidSignatureError{RecoveredAddress: recovered}
		}
		if _, dup := seen[recovered]; dup {
			return &DuplicateSignatureError{Signer: recovered}
		}
		seen[recovered] = struct{}{}
	}

	if uint64(len(seen)) < r.params.SignatureThreshold {
		return &NotEnoughSignaturesError{Got: len(seen), Want: r.params.SignatureThreshold}
	}

	return nil
}

// RecoveryInitiated returns the raw initiation state: 0 before initiation,
// the initiation time after, and the terminal sentinel once executed.
func (r *RecoverySpell) RecoveryInitiated() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.recoveryInitiated
}

// Executed reports whether the recovery has run to completion.
func (r *RecoverySpell) Executed() bool {
	return r.RecoveryInitiated() == recoveryExecuted
}
