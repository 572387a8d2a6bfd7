package aegis

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/custodian-labs/aegis/types"
)

var (
	// ErrPaused is returned when scheduling or delayed execution is attempted
	// while the scheduler pause window is active.
	ErrPaused = errors.New("scheduler is paused")

	// ErrArityMismatch is returned when the parallel arrays of a batched
	// registration call have different lengths.
	ErrArityMismatch = errors.New("array lengths must be equal")

	// ErrSelfTarget is returned when a calldata check names the scheduler
	// itself as the target.
	ErrSelfTarget = errors.New("contract address cannot be this")

	// ErrWildcardConflict is returned when a wildcard check would coexist
	// with byte-range checks for the same (target, selector) pair.
	ErrWildcardConflict = errors.New("wildcard cannot be combined with calldata checks")

	// ErrRecoveryNotReady is returned when recovery execution is attempted
	// before initiation, before the recovery delay has elapsed, or after a
	// previous successful execution.
	ErrRecoveryNotReady = errors.New("recovery not ready")

	// ErrRecoveryAlreadyInitiated is returned when recovery initiation is
	// attempted more than once, including after execution.
	ErrRecoveryAlreadyInitiated = errors.New("recovery already initiated")

	// ErrNoSignaturesNeeded is returned when signatures are supplied to a
	// recovery configured with a zero signature threshold.
	ErrNoSignaturesNeeded = errors.New("no signatures needed")

	// ErrSignatureLengthMismatch is returned when the v, r and s arrays of a
	// recovery execution have different lengths.
	ErrSignatureLengthMismatch = errors.New("signature length mismatch")
)

// NotProposerError is returned when a caller without the scheduling role
// attempts to schedule or cancel a proposal.
type NotProposerError struct {
	Caller common.Address
}

func (e *NotProposerError) Error() string {
	return fmt.Sprintf("caller %s does not hold the proposer role", e.Caller)
}

// NotGuardianError is returned when a caller without the guardian role
// attempts to pause. The guardian role is consumed on use, so this is also
// returned for a second pause attempt.
type NotGuardianError struct {
	Caller common.Address
}

func (e *NotGuardianError) Error() string {
	return fmt.Sprintf("caller %s is not the pause guardian", e.Caller)
}

// NotHotSignerError is returned when a caller without the hot-signer role
// attempts whitelisted execution.
type NotHotSignerError struct {
	Caller common.Address
}

func (e *NotHotSignerError) Error() string {
	return fmt.Sprintf("caller %s does not hold the hot-signer role", e.Caller)
}

// NotSelfError is returned when a configuration method is called by anything
// other than the scheduler's own execution identity. Configuration changes
// are only reachable through a scheduled self-call.
type NotSelfError struct {
	Caller common.Address
}

func (e *NotSelfError) Error() string {
	return fmt.Sprintf("caller %s is not the scheduler itself", e.Caller)
}

// NotRecoveryOwnerError is returned when recovery initiation is attempted by
// an address outside the configured recovery owner set.
type NotRecoveryOwnerError struct {
	Caller common.Address
}

func (e *NotRecoveryOwnerError) Error() string {
	return fmt.Sprintf("caller %s is not a recovery owner", e.Caller)
}

// OperationAlreadyScheduledError is returned when a schedule call derives an
// identifier that already denotes a proposal.
type OperationAlreadyScheduledError struct {
	ID common.Hash
}

func (e *OperationAlreadyScheduledError) Error() string {
	return fmt.Sprintf("operation %s is already scheduled", e.ID)
}

// OperationNotReadyError is returned when execution is attempted on a
// proposal that is not in the ready state.
type OperationNotReadyError struct {
	ID    common.Hash
	State types.OperationState
}

func (e *OperationNotReadyError) Error() string {
	return fmt.Sprintf("operation %s is not ready: state is %s", e.ID, e.State)
}

// OperationExpiredError is returned when execution is attempted on a
// proposal whose expiration period has passed. Expired proposals are
// permanently unexecutable.
type OperationExpiredError struct {
	ID common.Hash
}

func (e *OperationExpiredError) Error() string {
	return fmt.Sprintf("operation %s has expired", e.ID)
}

// OperationNotPendingError is returned when cancellation is attempted on a
// proposal that is not live.
type OperationNotPendingError struct {
	ID common.Hash
}

func (e *OperationNotPendingError) Error() string {
	return fmt.Sprintf("operation %s is not pending", e.ID)
}

// PredecessorNotDoneError is returned when execution is attempted before the
// proposal's declared predecessor has executed.
type PredecessorNotDoneError struct {
	ID common.Hash
}

func (e *PredecessorNotDoneError) Error() string {
	return fmt.Sprintf("predecessor operation %s is not done", e.ID)
}

// DelayOutOfRangeError is returned when a schedule call supplies a delay
// outside the configured [min, max] bounds.
type DelayOutOfRangeError struct {
	Delay types.Duration
	Min   types.Duration
	Max   types.Duration
}

func (e *DelayOutOfRangeError) Error() string {
	return fmt.Sprintf("delay %s is outside the allowed range [%s, %s]", e.Delay, e.Min, e.Max)
}

// InvalidIndexRangeError is returned when a calldata check registration
// supplies byte offsets that do not describe a valid payload range.
type InvalidIndexRangeError struct {
	StartIndex uint16
	EndIndex   uint16
}

func (e *InvalidIndexRangeError) Error() string {
	return fmt.Sprintf("invalid calldata check range [%d, %d)", e.StartIndex, e.EndIndex)
}

// CalldataNotWhitelistedError is returned when a call in a whitelisted batch
// fails to match any registered check for its (target, selector) pair. The
// whole batch is rejected before any call executes.
type CalldataNotWhitelistedError struct {
	CallIndex int
	Reason    error
}

func (e *CalldataNotWhitelistedError) Error() string {
	return fmt.Sprintf("call %d is not whitelisted: %s", e.CallIndex, e.Reason)
}

func (e *CalldataNotWhitelistedError) Unwrap() error {
	return e.Reason
}

// CheckNotFoundError is returned when no calldata checks are registered for
// a (target, selector) pair.
type CheckNotFoundError struct {
	Target   common.Address
	Selector types.Selector
}

func (e *CheckNotFoundError) Error() string {
	return fmt.Sprintf("no calldata checks registered for target %s selector %s", e.Target, e.Selector.Hex())
}

// DuplicateCheckError is returned when an identical calldata check is
// registered twice for the same (target, selector) pair.
type DuplicateCheckError struct {
	Target   common.Address
	Selector types.Selector
}

func (e *DuplicateCheckError) Error() string {
	return fmt.Sprintf("duplicate calldata check for target %s selector %s", e.Target, e.Selector.Hex())
}

// ExecutionFailedError is returned when a call in a batch fails downstream.
// No proposal state is committed, so the batch is retryable until it
// expires.
type ExecutionFailedError struct {
	CallIndex int
	Err       error
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("execution failed at call %d: %s", e.CallIndex, e.Err)
}

func (e *ExecutionFailedError) Unwrap() error {
	return e.Err
}

// InvalidSignatureError is returned when a recovery signature is malformed
// or recovers to an address outside the recovery owner set. Signature
// validation fails fast on the first invalid signature.
type InvalidSignatureError struct {
	RecoveredAddress common.Address
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature: recovered address %s is not a recovery owner", e.RecoveredAddress)
}

// DuplicateSignatureError is returned when two supplied recovery signatures
// recover to the same address within one execution attempt.
type DuplicateSignatureError struct {
	Signer common.Address
}

func (e *DuplicateSignatureError) Error() string {
	return fmt.Sprintf("duplicate signature from %s", e.Signer)
}

// NotEnoughSignaturesError is returned when fewer valid, unique signatures
// than the configured threshold are supplied.
type NotEnoughSignaturesError struct {
	Got  int
	Want uint64
}

func (e *NotEnoughSignaturesError) Error() string {
	return fmt.Sprintf("not enough signatures: got %d, want %d", e.Got, e.Want)
}

// RecoveryFailedError is returned when the wallet rejects the owner-swap
// module call. RecoverySpell state is unchanged and the execution is
// retryable.
type RecoveryFailedError struct {
	Err error
}

func (e *RecoveryFailedError) Error() string {
	return fmt.Sprintf("recovery failed: %s", e.Err)
}

func (e *RecoveryFailedError) Unwrap() error {
	return e.Err
}
