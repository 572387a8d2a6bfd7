package aegis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/custodian-labs/aegis/internal/utils/safecast"
	"github.com/custodian-labs/aegis/types"
)

const (
	// timestampUnset marks a proposal slot that is empty or cancelled.
	timestampUnset uint64 = 0

	// timestampDone is the sentinel for an executed proposal. Real ready
	// timestamps are always far above it.
	timestampDone uint64 = 1
)

// Config carries the immutable identity and the initial policy of a
// Timelock. Delay bounds, expiration, the guardian and the hot-signer set
// can later change, but only through scheduled self-calls.
type Config struct {
	// Address is the scheduler's own execution identity. Self-targeted calls
	// in an executed proposal dispatch to the configuration surface.
	Address common.Address `validate:"required"`

	// Wallet is the custodial multisig the scheduler fronts.
	Wallet Wallet `validate:"required"`

	// Proposer holds the scheduling and cancellation role. Expected to be
	// the wallet itself, acting through its own quorum.
	Proposer common.Address `validate:"required"`

	// Guardian may pause once; the role is consumed on use.
	Guardian common.Address

	// HotSigners may execute whitelisted batches without a delay. They can
	// never schedule or cancel.
	HotSigners []common.Address

	MinDelay         types.Duration `validate:"required"`
	MaxDelay         types.Duration `validate:"required"`
	ExpirationPeriod types.Duration `validate:"required"`
	PauseDuration    types.Duration `validate:"required"`

	// Clock supplies the current time for every gate. Defaults to the real
	// clock; tests inject a mock.
	Clock clock.Clock

	// Logger defaults to a nop logger.
	Logger *zap.Logger
}

// Validate checks the configuration for structural soundness.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.MinDelay.Duration > c.MaxDelay.Duration {
		return fmt.Errorf("min delay %s exceeds max delay %s", c.MinDelay, c.MaxDelay)
	}
	if c.Proposer == c.Address {
		return errors.New("proposer cannot be the scheduler itself")
	}
	for _, signer := range c.HotSigners {
		if signer == (common.Address{}) {
			return errors.New("hot signer cannot be the zero address")
		}
	}

	return nil
}

// proposalRecord is the stored state of one proposal. The epoch stamps the
// pause generation the proposal was created in; a proposal from an older
// epoch is treated as unset without touching storage.
type proposalRecord struct {
	timestamp uint64
	epoch     uint64
	delay     time.Duration
}

// Timelock is the proposal scheduler: it delays batches of calls against the
// wallet, executes them once ready, lets whitelisted calls bypass the delay,
// and can be paused once by the guardian.
//
// All entry points take the caller's identity explicitly. The embedding
// application authenticates callers; the Timelock authorizes them. Exactly
// two privileged roles exist besides the guardian: the proposer and the hot
// signers. No API creates further roles.
type Timelock struct {
	mu sync.Mutex

	address  common.Address
	wallet   Wallet
	proposer common.Address

	guardian   common.Address
	hotSigners map[common.Address]struct{}

	minDelay         time.Duration
	maxDelay         time.Duration
	expirationPeriod time.Duration
	pauseDuration    time.Duration

	// pauseStart is zero until the guardian pauses. Pausing also bumps the
	// epoch, invalidating every live proposal in O(1).
	pauseStart time.Time
	epoch      uint64

	proposals map[common.Hash]proposalRecord
	whitelist *CalldataList

	clock  clock.Clock
	logger *zap.Logger
}

// NewTimelock creates a scheduler from a validated configuration.
func NewTimelock(cfg Config) (*Timelock, error) {
	if err := cfg.Validate(); err != nil {
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

	hotSigners := make(map[common.Address]struct{}, len(cfg.HotSigners))
	for _, signer := range cfg.HotSigners {
		hotSigners[signer] = struct{}{}
	}

	return &Timelock{
		address:          cfg.Address,
		wallet:           cfg.Wallet,
		proposer:         cfg.Proposer,
		guardian:         cfg.Guardian,
		hotSigners:       hotSigners,
		minDelay:         cfg.MinDelay.Duration,
		maxDelay:         cfg.MaxDelay.Duration,
		expirationPeriod: cfg.ExpirationPeriod.Duration,
		pauseDuration:    cfg.PauseDuration.Duration,
		proposals:        make(map[common.Hash]proposalRecord),
		whitelist:        NewCalldataList(cfg.Address),
		clock:            clk,
		logger:           logger.With(zap.String("component", "timelock"), zap.Stringer("address", cfg.Address)),
	}, nil
}

// Address returns the scheduler's execution identity.
func (t *Timelock) Address() common.Address {
	return t.address
}

// Schedule records a single-call proposal. See ScheduleBatch.
func (t *Timelock) Schedule(caller common.Address, call types.Call, predecessor, salt common.Hash, delay types.Duration) (common.Hash, error) {
	return t.ScheduleBatch(caller, &types.CallBatch{
		Calls:       []types.Call{call},
		Predecessor: predecessor,
		Salt:        salt,
		Delay:       delay,
	})
}

// ScheduleBatch records a batch proposal. The caller must hold the proposer
// role, the delay must lie within the configured bounds, and the derived
// identifier must not denote a live or done proposal. The proposal becomes
// ready at now + delay.
func (t *Timelock) ScheduleBatch(caller common.Address, batch *types.CallBatch) (common.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.proposer {
		return common.Hash{}, &NotProposerError{Caller: caller}
	}
	if t.pausedLocked() {
		return common.Hash{}, ErrPaused
	}
	if err := batch.Validate(); err != nil {
		return common.Hash{}, err
	}
	if batch.Delay.Duration < t.minDelay || batch.Delay.Duration > t.maxDelay {
		return common.Hash{}, &DelayOutOfRangeError{
			Delay: batch.Delay,
			Min:   types.NewDuration(t.minDelay),
			Max:   types.NewDuration(t.maxDelay),
		}
	}

	id, err := HashOperationBatch(batch.Calls, batch.Predecessor, batch.Salt)
	if err != nil {
		return common.Hash{}, err
	}
	if t.stateLocked(id) != types.OperationUnset {
		return common.Hash{}, &OperationAlreadyScheduledError{ID: id}
	}

	now, err := safecast.Int64ToUint64(t.clock.Now().Unix())
	if err != nil {
		return common.Hash{}, err
	}

	t.proposals[id] = proposalRecord{
		timestamp: now + uint64(batch.Delay.Seconds()),
		epoch:     t.epoch,
		delay:     batch.Delay.Duration,
	}

	t.logger.Info("proposal scheduled",
		zap.Stringer("id", id),
		zap.Int("calls", len(batch.Calls)),
		zap.Duration("delay", batch.Delay.Duration),
	)

	return id, nil
}

// Execute runs a single-call proposal. See ExecuteBatch.
func (t *Timelock) Execute(ctx context.Context, call types.Call, predecessor, salt common.Hash) error {
	return t.ExecuteBatch(ctx, []types.Call{call}, predecessor, salt)
}

// ExecuteBatch runs a ready proposal. Any caller may invoke it: readiness,
// expiration and the predecessor gate are the only guards. Calls run in
// array order; self-targeted calls dispatch to the configuration surface,
// everything else goes through the wallet's module-call interface. A single
// failure aborts the batch, rolls back scheduler state, and leaves the
// proposal executable until it expires.
func (t *Timelock) ExecuteBatch(ctx context.Context, calls []types.Call, predecessor, salt common.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pausedLocked() {
		return ErrPaused
	}

	id, err := HashOperationBatch(calls, predecessor, salt)
	if err != nil {
		return err
	}

	switch state := t.stateLocked(id); state {
	case types.OperationReady:
	case types.OperationExpired:
		return &OperationExpiredError{ID: id}
	default:
		return &OperationNotReadyError{ID: id, State: state}
	}

	if predecessor != (common.Hash{}) && t.stateLocked(predecessor) != types.OperationDone {
		return &PredecessorNotDoneError{ID: predecessor}
	}

	if err := t.executeCallsLocked(ctx, calls); err != nil {
		return err
	}

	rec := t.proposals[id]
	rec.timestamp = timestampDone
	t.proposals[id] = rec

	t.logger.Info("proposal executed", zap.Stringer("id", id), zap.Int("calls", len(calls)))

	return nil
}

// executeCallsLocked runs the calls in order, restoring the scheduler's own
// mutable state if any call fails. Wallet-side effects of calls that already
// ran cannot be recalled; the scheduler commits none of its own state on
// failure.
func (t *Timelock) executeCallsLocked(ctx context.Context, calls []types.Call) error {
	snapshot := t.snapshotLocked()

	for i, call := range calls {
		if err := t.executeCallLocked(ctx, call); err != nil {
			t.restoreLocked(snapshot)

			return &ExecutionFailedError{CallIndex: i, Err: err}
		}
	}

	return nil
}

// executeCallLocked routes one call: to the self-call dispatcher when the
// scheduler targets itself, through the wallet otherwise.
func (t *Timelock) executeCallLocked(ctx context.Context, call types.Call) error {
	if call.To == t.address {
		return t.dispatchSelfCallLocked(call.Data)
	}

	ok, err := t.wallet.ExecTransactionFromModule(ctx, call.To, call.ValueOrZero(), call.Data, OperationCall)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("wallet rejected the module call")
	}

	return nil
}

// Cancel resets a live proposal to unset. Only the proposer may cancel, and
// only while the proposal has not executed or expired.
func (t *Timelock) Cancel(caller common.Address, id common.Hash) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.proposer {
		return &NotProposerError{Caller: caller}
	}

	switch t.stateLocked(id) {
	case types.OperationPending, types.OperationReady:
	default:
		return &OperationNotPendingError{ID: id}
	}

	delete(t.proposals, id)

	t.logger.Info("proposal cancelled", zap.Stringer("id", id))

	return nil
}

// Pause is the guardian's break-glass: it invalidates every live proposal by
// bumping the epoch, blocks scheduling and delayed execution for the pause
// duration, and consumes the guardian role. Whitelisted execution stays
// available while paused.
func (t *Timelock) Pause(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.guardian == (common.Address{}) || caller != t.guardian {
		return &NotGuardianError{Caller: caller}
	}

	t.pauseStart = t.clock.Now()
	t.epoch++
	t.guardian = common.Address{}

	t.logger.Warn("scheduler paused",
		zap.Stringer("guardian", caller),
		zap.Uint64("epoch", t.epoch),
		zap.Duration("pauseDuration", t.pauseDuration),
	)

	return nil
}

// Paused reports whether the pause window is active. Un-pausing is
// automatic: the window closes once the pause duration elapses.
func (t *Timelock) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pausedLocked()
}

func (t *Timelock) pausedLocked() bool {
	if t.pauseStart.IsZero() {
		return false
	}

	return t.clock.Now().Before(t.pauseStart.Add(t.pauseDuration))
}

// ExecuteWhitelistedBatch executes a batch immediately, without scheduling,
// for a hot signer. Every call must match a registered calldata check for
// its (target, selector) pair; a single mismatch rejects the whole batch
// before any call executes.
func (t *Timelock) ExecuteWhitelistedBatch(ctx context.Context, caller common.Address, calls []types.Call) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.hotSigners[caller]; !ok {
		return &NotHotSignerError{Caller: caller}
	}
	if len(calls) == 0 {
		return errors.New("no calls in batch")
	}

	// All-or-nothing: match everything before executing anything.
	for i, call := range calls {
		if err := t.whitelist.Match(call); err != nil {
			return &CalldataNotWhitelistedError{CallIndex: i, Reason: err}
		}
	}

	if err := t.executeCallsLocked(ctx, calls); err != nil {
		return err
	}

	t.logger.Info("whitelisted batch executed",
		zap.Stringer("caller", caller),
		zap.Int("calls", len(calls)),
	)

	return nil
}

// snapshot captures the scheduler's mutable policy state for rollback
// around batch execution that may contain self-calls.
type snapshot struct {
	guardian         common.Address
	hotSigners       map[common.Address]struct{}
	minDelay         time.Duration
	maxDelay         time.Duration
	expirationPeriod time.Duration
	pauseDuration    time.Duration
	pauseStart       time.Time
	whitelist        *CalldataList
}

func (t *Timelock) snapshotLocked() snapshot {
	hotSigners := make(map[common.Address]struct{}, len(t.hotSigners))
	for signer := range t.hotSigners {
		hotSigners[signer] = struct{}{}
	}

	return snapshot{
		guardian:         t.guardian,
		hotSigners:       hotSigners,
		minDelay:         t.minDelay,
		maxDelay:         t.maxDelay,
		expirationPeriod: t.expirationPeriod,
		pauseDuration:    t.pauseDuration,
		pauseStart:       t.pauseStart,
		whitelist:        t.whitelist.clone(),
	}
}

func (t *Timelock) restoreLocked(s snapshot) {
	t.guardian = s.guardian
	t.hotSigners = s.hotSigners
	t.minDelay = s.minDelay
	t.maxDelay = s.maxDelay
	t.expirationPeriod = s.expirationPeriod
	t.pauseDuration = s.pauseDuration
	t.pauseStart = s.pauseStart
	t.whitelist.restore(s.whitelist)
}

// stateLocked derives a proposal's lifecycle state from its stored record
// and the clock. Pending->Ready and Ready->Expired are implicit transitions:
// nothing is written when they occur.
func (t *Timelock) stateLocked(id common.Hash) types.OperationState {
	rec, ok := t.proposals[id]
	if !ok {
		return types.OperationUnset
	}

	switch rec.timestamp {
	case timestampUnset:
		return types.OperationUnset
	case timestampDone:
		return types.OperationDone
	}

	// A proposal from a previous pause epoch was bulk-invalidated.
	if rec.epoch != t.epoch {
		return types.OperationUnset
	}

	now, err := safecast.Int64ToUint64(t.clock.Now().Unix())
	if err != nil {
		return types.OperationUnset
	}

	if now < rec.timestamp {
		return types.OperationPending
	}
	if now >= rec.timestamp+uint64(t.expirationPeriod.Seconds()) {
		return types.OperationExpired
	}

	return types.OperationReady
}

// OperationState returns the derived lifecycle state of a proposal.
func (t *Timelock) OperationState(id common.Hash) types.OperationState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stateLocked(id)
}

// IsOperation reports whether the identifier denotes a known proposal.
func (t *Timelock) IsOperation(id common.Hash) bool {
	return t.OperationState(id) != types.OperationUnset
}

// IsOperationPending reports whether the proposal is awaiting its delay.
func (t *Timelock) IsOperationPending(id common.Hash) bool {
	return t.OperationState(id) == types.OperationPending
}

// IsOperationReady reports whether the proposal is executable now.
func (t *Timelock) IsOperationReady(id common.Hash) bool {
	return t.OperationState(id) == types.OperationReady
}

// IsOperationDone reports whether the proposal has executed.
func (t *Timelock) IsOperationDone(id common.Hash) bool {
	return t.OperationState(id) == types.OperationDone
}

// IsOperationExpired reports whether the proposal became permanently
// unexecutable.
func (t *Timelock) IsOperationExpired(id common.Hash) bool {
	return t.OperationState(id) == types.OperationExpired
}

// GetCalldataChecks returns the registered checks for a (target, selector)
// pair.
func (t *Timelock) GetCalldataChecks(target common.Address, selector types.Selector) []types.CalldataCheck {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.whitelist.Checks(target, selector)
}

// MinDelay returns the lower scheduling delay bound.
func (t *Timelock) MinDelay() types.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return types.NewDuration(t.minDelay)
}

// MaxDelay returns the upper scheduling delay bound.
func (t *Timelock) MaxDelay() types.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return types.NewDuration(t.maxDelay)
}

// ExpirationPeriod returns how long a ready proposal stays executable.
func (t *Timelock) ExpirationPeriod() types.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return types.NewDuration(t.expirationPeriod)
}

// PauseDuration returns the length of the automatic un-pause timer.
func (t *Timelock) PauseDuration() types.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return types.NewDuration(t.pauseDuration)
}

// Guardian returns the current pause guardian, or the zero address once the
// role has been consumed.
func (t *Timelock) Guardian() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.guardian
}

// Epoch returns the current pause generation.
func (t *Timelock) Epoch() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.epoch
}

// Proposer returns the address holding the scheduling role.
func (t *Timelock) Proposer() common.Address {
	return t.proposer
}

// IsHotSigner reports whether the address holds the hot-signer role.
func (t *Timelock) IsHotSigner(addr common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.hotSigners[addr]

	return ok
}
