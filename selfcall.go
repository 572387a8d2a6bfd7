package aegis

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/custodian-labs/aegis/internal/utils/safecast"
	"github.com/custodian-labs/aegis/types"
)

// selfCallABI is the scheduler's own configuration surface. Every method
// here requires the scheduler's execution identity as the caller, so the
// only way to reach one is as the payload of an executed proposal: policy
// changes inherit the timelock delay.
const selfCallABI = `[
	{"name":"addCalldataCheck","type":"function","inputs":[
		{"name":"target","type":"address"},
		{"name":"selector","type":"bytes4"},
		{"name":"startIndex","type":"uint16"},
		{"name":"endIndex","type":"uint16"},
		{"name":"expected","type":"bytes"}]},
	{"name":"addCalldataChecks","type":"function","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"selectors","type":"bytes4[]"},
		{"name":"startIndexes","type":"uint16[]"},
		{"name":"endIndexes","type":"uint16[]"},
		{"name":"expected","type":"bytes[]"}]},
	{"name":"removeCalldataCheck","type":"function","inputs":[
		{"name":"target","type":"address"},
		{"name":"selector","type":"bytes4"},
		{"name":"index","type":"uint256"}]},
	{"name":"removeAllCalldataChecks","type":"function","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"selectors","type":"bytes4[]"}]},
	{"name":"updateDelay","type":"function","inputs":[
		{"name":"minDelay","type":"uint256"},
		{"name":"maxDelay","type":"uint256"}]},
	{"name":"updateExpirationPeriod","type":"function","inputs":[
		{"name":"period","type":"uint256"}]},
	{"name":"setGuardian","type":"function","inputs":[
		{"name":"guardian","type":"address"}]},
	{"name":"grantHotSigner","type":"function","inputs":[
		{"name":"signer","type":"address"}]},
	{"name":"revokeHotSigner","type":"function","inputs":[
		{"name":"signer","type":"address"}]}
]`

var selfCallParsedABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(selfCallABI))
})

// SelfCallData packs a configuration method invocation for use as the
// payload of a scheduled proposal targeting the scheduler itself.
func SelfCallData(method string, args ...any) ([]byte, error) {
	parsed, err := selfCallParsedABI()
	if err != nil {
		return nil, err
	}

	return parsed.Pack(method, args...)
}

// dispatchSelfCallLocked decodes a self-targeted payload and applies the
// named configuration change with the scheduler's own identity as caller.
func (t *Timelock) dispatchSelfCallLocked(data []byte) error {
	parsed, err := selfCallParsedABI()
	if err != nil {
		return err
	}
	if len(data) < types.SelectorLength {
		return errors.New("self-call payload is too short")
	}

	method, err := parsed.MethodById(data[:types.SelectorLength])
	if err != nil {
		return fmt.Errorf("unknown self-call method: %w", err)
	}

	args, err := method.Inputs.Unpack(data[types.SelectorLength:])
	if err != nil {
		return fmt.Errorf("malformed self-call arguments: %w", err)
	}

	switch method.Name {
	case "addCalldataCheck":
		check := types.CalldataCheck{
			StartIndex: args[2].(uint16),
			EndIndex:   args[3].(uint16),
			Expected:   args[4].([]byte),
		}

		return t.addCalldataCheckLocked(args[0].(common.Address), types.Selector(args[1].([4]byte)), check)

	case "addCalldataChecks":
		targets := args[0].([]common.Address)
		rawSelectors := args[1].([][4]byte)
		selectors := make([]types.Selector, len(rawSelectors))
		for i, sel := range rawSelectors {
			selectors[i] = types.Selector(sel)
		}

		return t.addCalldataChecksLocked(targets, selectors, args[2].([]uint16), args[3].([]uint16), args[4].([][]byte))

	case "removeCalldataCheck":
		index := args[2].(*big.Int)
		if !index.IsInt64() {
			return fmt.Errorf("check index %s out of range", index)
		}

		return t.whitelist.Remove(args[0].(common.Address), types.Selector(args[1].([4]byte)), int(index.Int64()))

	case "removeAllCalldataChecks":
		targets := args[0].([]common.Address)
		rawSelectors := args[1].([][4]byte)
		if len(targets) != len(rawSelectors) {
			return ErrArityMismatch
		}
		for i, target := range targets {
			if err := t.whitelist.RemoveAll(target, types.Selector(rawSelectors[i])); err != nil {
				return err
			}
		}

		return nil

	case "updateDelay":
		minDelay, err := durationFromSeconds(args[0].(*big.Int))
		if err != nil {
			return err
		}
		maxDelay, err := durationFromSeconds(args[1].(*big.Int))
		if err != nil {
			return err
		}

		return t.updateDelayLocked(minDelay, maxDelay)

	case "updateExpirationPeriod":
		period, err := durationFromSeconds(args[0].(*big.Int))
		if err != nil {
			return err
		}

		return t.updateExpirationPeriodLocked(period)

	case "setGuardian":
		return t.setGuardianLocked(args[0].(common.Address))

	case "grantHotSigner":
		return t.grantHotSignerLocked(args[0].(common.Address))

	case "revokeHotSigner":
		return t.revokeHotSignerLocked(args[0].(common.Address))

	default:
		return fmt.Errorf("unhandled self-call method %q", method.Name)
	}
}

func durationFromSeconds(seconds *big.Int) (time.Duration, error) {
	if !seconds.IsUint64() {
		return 0, fmt.Errorf("duration %s out of range", seconds)
	}
	secs, err := safecast.Uint64ToInt64(seconds.Uint64())
	if err != nil {
		return 0, err
	}

	return time.Duration(secs) * time.Second, nil
}

// AddCalldataCheck registers a whitelist check. Only the scheduler's own
// execution identity may call it, which routes every registration through
// the proposal pipeline.
func (t *Timelock) AddCalldataCheck(caller, target common.Address, selector types.Selector, check types.CalldataCheck) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.addCalldataCheckLocked(target, selector, check)
}

// AddCalldataChecks registers checks for several pairs at once. All five
// arrays must have equal length.
func (t *Timelock) AddCalldataChecks(
	caller common.Address,
	targets []common.Address,
	selectors []types.Selector,
	startIndexes []uint16,
	endIndexes []uint16,
	expected [][]byte,
) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.addCalldataChecksLocked(targets, selectors, startIndexes, endIndexes, expected)
}

// RemoveCalldataCheck removes the check at the given position for a pair.
func (t *Timelock) RemoveCalldataCheck(caller, target common.Address, selector types.Selector, index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.whitelist.Remove(target, selector, index)
}

// RemoveAllCalldataChecks removes every check for each listed pair.
func (t *Timelock) RemoveAllCalldataChecks(caller common.Address, targets []common.Address, selectors []types.Selector) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}
	if len(targets) != len(selectors) {
		return ErrArityMismatch
	}

	for i, target := range targets {
		if err := t.whitelist.RemoveAll(target, selectors[i]); err != nil {
			return err
		}
	}

	return nil
}

// UpdateDelay replaces the scheduling delay bounds. Bound changes inherit
// the timelock delay like any other self-call.
func (t *Timelock) UpdateDelay(caller common.Address, minDelay, maxDelay types.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.updateDelayLocked(minDelay.Duration, maxDelay.Duration)
}

// UpdateExpirationPeriod replaces the expiration period for ready proposals.
func (t *Timelock) UpdateExpirationPeriod(caller common.Address, period types.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.updateExpirationPeriodLocked(period.Duration)
}

// SetGuardian installs a new pause guardian. Installing a guardian also
// closes an active pause window: a fresh guardian implies the emergency has
// been resolved through the proposal pipeline.
func (t *Timelock) SetGuardian(caller, guardian common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.setGuardianLocked(guardian)
}

// GrantHotSigner adds an address to the hot-signer role.
func (t *Timelock) GrantHotSigner(caller, signer common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.grantHotSignerLocked(signer)
}

// RevokeHotSigner removes an address from the hot-signer role.
func (t *Timelock) RevokeHotSigner(caller, signer common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.address {
		return &NotSelfError{Caller: caller}
	}

	return t.revokeHotSignerLocked(signer)
}

func (t *Timelock) addCalldataCheckLocked(target common.Address, selector types.Selector, check types.CalldataCheck) error {
	if err := t.whitelist.Add(target, selector, check); err != nil {
		return err
	}

	t.logger.Info("calldata check added",
		zap.Stringer("target", target),
		zap.String("selector", selector.Hex()),
		zap.Uint16("startIndex", check.StartIndex),
		zap.Uint16("endIndex", check.EndIndex),
	)

	return nil
}

func (t *Timelock) addCalldataChecksLocked(
	targets []common.Address,
	selectors []types.Selector,
	startIndexes []uint16,
	endIndexes []uint16,
	expected [][]byte,
) error {
	if len(targets) != len(selectors) ||
		len(targets) != len(startIndexes) ||
		len(targets) != len(endIndexes) ||
		len(targets) != len(expected) {
		return ErrArityMismatch
	}

	for i := range targets {
		check := types.CalldataCheck{
			StartIndex: startIndexes[i],
			EndIndex:   endIndexes[i],
			Expected:   expected[i],
		}
		if err := t.addCalldataCheckLocked(targets[i], selectors[i], check); err != nil {
			return err
		}
	}

	return nil
}

func (t *Timelock) updateDelayLocked(minDelay, maxDelay time.Duration) error {
	if minDelay <= 0 || minDelay > maxDelay {
		return fmt.Errorf("invalid delay bounds [%s, %s]", minDelay, maxDelay)
	}

	t.minDelay = minDelay
	t.maxDelay = maxDelay

	t.logger.Info("delay bounds updated",
		zap.Duration("minDelay", minDelay),
		zap.Duration("maxDelay", maxDelay),
	)

	return nil
}

func (t *Timelock) updateExpirationPeriodLocked(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("invalid expiration period %s", period)
	}

	t.expirationPeriod = period

	t.logger.Info("expiration period updated", zap.Duration("period", period))

	return nil
}

func (t *Timelock) setGuardianLocked(guardian common.Address) error {
	t.guardian = guardian
	t.pauseStart = time.Time{}

	t.logger.Info("guardian updated", zap.Stringer("guardian", guardian))

	return nil
}

func (t *Timelock) grantHotSignerLocked(signer common.Address) error {
	if signer == (common.Address{}) {
		return errors.New("hot signer cannot be the zero address")
	}

	t.hotSigners[signer] = struct{}{}

	t.logger.Info("hot signer granted", zap.Stringer("signer", signer))

	return nil
}

func (t *Timelock) revokeHotSignerLocked(signer common.Address) error {
	if _, ok := t.hotSigners[signer]; !ok {
		return fmt.Errorf("address %s is not a hot signer", signer)
	}

	delete(t.hotSigners, signer)

	t.logger.Info("hot signer revoked", zap.Stringer("signer", signer))

	return nil
}
