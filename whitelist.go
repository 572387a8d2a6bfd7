package aegis

import (
	"bytes"
	"errors"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/custodian-labs/aegis/types"
)

// checkKey identifies the owner of an ordered check list: registrations and
// matches are always scoped to a (target, selector) pair.
type checkKey struct {
	target   common.Address
	selector types.Selector
}

// CalldataList stores allowlisted call patterns and matches raw call
// payloads against them. It is a pure byte matcher: checks compare fixed
// slices of the payload against expected bytes, without ABI decoding, so a
// registered pattern admits exactly the payloads an auditor can read off the
// registration.
//
// The list is exclusively owned by the Timelock that created it; the
// Timelock's lock serializes all access.
type CalldataList struct {
	// self is the owning scheduler's execution identity. It may never be
	// registered as a target, otherwise a whitelisted call could reach the
	// scheduler's own configuration surface without a delay.
	self common.Address

	checks map[checkKey][]types.CalldataCheck
}

// NewCalldataList creates an empty list owned by the scheduler at self.
func NewCalldataList(self common.Address) *CalldataList {
	return &CalldataList{
		self:   self,
		checks: make(map[checkKey][]types.CalldataCheck),
	}
}

// Add registers a check for the (target, selector) pair. The wildcard form
// (empty range at the selector boundary) marks the pair allow-all and is
// mutually exclusive with range checks.
func (l *CalldataList) Add(target common.Address, selector types.Selector, check types.CalldataCheck) error {
	if target == l.self {
		return ErrSelfTarget
	}

	key := checkKey{target: target, selector: selector}
	existing := l.checks[key]

	if check.IsWildcard() {
		if len(existing) > 0 {
			return ErrWildcardConflict
		}

		l.checks[key] = []types.CalldataCheck{check}

		return nil
	}

	if check.StartIndex < types.SelectorLength {
		return &InvalidIndexRangeError{StartIndex: check.StartIndex, EndIndex: check.EndIndex}
	}
	if check.EndIndex <= check.StartIndex {
		return &InvalidIndexRangeError{StartIndex: check.StartIndex, EndIndex: check.EndIndex}
	}
	if int(check.EndIndex-check.StartIndex) != len(check.Expected) {
		return &InvalidIndexRangeError{StartIndex: check.StartIndex, EndIndex: check.EndIndex}
	}

	for _, c := range existing {
		if c.IsWildcard() {
			return ErrWildcardConflict
		}
		if c.StartIndex == check.StartIndex && c.EndIndex == check.EndIndex && bytes.Equal(c.Expected, check.Expected) {
			return &DuplicateCheckError{Target: target, Selector: selector}
		}
	}

	l.checks[key] = append(existing, check)

	return nil
}

// Remove deletes the check at the given position in the pair's ordered list.
// Checks are never mutated in place: callers remove and re-add wholesale.
func (l *CalldataList) Remove(target common.Address, selector types.Selector, index int) error {
	key := checkKey{target: target, selector: selector}
	existing, ok := l.checks[key]
	if !ok {
		return &CheckNotFoundError{Target: target, Selector: selector}
	}
	if index < 0 || index >= len(existing) {
		return &CheckNotFoundError{Target: target, Selector: selector}
	}

	remaining := slices.Delete(slices.Clone(existing), index, index+1)
	if len(remaining) == 0 {
		delete(l.checks, key)
	} else {
		l.checks[key] = remaining
	}

	return nil
}

// RemoveAll deletes every check for the (target, selector) pair.
func (l *CalldataList) RemoveAll(target common.Address, selector types.Selector) error {
	key := checkKey{target: target, selector: selector}
	if _, ok := l.checks[key]; !ok {
		return &CheckNotFoundError{Target: target, Selector: selector}
	}

	delete(l.checks, key)

	return nil
}

// Checks returns a copy of the ordered check list for the pair.
func (l *CalldataList) Checks(target common.Address, selector types.Selector) []types.CalldataCheck {
	return slices.Clone(l.checks[checkKey{target: target, selector: selector}])
}

// errNoRangeMatch reports a payload that matched no registered range.
var errNoRangeMatch = errors.New("payload does not match any registered check")

// errShortPayload reports a payload too short to carry a selector.
var errShortPayload = errors.New("payload is too short to carry a selector")

// Match reports whether the call is admitted: its (target, selector) pair
// must be registered, and the pair must either be a wildcard or have at
// least one check whose byte range equals the corresponding payload slice.
// Multiple checks per pair are alternatives.
func (l *CalldataList) Match(call types.Call) error {
	selector, ok := call.Selector()
	if !ok {
		return errShortPayload
	}

	registered, ok := l.checks[checkKey{target: call.To, selector: selector}]
	if !ok || len(registered) == 0 {
		return &CheckNotFoundError{Target: call.To, Selector: selector}
	}

	for _, check := range registered {
		if check.IsWildcard() {
			return nil
		}
		if int(check.EndIndex) > len(call.Data) {
			continue
		}
		if bytes.Equal(call.Data[check.StartIndex:check.EndIndex], check.Expected) {
			return nil
		}
	}

	return errNoRangeMatch
}

// clone returns a deep copy used for rollback when a batch containing
// self-calls fails partway through.
func (l *CalldataList) clone() *CalldataList {
	cloned := make(map[checkKey][]types.CalldataCheck, len(l.checks))
	for key, list := range l.checks {
		cloned[key] = slices.Clone(list)
	}

	return &CalldataList{self: l.self, checks: cloned}
}

// restore replaces the registry contents with those of a clone.
func (l *CalldataList) restore(snapshot *CalldataList) {
	l.checks = maps.Clone(snapshot.checks)
}
