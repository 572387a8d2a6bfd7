// Package safecast implements functions to safely cast types to avoid panics
package safecast

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Int64ToUint64 safely converts an int64 to uint64, rejecting negatives.
// Clock readings pass through here before being stored as timestamps.
func Int64ToUint64(value int64) (uint64, error) {
	if value < 0 {
		return 0, fmt.Errorf("value %d is negative", value)
	}

	return cast.ToUint64E(value)
}

// Uint64ToInt64 safely converts a uint64 to int64 and checks for overflow.
func Uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}

	return cast.ToInt64E(value)
}

// IntToUint16 safely converts an int to uint16 and checks for overflow.
func IntToUint16(value int) (uint16, error) {
	if value < 0 || value > math.MaxUint16 {
		return 0, fmt.Errorf("value %d exceeds uint16 range", value)
	}

	return cast.ToUint16E(value)
}
