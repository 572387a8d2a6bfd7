package safecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Int64ToUint64(t *testing.T) {
	t.Parallel()

	got, err := Int64ToUint64(42)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)

	_, err = Int64ToUint64(-1)
	assert.EqualError(t, err, "value -1 is negative")
}

func Test_Uint64ToInt64(t *testing.T) {
	t.Parallel()

	got, err := Uint64ToInt64(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = Uint64ToInt64(math.MaxInt64 + 1)
	require.Error(t, err)
}

func Test_IntToUint16(t *testing.T) {
	t.Parallel()

	got, err := IntToUint16(42)
	require.NoError(t, err)
	assert.Equal(t, uint16(42), got)

	_, err = IntToUint16(-1)
	require.Error(t, err)

	_, err = IntToUint16(math.MaxUint16 + 1)
	require.Error(t, err)
}
