package aegis

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PackReplaceOwners_RoundTrip(t *testing.T) {
	t.Parallel()

	owners := []common.Address{
		common.HexToAddress("0x01"),
		common.HexToAddress("0x02"),
	}
	threshold := big.NewInt(2)

	data, err := PackReplaceOwners(owners, threshold)
	require.NoError(t, err)

	gotOwners, gotThreshold, err := UnpackReplaceOwners(data)
	require.NoError(t, err)

	assert.Equal(t, owners, gotOwners)
	assert.Equal(t, threshold, gotThreshold)
}

func Test_UnpackReplaceOwners_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give []byte
	}{
		{
			name: "too short",
			give: []byte{0x01, 0x02},
		},
		{
			name: "wrong selector",
			give: []byte{0xde, 0xad, 0xbe, 0xef, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := UnpackReplaceOwners(tt.give)
			assert.EqualError(t, err, "data is not a replaceOwners call")
		})
	}
}
