package abi

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Encode(t *testing.T) {
	t.Parallel()

	encoded, err := Encode(
		`[{"type":"address"},{"type":"uint256"}]`,
		common.HexToAddress("0x01"), big.NewInt(1),
	)
	require.NoError(t, err)

	// Static arguments encode as left-padded 32-byte words with no selector.
	assert.Equal(t, hexutil.MustDecode(
		"0x0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000001",
	), encoded)
}

func Test_Encode_InvalidLayout(t *testing.T) {
	t.Parallel()

	_, err := Encode(`not json`, big.NewInt(1))
	require.Error(t, err)
}

func Test_Encode_ArgumentMismatch(t *testing.T) {
	t.Parallel()

	_, err := Encode(`[{"type":"uint256"}]`, big.NewInt(1), big.NewInt(2))
	require.Error(t, err)
}

func Test_Decode_RoundTrip(t *testing.T) {
	t.Parallel()

	layout := `[{"type":"address"},{"type":"uint256"},{"type":"bytes"}]`

	encoded, err := Encode(layout,
		common.HexToAddress("0x02"), big.NewInt(42), []byte{0x01, 0x02},
	)
	require.NoError(t, err)

	decoded, err := Decode(layout, encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.Equal(t, common.HexToAddress("0x02"), decoded[0])
	assert.Equal(t, big.NewInt(42), decoded[1])
	assert.Equal(t, []byte{0x01, 0x02}, decoded[2])
}
