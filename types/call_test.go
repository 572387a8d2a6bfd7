package types

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SelectorFromData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		give   []byte
		want   Selector
		wantOK bool
	}{
		{
			name:   "success",
			give:   []byte{0xaa, 0xbb, 0xcc, 0xdd, 0x01, 0x02},
			want:   Selector{0xaa, 0xbb, 0xcc, 0xdd},
			wantOK: true,
		},
		{
			name:   "exactly a selector",
			give:   []byte{0xaa, 0xbb, 0xcc, 0xdd},
			want:   Selector{0xaa, 0xbb, 0xcc, 0xdd},
			wantOK: true,
		},
		{
			name:   "too short",
			give:   []byte{0xaa, 0xbb, 0xcc},
			wantOK: false,
		},
		{
			name:   "empty",
			give:   []byte{},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sel, ok := SelectorFromData(tt.give)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, sel)
			}
		})
	}
}

func Test_Selector_Hex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0xaabbccdd", Selector{0xaa, 0xbb, 0xcc, 0xdd}.Hex())
}

func Test_Call_ValueOrZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, big.NewInt(0), Call{}.ValueOrZero())
	assert.Equal(t, big.NewInt(7), Call{Value: big.NewInt(7)}.ValueOrZero())
}

func Test_NewCallBatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    *CallBatch
		wantErr string
	}{
		{
			name: "success",
			give: `{
				"calls": [{"to": "0x0000000000000000000000000000000000000001", "value": 5, "data": "0xaabbccdd"}],
				"salt": "0x0000000000000000000000000000000000000000000000000000000000000002",
				"delay": "1h",
				"description": "rotate signer"
			}`,
			want: &CallBatch{
				Calls: []Call{
					{
						To:    common.HexToAddress("0x0000000000000000000000000000000000000001"),
						Value: big.NewInt(5),
						Data:  hexutil.MustDecode("0xaabbccdd"),
					},
				},
				Salt:        common.HexToHash("0x0000000000000000000000000000000000000000000000000000000000000002"),
				Delay:       MustParseDuration("1h"),
				Description: "rotate signer",
			},
		},
		{
			name:    "invalid JSON",
			give:    `{"calls": [`,
			wantErr: "unexpected EOF",
		},
		{
			name:    "empty calls",
			give:    `{"calls": [], "delay": "1h"}`,
			wantErr: "Key: 'CallBatch.Calls' Error:Field validation for 'Calls' failed on the 'min' tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			batch, err := NewCallBatch(strings.NewReader(tt.give))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, batch)
			}
		})
	}
}

func Test_WriteCallBatch(t *testing.T) {
	t.Parallel()

	batch := &CallBatch{
		Calls: []Call{
			{To: common.HexToAddress("0x01"), Data: hexutil.MustDecode("0xaabbccdd")},
		},
		Delay: MustParseDuration("2h"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCallBatch(&buf, batch))

	decoded, err := NewCallBatch(&buf)
	require.NoError(t, err)
	assert.Equal(t, batch, decoded)
}
