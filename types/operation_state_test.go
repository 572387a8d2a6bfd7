package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_OperationState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give OperationState
		want string
	}{
		{name: "unset", give: OperationUnset, want: "unset"},
		{name: "pending", give: OperationPending, want: "pending"},
		{name: "ready", give: OperationReady, want: "ready"},
		{name: "done", give: OperationDone, want: "done"},
		{name: "expired", give: OperationExpired, want: "expired"},
		{name: "unknown value", give: OperationState(99), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.give.String())
		})
	}
}
