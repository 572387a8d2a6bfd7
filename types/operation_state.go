package types

// OperationState describes where a scheduled proposal sits in its lifecycle.
//
// Pending becomes Ready implicitly once the ready timestamp passes, and Ready
// becomes Expired implicitly once the expiration period passes; neither
// transition is recorded, both are derived at query time.
type OperationState uint8

const (
	OperationUnset OperationState = iota
	OperationPending
	OperationReady
	OperationDone
	OperationExpired
)

func (s OperationState) String() string {
	switch s {
	case OperationUnset:
		return "unset"
	case OperationPending:
		return "pending"
	case OperationReady:
		return "ready"
	case OperationDone:
		return "done"
	case OperationExpired:
		return "expired"
	default:
		return "unknown"
	}
}
