package engine

import (
	"time"

	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
)

// State is the lifecycle of the current order intent.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateAwaitingConfirmation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSubmitting:
		return "Submitting"
	case StateAwaitingConfirmation:
		return "AwaitingConfirmation"
	default:
		return "Unknown"
	}
}

// PendingOrder is an order or cancellation that went out but whose
// target tick has not been reached yet. When the ledger's tick passes
// TargetTick the order is presumed settled and the record is dropped;
// the protocol never says whether it was accepted, rejected by the
// contract, or executed against a counter-order.
type PendingOrder struct {
	Asset       string         `json:"asset"`
	Action      qx.OrderAction `json:"action"`
	Price       int64          `json:"price"`
	Quantity    int64          `json:"quantity"`
	TargetTick  uint32         `json:"targetTick"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// Snapshot is the engine's last-known view of ledger state for the
// selected asset. Every field is rebuilt wholesale from poll responses;
// nothing is patched incrementally.
type Snapshot struct {
	Asset     string                  `json:"asset"`
	Tick      uint32                  `json:"tick"`
	Balance   ledger.Balance          `json:"balance"`
	Holdings  ledger.Holdings         `json:"holdings"`
	Asks      []ledger.OrderBookEntry `json:"asks"`
	Bids      []ledger.OrderBookEntry `json:"bids"`
	Pending   *PendingOrder           `json:"pending,omitempty"`
	State     State                   `json:"-"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// clone copies the snapshot deeply enough that readers never share
// slices or maps with the engine.
func (s Snapshot) clone() Snapshot {
	out := s
	if s.Holdings != nil {
		out.Holdings = make(ledger.Holdings, len(s.Holdings))
		for k, v := range s.Holdings {
			out.Holdings[k] = v
		}
	}
	out.Asks = append([]ledger.OrderBookEntry(nil), s.Asks...)
	out.Bids = append([]ledger.OrderBookEntry(nil), s.Bids...)
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}
