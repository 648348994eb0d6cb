package qx

// ContractAddress is the fixed 60-character identity of the QX exchange
// contract. Every order transaction is addressed to it.
const ContractAddress = "BAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAB"

// IdentityLength is the length of a ledger account identity in characters.
const IdentityLength = 60

// MaxSymbolBytes is the widest asset symbol the contract can represent.
// Symbols are packed into a single little-endian int64.
const MaxSymbolBytes = 8

// OrderAction is the QX contract input type (opcode) of an order operation.
type OrderAction uint16

const (
	IssueAsset    OrderAction = 1
	TransferAsset OrderAction = 2
	AddAsk        OrderAction = 5
	AddBid        OrderAction = 6
	RemoveAsk     OrderAction = 7
	RemoveBid     OrderAction = 8
)

func (a OrderAction) String() string {
	switch a {
	case IssueAsset:
		return "IssueAsset"
	case TransferAsset:
		return "TransferAsset"
	case AddAsk:
		return "AddAsk"
	case AddBid:
		return "AddBid"
	case RemoveAsk:
		return "RemoveAsk"
	case RemoveBid:
		return "RemoveBid"
	default:
		return "Unknown"
	}
}

// IsRemoval reports whether the action cancels a resting order.
func (a OrderAction) IsRemoval() bool {
	return a == RemoveAsk || a == RemoveBid
}

// IsOrder reports whether the action is one of the four order-book
// operations this engine submits.
func (a OrderAction) IsOrder() bool {
	switch a {
	case AddAsk, AddBid, RemoveAsk, RemoveBid:
		return true
	}
	return false
}
