package ledger

import "strconv"

// Side selects which half of an asset's order book to query.
type Side int

const (
	Ask Side = iota
	Bid
)

func (s Side) String() string {
	if s == Ask {
		return "Ask"
	}
	return "Bid"
}

// Balance mirrors the ledger's balance record. Amounts arrive as
// decimal strings on the wire.
type Balance struct {
	ID                         string `json:"id"`
	Balance                    string `json:"balance"`
	ValidForTick               uint32 `json:"validForTick"`
	LatestIncomingTransferTick uint32 `json:"latestIncomingTransferTick"`
	LatestOutgoingTransferTick uint32 `json:"latestOutgoingTransferTick"`
	IncomingAmount             string `json:"incomingAmount"`
	OutgoingAmount             string `json:"outgoingAmount"`
	NumberOfIncomingTransfers  int64  `json:"numberOfIncomingTransfers"`
	NumberOfOutgoingTransfers  int64  `json:"numberOfOutgoingTransfers"`
}

// Qus parses the balance amount. A malformed amount reads as zero with
// ok=false; callers doing advisory checks can treat that as unknown.
func (b Balance) Qus() (int64, bool) {
	if b.Balance == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(b.Balance, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// OrderBookEntry is one resting order in the QX book for an asset.
type OrderBookEntry struct {
	EntityID       string `json:"entityId"`
	Price          int64  `json:"price"`
	NumberOfShares int64  `json:"numberOfShares"`
}

// Holdings maps asset symbol to owned unit count. It is rebuilt
// wholesale from each owned-assets response, never patched locally.
type Holdings map[string]int64

// Units returns the owned unit count for a symbol, zero if absent.
func (h Holdings) Units(symbol string) int64 { return h[symbol] }

// BroadcastAck is the ledger's weak acknowledgment of a broadcast. A
// 2xx response with Code == 0 means the node took the transaction; it
// says nothing about inclusion in a tick or acceptance by the contract.
type BroadcastAck struct {
	Code             int    `json:"code"`
	PeersBroadcasted int    `json:"peersBroadcasted"`
	TransactionID    string `json:"transactionId"`
}

type statusResponse struct {
	LastProcessedTick struct {
		TickNumber uint32 `json:"tickNumber"`
	} `json:"lastProcessedTick"`
}

type balanceResponse struct {
	Balance Balance `json:"balance"`
}

type ownedAssetsResponse struct {
	OwnedAssets []struct {
		Data struct {
			IssuedAsset struct {
				Name string `json:"name"`
			} `json:"issuedAsset"`
			NumberOfUnits int64 `json:"numberOfUnits"`
		} `json:"data"`
	} `json:"ownedAssets"`
}

type ordersResponse struct {
	Orders []OrderBookEntry `json:"orders"`
}
