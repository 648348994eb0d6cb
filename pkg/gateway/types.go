package gateway

// Request/response types for the local gateway. The gateway is the
// boundary a front end talks to; it holds no state of its own.

type LoginRequest struct {
	Seed string `json:"seed"`
}

type LoginResponse struct {
	Identity string `json:"identity"`
}

type SelectAssetRequest struct {
	Symbol string `json:"symbol"`
}

// OrderRequest places a new order. Action is one of "buy" (bid) or
// "sell" (ask).
type OrderRequest struct {
	Asset    string `json:"asset"`
	Action   string `json:"action"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

// CancelRequest removes a resting order. Price and quantity must be
// the book entry's own values; the contract matches on them exactly.
type CancelRequest struct {
	Asset    string `json:"asset"`
	Side     string `json:"side"` // "Ask" or "Bid"
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
}

type OrderResponse struct {
	Asset      string `json:"asset"`
	Action     string `json:"action"`
	Price      int64  `json:"price"`
	Quantity   int64  `json:"quantity"`
	TargetTick uint32 `json:"targetTick"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSSubscribeRequest is the client->server WebSocket control message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// WSMessage wraps every server->client WebSocket push.
type WSMessage struct {
	Channel string      `json:"channel"`
	Data    interface{} `json:"data"`
}
