package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"qxtrade/pkg/qx"
)

// ErrBroadcastRejected means the node refused the transaction before
// gossiping it (ack code > 0). This is the only negative signal the
// protocol ever gives; a transaction dropped later is just absent from
// subsequent order-book polls.
var ErrBroadcastRejected = errors.New("ledger: broadcast rejected by node")

type broadcastRequest struct {
	EncodedTransaction string `json:"encodedTransaction"`
}

// Broadcast submits a signed transaction to the ledger's ingress
// endpoint. A nil error is a weak acknowledgment only: the node took
// the bytes, nothing more.
func (c *Client) Broadcast(ctx context.Context, tx qx.SignedTransaction) (BroadcastAck, error) {
	body, err := json.Marshal(broadcastRequest{
		EncodedTransaction: base64.StdEncoding.EncodeToString(tx.Raw),
	})
	if err != nil {
		return BroadcastAck{}, &NetworkError{Op: "broadcast", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/broadcast-transaction", bytes.NewReader(body))
	if err != nil {
		return BroadcastAck{}, &NetworkError{Op: "broadcast", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return BroadcastAck{}, &NetworkError{Op: "broadcast", Err: err}
	}
	defer resp.Body.Close()

	var ack BroadcastAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return BroadcastAck{}, &NetworkError{Op: "broadcast", Err: fmt.Errorf("decode ack: %w", err)}
	}

	if ack.Code > 0 {
		return ack, fmt.Errorf("%w: code %d", ErrBroadcastRejected, ack.Code)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ack, &NetworkError{Op: "broadcast", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return ack, nil
}
