package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// NetworkError covers transport failures, timeouts and undecodable
// responses. Callers decide retry policy; the client never retries.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Client issues read-only queries against the ledger RPC and the QX
// query API, and broadcasts signed transactions. All calls take a
// context and carry an explicit timeout; a hung node fails the call
// instead of stalling a poll cycle forever.
type Client struct {
	baseURL string
	apiURL  string
	httpc   *http.Client
}

func NewClient(baseURL, apiURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiURL:  apiURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// LatestTick returns the last tick the network has processed.
func (c *Client) LatestTick(ctx context.Context) (uint32, error) {
	var out statusResponse
	if err := c.getJSON(ctx, "latest tick", c.baseURL+"/v1/status", &out); err != nil {
		return 0, err
	}
	return out.LastProcessedTick.TickNumber, nil
}

// Balance returns the account's balance record, refreshed wholesale.
func (c *Client) Balance(ctx context.Context, identity string) (Balance, error) {
	var out balanceResponse
	if err := c.getJSON(ctx, "balance", c.baseURL+"/v1/balances/"+url.PathEscape(identity), &out); err != nil {
		return Balance{}, err
	}
	return out.Balance, nil
}

// OwnedAssets returns the account's asset holdings as a symbol->units
// map. An asset the account does not own simply has no key.
func (c *Client) OwnedAssets(ctx context.Context, identity string) (Holdings, error) {
	var out ownedAssetsResponse
	if err := c.getJSON(ctx, "owned assets", c.baseURL+"/v1/assets/"+url.PathEscape(identity)+"/owned", &out); err != nil {
		return nil, err
	}
	holdings := make(Holdings, len(out.OwnedAssets))
	for _, owned := range out.OwnedAssets {
		holdings[owned.Data.IssuedAsset.Name] = owned.Data.NumberOfUnits
	}
	return holdings, nil
}

// OrderBook returns one side of an asset's book, best price first. The
// query API serves asks in the opposite orientation from bids, so the
// ask side is reversed before returning. Only offset 0 is ever used by
// the engine; the parameter exists for pagination.
func (c *Client) OrderBook(ctx context.Context, symbol, issuer string, side Side, offset int) ([]OrderBookEntry, error) {
	q := url.Values{}
	q.Set("assetName", symbol)
	q.Set("issuerId", issuer)
	q.Set("offset", fmt.Sprintf("%d", offset))
	endpoint := fmt.Sprintf("%s/v1/qx/getAsset%sOrders?%s", c.apiURL, side, q.Encode())

	var out ordersResponse
	if err := c.getJSON(ctx, "order book", endpoint, &out); err != nil {
		return nil, err
	}

	orders := out.Orders
	if side == Ask {
		for i, j := 0, len(orders)-1; i < j; i, j = i+1, j-1 {
			orders[i], orders[j] = orders[j], orders[i]
		}
	}
	return orders, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
