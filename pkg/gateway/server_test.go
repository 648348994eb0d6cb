package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"qxtrade/params"
	"qxtrade/pkg/engine"
	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
	"qxtrade/pkg/util"
)

type stubLedger struct {
	tick     uint32
	balance  ledger.Balance
	holdings ledger.Holdings
}

func (s *stubLedger) LatestTick(ctx context.Context) (uint32, error) { return s.tick, nil }
func (s *stubLedger) Balance(ctx context.Context, id string) (ledger.Balance, error) {
	return s.balance, nil
}
func (s *stubLedger) OwnedAssets(ctx context.Context, id string) (ledger.Holdings, error) {
	return s.holdings, nil
}
func (s *stubLedger) OrderBook(ctx context.Context, symbol, issuer string, side ledger.Side, offset int) ([]ledger.OrderBookEntry, error) {
	return nil, nil
}
func (s *stubLedger) Broadcast(ctx context.Context, tx qx.SignedTransaction) (ledger.BroadcastAck, error) {
	return ledger.BroadcastAck{}, nil
}

type stubSigner struct{}

func (stubSigner) SignOrder(seed string, tx qx.UnsignedTransaction) (qx.SignedTransaction, error) {
	return qx.SignedTransaction{Raw: []byte("signed")}, nil
}

type stubDeriver struct{}

func (stubDeriver) DeriveIdentity(seed string) (string, error) { return "GATEWAYID", nil }

func newTestGateway(t *testing.T) *Server {
	t.Helper()
	registry := qx.DefaultRegistry()
	led := &stubLedger{tick: 100, balance: ledger.Balance{Balance: "1000"}, holdings: ledger.Holdings{}}
	cfg := params.Trading{TickOffset: 5, PollInterval: 5 * time.Second}
	log := zap.NewNop().Sugar()
	eng := engine.New(cfg, registry, led, log, engine.WithSigner(stubSigner{}))
	poller := engine.NewPoller(eng, cfg.PollInterval, util.RealClock{}, log)
	return NewServer(eng, registry, stubDeriver{}, nil, poller)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestGateway(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListAssets(t *testing.T) {
	s := newTestGateway(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/assets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var symbols []string
	if err := json.NewDecoder(rec.Body).Decode(&symbols); err != nil {
		t.Fatal(err)
	}
	if len(symbols) == 0 || symbols[0] != "QX" {
		t.Errorf("symbols = %v, want QX first", symbols)
	}
}

func TestOrderRequiresSession(t *testing.T) {
	s := newTestGateway(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/orders", OrderRequest{
		Asset: "QX", Action: "buy", Price: 10, Quantity: 5,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestOrderRejectsUnknownAction(t *testing.T) {
	s := newTestGateway(t)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/orders", OrderRequest{
		Asset: "QX", Action: "yolo", Price: 10, Quantity: 5,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginThenOrder(t *testing.T) {
	s := newTestGateway(t)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/session/login", LoginRequest{Seed: "testseed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var login LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&login); err != nil {
		t.Fatal(err)
	}
	if login.Identity != "GATEWAYID" {
		t.Errorf("identity = %s", login.Identity)
	}

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/orders", OrderRequest{
		Asset: "QX", Action: "buy", Price: 10, Quantity: 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("order status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TargetTick != 105 {
		t.Errorf("target tick = %d, want 105", resp.TargetTick)
	}
	if resp.Action != "AddBid" {
		t.Errorf("action = %s, want AddBid", resp.Action)
	}
}

func TestCancelMapsSides(t *testing.T) {
	s := newTestGateway(t)
	doJSON(t, s.Handler(), http.MethodPost, "/api/v1/session/login", LoginRequest{Seed: "testseed"})

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/orders/cancel", CancelRequest{
		Asset: "QX", Side: "Bid", Price: 12, Quantity: 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Action != "RemoveBid" {
		t.Errorf("action = %s, want RemoveBid", resp.Action)
	}
	if resp.Price != 12 || resp.Quantity != 3 {
		t.Errorf("price/quantity = %d/%d, want 12/3", resp.Price, resp.Quantity)
	}

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/orders/cancel", CancelRequest{
		Asset: "QX", Side: "Sideways", Price: 1, Quantity: 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad side status = %d, want 400", rec.Code)
	}
}

func dialWS(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	go s.hub.Run()

	srv := httptest.NewServer(s.Handler())
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		srv.Close()
		t.Fatal(err)
	}

	// Registration goes through the hub loop; wait for it before driving
	// any state change.
	deadline := time.Now().Add(2 * time.Second)
	for {
		s.hub.mu.RLock()
		n := len(s.hub.clients)
		s.hub.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ws client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestWebSocketPushesSnapshotOnStateChange(t *testing.T) {
	s := newTestGateway(t)
	conn, cleanup := dialWS(t, s)
	defer cleanup()

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/session/login", LoginRequest{Seed: "testseed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}

	// Login kicks off a poll; one of the pushed snapshots must carry the
	// polled tick.
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("no snapshot with polled tick arrived: %v", err)
		}
		if msg.Channel != "snapshot" {
			t.Fatalf("channel = %s, want snapshot", msg.Channel)
		}
		raw, err := json.Marshal(msg.Data)
		if err != nil {
			t.Fatal(err)
		}
		var snap engine.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			t.Fatal(err)
		}
		if snap.Tick == 100 {
			return
		}
	}
}

func TestWebSocketUnsubscribeStopsSnapshots(t *testing.T) {
	s := newTestGateway(t)
	conn, cleanup := dialWS(t, s)
	defer cleanup()

	if err := conn.WriteJSON(WSSubscribeRequest{Op: "unsubscribe", Channels: []string{"snapshot"}}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.hub.mu.RLock()
		subscribed := false
		for c := range s.hub.clients {
			subscribed = c.isSubscribed("snapshot")
		}
		s.hub.mu.RUnlock()
		if !subscribed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("unsubscribe never processed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	doJSON(t, s.Handler(), http.MethodPost, "/api/v1/session/login", LoginRequest{Seed: "testseed"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received a push after unsubscribing")
	}
}

func TestJournalRecentWithoutJournal(t *testing.T) {
	s := newTestGateway(t)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/journal/recent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() == "" {
		t.Error("empty body")
	}
}
