package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qxtrade/params"
	"qxtrade/pkg/journal"
	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
	"qxtrade/pkg/util"
	"qxtrade/pkg/wallet"
)

var (
	// ErrNoSigner means the engine was built without a signer; read
	// paths work but nothing can be submitted.
	ErrNoSigner = errors.New("engine: no signer configured")

	// ErrInsufficientFunds is the advisory pre-check against the
	// last-known balance. The contract holds the authoritative check;
	// staleness between polls can make this one wrong in either
	// direction.
	ErrInsufficientFunds = errors.New("engine: insufficient funds for bid")

	// ErrInsufficientHoldings is the advisory pre-check for asks.
	ErrInsufficientHoldings = errors.New("engine: insufficient holdings for ask")
)

// SubmissionError wraps whatever aborted an order attempt: signing,
// transport, or node-side rejection. The intent returns to Idle and is
// never retried.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("engine: order not submitted: %v", e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// Ledger is the subset of the ledger client the engine drives.
type Ledger interface {
	LatestTick(ctx context.Context) (uint32, error)
	Balance(ctx context.Context, identity string) (ledger.Balance, error)
	OwnedAssets(ctx context.Context, identity string) (ledger.Holdings, error)
	OrderBook(ctx context.Context, symbol, issuer string, side ledger.Side, offset int) ([]ledger.OrderBookEntry, error)
	Broadcast(ctx context.Context, tx qx.SignedTransaction) (ledger.BroadcastAck, error)
}

// Journal records broadcast attempts. Optional.
type Journal interface {
	Append(rec journal.Record) error
}

// OrderRequest is one order intent from the caller.
type OrderRequest struct {
	Asset    string
	Action   qx.OrderAction
	Price    int64
	Quantity int64
}

// Engine drives the order lifecycle against a tick-based ledger:
// tick-targeted submission, cancellation, and the polling state machine
// that reconciles the optimistic view with ledger truth.
//
// All shared state lives behind one mutex. A generation counter guards
// against late responses: login, logout and asset switches bump it, and
// any in-flight fetch started under an older generation discards its
// result instead of overwriting newer state.
type Engine struct {
	cfg      params.Trading
	registry *qx.AssetRegistry
	client   Ledger
	signer   wallet.Signer
	journal  Journal
	clock    util.Clock
	log      *zap.SugaredLogger

	mu       sync.RWMutex
	session  *wallet.Session
	gen      uint64
	snap     Snapshot
	onUpdate func(Snapshot)
}

// Option customizes engine construction.
type Option func(*Engine)

// WithSigner attaches the external transaction signer.
func WithSigner(s wallet.Signer) Option { return func(e *Engine) { e.signer = s } }

// WithJournal attaches a submission journal.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithClock substitutes the wall clock, for tests.
func WithClock(c util.Clock) Option { return func(e *Engine) { e.clock = c } }

func New(cfg params.Trading, registry *qx.AssetRegistry, client Ledger, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		client:   client,
		clock:    util.RealClock{},
		log:      log,
		snap:     Snapshot{Asset: registry.DefaultSymbol()},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnUpdate registers a callback invoked with a snapshot copy after
// every state change. Used by the gateway to push updates out.
func (e *Engine) OnUpdate(fn func(Snapshot)) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// Login opens a session for the seed and performs an initial full
// refresh so the caller sees state immediately rather than after the
// first poll interval.
func (e *Engine) Login(ctx context.Context, kd wallet.KeyDeriver, seed string) (string, error) {
	sess, err := wallet.Login(kd, seed)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.session != nil {
		e.session.Close()
	}
	e.session = sess
	e.gen++
	e.snap = Snapshot{Asset: e.snap.Asset}
	e.mu.Unlock()

	e.log.Infow("session opened", "identity", sess.Identity())
	e.Poll(ctx)
	e.refreshBooks(ctx)
	return sess.Identity(), nil
}

// Watch opens a watch-only session: polling works, submission fails
// with ErrNoSession since there is no seed behind the identity.
func (e *Engine) Watch(ctx context.Context, identity string) {
	sess := wallet.Watch(identity)

	e.mu.Lock()
	if e.session != nil {
		e.session.Close()
	}
	e.session = sess
	e.gen++
	e.snap = Snapshot{Asset: e.snap.Asset}
	e.mu.Unlock()

	e.log.Infow("watch session opened", "identity", identity)
	e.Poll(ctx)
	e.refreshBooks(ctx)
}

// Logout closes the session and wipes all account-derived state.
func (e *Engine) Logout() {
	e.mu.Lock()
	if e.session != nil {
		e.session.Close()
		e.session = nil
	}
	e.gen++
	e.snap = Snapshot{Asset: e.snap.Asset}
	e.mu.Unlock()
	e.log.Infow("session closed")
	e.notify()
}

// Identity returns the active account identity, empty when logged out.
func (e *Engine) Identity() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session.Identity()
}

// SelectAsset switches the watched asset. The generation bump makes any
// in-flight fetch for the previous asset stale, so a slow response
// cannot overwrite the new asset's book.
func (e *Engine) SelectAsset(ctx context.Context, symbol string) error {
	if _, err := e.registry.ResolveIssuer(symbol); err != nil {
		return err
	}

	e.mu.Lock()
	if e.snap.Asset == symbol {
		e.mu.Unlock()
		return nil
	}
	e.snap.Asset = symbol
	e.snap.Asks = nil
	e.snap.Bids = nil
	e.gen++
	e.mu.Unlock()

	e.log.Infow("asset selected", "symbol", symbol)
	e.refreshBooks(ctx)
	return nil
}

// Snapshot returns a copy of the engine's last-known state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.clone()
}

// ConfirmationPending reports whether an order is still waiting for its
// target tick.
func (e *Engine) ConfirmationPending() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.Pending != nil
}

// Submit builds, signs and broadcasts one order intent. On success the
// order becomes pending until the ledger reaches targetTick =
// latestTick + TickOffset. Any failure returns the intent to Idle with
// the cause wrapped in SubmissionError; nothing is retried.
func (e *Engine) Submit(ctx context.Context, req OrderRequest) (PendingOrder, error) {
	issuer, err := e.registry.ResolveIssuer(req.Asset)
	if err != nil {
		return PendingOrder{}, err
	}

	e.mu.Lock()
	sess := e.session
	if sess == nil {
		e.mu.Unlock()
		return PendingOrder{}, wallet.ErrNoSession
	}
	if e.signer == nil {
		e.mu.Unlock()
		return PendingOrder{}, ErrNoSigner
	}
	if err := e.precheckLocked(req); err != nil {
		e.mu.Unlock()
		return PendingOrder{}, err
	}
	gen := e.gen
	e.snap.State = StateSubmitting
	e.mu.Unlock()
	e.notify()

	pending, err := e.submit(ctx, sess, issuer, req)

	e.mu.Lock()
	if err != nil {
		// Restore the pre-submit state: an earlier order may still be
		// awaiting its target tick.
		if e.snap.Pending != nil {
			e.snap.State = StateAwaitingConfirmation
		} else {
			e.snap.State = StateIdle
		}
		e.mu.Unlock()
		e.notify()
		return PendingOrder{}, err
	}
	if e.gen == gen {
		e.snap.State = StateAwaitingConfirmation
		e.snap.Pending = &pending
	} else {
		// The view changed mid-submission (logout or asset switch).
		// The transaction is out regardless; only the tracking state
		// belongs to the old view.
		e.snap.State = StateIdle
	}
	e.mu.Unlock()
	e.notify()

	e.log.Infow("order submitted",
		"asset", req.Asset, "action", req.Action.String(),
		"price", req.Price, "quantity", req.Quantity,
		"target_tick", pending.TargetTick)
	return pending, nil
}

// Cancel removes a resting order. The contract identifies the order by
// exact owner+side+price+quantity, so the entry's own price and
// quantity must be passed through untouched, never the form inputs.
func (e *Engine) Cancel(ctx context.Context, asset string, side ledger.Side, entry ledger.OrderBookEntry) (PendingOrder, error) {
	action := qx.RemoveBid
	if side == ledger.Ask {
		action = qx.RemoveAsk
	}
	return e.Submit(ctx, OrderRequest{
		Asset:    asset,
		Action:   action,
		Price:    entry.Price,
		Quantity: entry.NumberOfShares,
	})
}

// precheckLocked runs the advisory balance/holdings checks against the
// last poll's snapshot. Skipped entirely before the first successful
// poll, since there is nothing to check against yet.
func (e *Engine) precheckLocked(req OrderRequest) error {
	switch req.Action {
	case qx.AddBid:
		if bal, ok := e.snap.Balance.Qus(); ok {
			cost := req.Price * req.Quantity
			if req.Quantity != 0 && cost/req.Quantity != req.Price {
				return qx.ErrAmountOverflow
			}
			if cost > bal {
				return fmt.Errorf("%w: need %d qu, have %d", ErrInsufficientFunds, cost, bal)
			}
		}
	case qx.AddAsk:
		if e.snap.Holdings != nil {
			if owned := e.snap.Holdings.Units(req.Asset); owned < req.Quantity {
				return fmt.Errorf("%w: need %d units of %s, have %d", ErrInsufficientHoldings, req.Quantity, req.Asset, owned)
			}
		}
	}
	return nil
}

func (e *Engine) submit(ctx context.Context, sess *wallet.Session, issuer string, req OrderRequest) (PendingOrder, error) {
	latest, err := e.client.LatestTick(ctx)
	if err != nil {
		return PendingOrder{}, &SubmissionError{Err: err}
	}
	targetTick := latest + e.cfg.TickOffset

	payload, err := qx.BuildOrderPayload(issuer, req.Asset, req.Price, req.Quantity)
	if err != nil {
		return PendingOrder{}, &SubmissionError{Err: err}
	}
	unsigned, err := qx.BuildOrderTransaction(sess.Identity(), targetTick, payload, req.Action)
	if err != nil {
		return PendingOrder{}, &SubmissionError{Err: err}
	}
	signed, err := sess.Sign(e.signer, unsigned)
	if err != nil {
		return PendingOrder{}, &SubmissionError{Err: err}
	}

	ack, err := e.client.Broadcast(ctx, signed)
	e.record(sess.Identity(), req, targetTick, ack, err)
	if err != nil {
		return PendingOrder{}, &SubmissionError{Err: err}
	}

	return PendingOrder{
		Asset:       req.Asset,
		Action:      req.Action,
		Price:       req.Price,
		Quantity:    req.Quantity,
		TargetTick:  targetTick,
		SubmittedAt: e.clock.Now(),
	}, nil
}

// record journals the broadcast attempt. Journal failures are logged,
// not propagated; they must not turn a live submission into an error.
func (e *Engine) record(identity string, req OrderRequest, targetTick uint32, ack ledger.BroadcastAck, broadcastErr error) {
	if e.journal == nil {
		return
	}
	err := e.journal.Append(journal.Record{
		Identity:    identity,
		Asset:       req.Asset,
		Action:      req.Action.String(),
		Price:       req.Price,
		Quantity:    req.Quantity,
		TargetTick:  targetTick,
		SubmittedAt: e.clock.Now(),
		AckCode:     ack.Code,
		Accepted:    broadcastErr == nil,
	})
	if err != nil {
		e.log.Warnw("journal append failed", "err", err)
	}
}

// Poll is one reconciliation cycle: balance, holdings and latest tick
// fetched concurrently, then the pending order checked against the
// tick. When the target tick is reached the order is presumed settled
// and both book sides are refetched so observers see the outcome. Read
// errors are logged and the cycle carries on; the next interval gets a
// fresh chance.
func (e *Engine) Poll(ctx context.Context) {
	e.mu.RLock()
	sess := e.session
	gen := e.gen
	e.mu.RUnlock()
	if sess == nil {
		return
	}
	identity := sess.Identity()

	var (
		tick     uint32
		bal      ledger.Balance
		holdings ledger.Holdings

		tickErr, balErr, ownedErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tick, tickErr = e.client.LatestTick(gctx)
		return nil
	})
	g.Go(func() error {
		bal, balErr = e.client.Balance(gctx, identity)
		return nil
	})
	g.Go(func() error {
		holdings, ownedErr = e.client.OwnedAssets(gctx, identity)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{tickErr, balErr, ownedErr} {
		if err != nil {
			e.log.Warnw("poll read failed", "err", err)
		}
	}

	var settled *PendingOrder
	e.mu.Lock()
	if e.gen != gen {
		// Account or asset changed while requests were in flight;
		// these results belong to the old view.
		e.mu.Unlock()
		return
	}
	if tickErr == nil {
		e.snap.Tick = tick
	}
	if balErr == nil {
		e.snap.Balance = bal
	}
	if ownedErr == nil {
		e.snap.Holdings = holdings
	}
	if p := e.snap.Pending; p != nil && tickErr == nil && tick >= p.TargetTick {
		settled = p
		e.snap.Pending = nil
		e.snap.State = StateIdle
	}
	e.snap.UpdatedAt = e.clock.Now()
	e.mu.Unlock()
	e.notify()

	if settled != nil {
		e.log.Infow("order presumed settled",
			"asset", settled.Asset, "action", settled.Action.String(),
			"target_tick", settled.TargetTick, "tick", tick)
		e.refreshBooks(ctx)
	}
}

// refreshBooks fetches both sides of the selected asset's book
// concurrently and applies them unless the view changed underneath.
func (e *Engine) refreshBooks(ctx context.Context) {
	e.mu.RLock()
	gen := e.gen
	symbol := e.snap.Asset
	e.mu.RUnlock()

	issuer, err := e.registry.ResolveIssuer(symbol)
	if err != nil {
		e.log.Warnw("book refresh skipped", "symbol", symbol, "err", err)
		return
	}

	var (
		asks, bids     []ledger.OrderBookEntry
		askErr, bidErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		asks, askErr = e.client.OrderBook(gctx, symbol, issuer, ledger.Ask, 0)
		return nil
	})
	g.Go(func() error {
		bids, bidErr = e.client.OrderBook(gctx, symbol, issuer, ledger.Bid, 0)
		return nil
	})
	_ = g.Wait()

	if askErr != nil {
		e.log.Warnw("ask book fetch failed", "symbol", symbol, "err", askErr)
	}
	if bidErr != nil {
		e.log.Warnw("bid book fetch failed", "symbol", symbol, "err", bidErr)
	}

	e.mu.Lock()
	if e.gen != gen || e.snap.Asset != symbol {
		e.mu.Unlock()
		return
	}
	if askErr == nil {
		e.snap.Asks = asks
	}
	if bidErr == nil {
		e.snap.Bids = bids
	}
	e.snap.UpdatedAt = e.clock.Now()
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) notify() {
	e.mu.RLock()
	fn := e.onUpdate
	snap := e.snap.clone()
	e.mu.RUnlock()
	if fn != nil {
		fn(snap)
	}
}
