package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"qxtrade/pkg/engine"
	"qxtrade/pkg/journal"
	"qxtrade/pkg/ledger"
	"qxtrade/pkg/qx"
	"qxtrade/pkg/wallet"
)

// JournalReader is the read side of the submission journal.
type JournalReader interface {
	Recent(limit int) ([]journal.Record, error)
}

// Server is the local HTTP/WebSocket gateway a front end talks to. It
// translates requests into engine calls and pushes snapshot updates to
// WebSocket subscribers on every engine state change.
type Server struct {
	eng      *engine.Engine
	registry *qx.AssetRegistry
	deriver  wallet.KeyDeriver
	journal  JournalReader
	poller   *engine.Poller
	router   *mux.Router
	hub      *Hub
}

func NewServer(eng *engine.Engine, registry *qx.AssetRegistry, deriver wallet.KeyDeriver, jr JournalReader, poller *engine.Poller) *Server {
	s := &Server{
		eng:      eng,
		registry: registry,
		deriver:  deriver,
		journal:  jr,
		poller:   poller,
		router:   mux.NewRouter(),
		hub:      NewHub(),
	}
	s.setupRoutes()

	eng.OnUpdate(func(snap engine.Snapshot) {
		s.hub.Publish("snapshot", snap)
	})
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/snapshot", s.handleSnapshot).Methods("GET")
	api.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	api.HandleFunc("/assets/select", s.handleSelectAsset).Methods("POST")

	api.HandleFunc("/session/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/session/logout", s.handleLogout).Methods("POST")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	api.HandleFunc("/journal/recent", s.handleJournalRecent).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the listener fails. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	log.Printf("[gateway] listening on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.eng.Snapshot())
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.registry.Symbols())
}

func (s *Server) handleSelectAsset(w http.ResponseWriter, r *http.Request) {
	var req SelectAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.eng.SelectAsset(r.Context(), req.Symbol); err != nil {
		respondError(w, statusFor(err), "select_failed", err.Error())
		return
	}
	s.poller.Kick()
	respondJSON(w, s.eng.Snapshot())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deriver == nil {
		respondError(w, http.StatusNotImplemented, "no_key_deriver", "key derivation module not configured")
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	identity, err := s.eng.Login(r.Context(), s.deriver, req.Seed)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "login_failed", err.Error())
		return
	}
	s.poller.Kick()
	respondJSON(w, LoginResponse{Identity: identity})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.eng.Logout()
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var action qx.OrderAction
	switch req.Action {
	case "buy":
		action = qx.AddBid
	case "sell":
		action = qx.AddAsk
	default:
		respondError(w, http.StatusBadRequest, "bad_request", "action must be buy or sell")
		return
	}

	pending, err := s.eng.Submit(r.Context(), engine.OrderRequest{
		Asset:    req.Asset,
		Action:   action,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		respondError(w, statusFor(err), "order_failed", err.Error())
		return
	}
	respondJSON(w, OrderResponse{
		Asset:      pending.Asset,
		Action:     pending.Action.String(),
		Price:      pending.Price,
		Quantity:   pending.Quantity,
		TargetTick: pending.TargetTick,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var side ledger.Side
	switch req.Side {
	case "Ask":
		side = ledger.Ask
	case "Bid":
		side = ledger.Bid
	default:
		respondError(w, http.StatusBadRequest, "bad_request", "side must be Ask or Bid")
		return
	}

	pending, err := s.eng.Cancel(r.Context(), req.Asset, side, ledger.OrderBookEntry{
		Price:          req.Price,
		NumberOfShares: req.Quantity,
	})
	if err != nil {
		respondError(w, statusFor(err), "cancel_failed", err.Error())
		return
	}
	respondJSON(w, OrderResponse{
		Asset:      pending.Asset,
		Action:     pending.Action.String(),
		Price:      pending.Price,
		Quantity:   pending.Quantity,
		TargetTick: pending.TargetTick,
	})
}

func (s *Server) handleJournalRecent(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		respondJSON(w, []journal.Record{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	records, err := s.journal.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal_failed", err.Error())
		return
	}
	if records == nil {
		records = []journal.Record{}
	}
	respondJSON(w, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, qx.ErrUnknownAsset),
		errors.Is(err, qx.ErrInvalidOrderParams),
		errors.Is(err, qx.ErrSymbolTooLong),
		errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInsufficientHoldings):
		return http.StatusBadRequest
	case errors.Is(err, wallet.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrNoSigner):
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message})
}
