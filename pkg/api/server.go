package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hybriddex/hybriddex/params"
	"github.com/hybriddex/hybriddex/pkg/crypto"
	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/engine"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
	"github.com/hybriddex/hybriddex/pkg/storage"
)

// Server exposes the dex engine over REST plus a WebSocket feed.
type Server struct {
	engine *engine.Engine
	ledger *custody.Ledger
	store  *storage.Store
	router *mux.Router
	hub    *Hub
	http   *http.Server
	log    *zap.SugaredLogger

	requireSigs bool
	origins     []string
}

// NewServer wires the engine into HTTP handlers and hooks the trade
// feed into the WebSocket hub.
func NewServer(eng *engine.Engine, ledger *custody.Ledger, store *storage.Store, cfg params.HTTP, logger *zap.SugaredLogger) *Server {
	s := &Server{
		engine:      eng,
		ledger:      ledger,
		store:       store,
		router:      mux.NewRouter(),
		hub:         NewHub(logger),
		log:         logger,
		requireSigs: cfg.RequireSignatures,
		origins:     cfg.AllowedOrigins,
	}

	eng.SetTradeHook(s.onTrade)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Admin surface
	api.HandleFunc("/admin/init", s.handleInitialize).Methods("POST")
	api.HandleFunc("/admin/transfer", s.handleTransferAdmin).Methods("POST")
	api.HandleFunc("/admin/config", s.handleChangeConfig).Methods("POST")
	api.HandleFunc("/admin/assets", s.handleRegisterAsset).Methods("POST")
	api.HandleFunc("/admin/fund", s.handleFund).Methods("POST")

	// Market lifecycle
	api.HandleFunc("/markets", s.handleCreateMarket).Methods("POST")
	api.HandleFunc("/markets", s.handleGetMarkets).Methods("GET")
	api.HandleFunc("/markets/close", s.handleCloseMarket).Methods("POST")
	api.HandleFunc("/markets/{seed}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/markets/{seed}/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/markets/{seed}/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/markets/{seed}/open-orders/{address}", s.handleGetOpenOrders).Methods("GET")

	// User enrollment and order lifecycle
	api.HandleFunc("/open-orders", s.handleCreateOpenOrders).Methods("POST")
	api.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/take", s.handleTakeOrder).Methods("POST")

	// Read-only state
	api.HandleFunc("/global", s.handleGetGlobal).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleGetBalances).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and blocks serving HTTP until Shutdown.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.http = &http.Server{Addr: addr, Handler: c.Handler(s.router)}
	s.log.Infow("api_listening", "addr", addr, "require_signatures", s.requireSigs)

	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// Admin Handlers
// ==============================

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req InitRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin address", err.Error())
		return
	}
	if err := s.engine.Initialize(admin, req.MaxOrdersPerUser, req.MaxOrdersPerBook); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "initialized"})
}

func (s *Server) handleTransferAdmin(w http.ResponseWriter, r *http.Request) {
	var req TransferAdminRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin address", err.Error())
		return
	}
	newAdmin, err := parseAddress(req.NewAdmin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid new admin address", err.Error())
		return
	}
	if err := s.authorize(admin, req.Signature, "transfer-admin", "new="+req.NewAdmin); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}
	if err := s.engine.TransferAdmin(admin, newAdmin); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleChangeConfig(w http.ResponseWriter, r *http.Request) {
	var req ChangeConfigRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin address", err.Error())
		return
	}
	if err := s.authorize(admin, req.Signature, "change-config",
		optArg("user", req.MaxOrdersPerUser), optArg("book", req.MaxOrdersPerBook)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}
	if err := s.engine.ChangeConfig(admin, req.MaxOrdersPerUser, req.MaxOrdersPerBook); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin address", err.Error())
		return
	}
	mint, err := parseAddress(req.Mint)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid mint address", err.Error())
		return
	}
	if err := s.requireAdmin(admin); err != nil {
		respondEngineError(w, err)
		return
	}
	if err := s.authorize(admin, req.Signature, "register-asset", "mint="+req.Mint, "symbol="+req.Symbol); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	asset := custody.Asset{Mint: mint, Symbol: req.Symbol, Decimals: req.Decimals}
	s.ledger.RegisterAsset(asset)
	if err := s.store.SaveAsset(asset); err != nil {
		respondError(w, http.StatusInternalServerError, "persist failed", err.Error())
		return
	}
	s.log.Infow("asset_registered", "mint", mint.Hex(), "symbol", req.Symbol, "decimals", req.Decimals)
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req FundRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	admin, err := parseAddress(req.Admin)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid admin address", err.Error())
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid asset address", err.Error())
		return
	}
	holder, err := parseAddress(req.Holder)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid holder address", err.Error())
		return
	}
	if err := s.requireAdmin(admin); err != nil {
		respondEngineError(w, err)
		return
	}
	if err := s.authorize(admin, req.Signature, "fund",
		"asset="+req.Asset, "holder="+req.Holder, "amount="+strconv.FormatUint(req.Amount, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	acct := custody.Account{Asset: asset, Holder: holder}
	if err := s.ledger.Mint(acct, req.Amount); err != nil {
		respondEngineError(w, err)
		return
	}
	if err := s.store.Commit(&engine.Changeset{
		Balances: []custody.Balance{{Account: acct, Amount: s.ledger.Balance(acct)}},
	}); err != nil {
		respondError(w, http.StatusInternalServerError, "persist failed", err.Error())
		return
	}
	s.log.Infow("account_funded", "asset", asset.Hex(), "holder", holder.Hex(), "amount", req.Amount)
	respondJSON(w, StatusResponse{Status: "ok"})
}

// ==============================
// Market Handlers
// ==============================

func (s *Server) handleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid authority address", err.Error())
		return
	}
	base, err := parseAddress(req.BaseAsset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid base asset", err.Error())
		return
	}
	quote, err := parseAddress(req.QuoteAsset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid quote asset", err.Error())
		return
	}
	if err := s.authorize(authority, req.Signature, "create-market",
		"name="+req.Name, "base="+req.BaseAsset, "quote="+req.QuoteAsset); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	m, err := s.engine.CreateMarket(authority, req.Name, base, quote)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, marketInfo(*m))
}

func (s *Server) handleCloseMarket(w http.ResponseWriter, r *http.Request) {
	var req CloseMarketRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	authority, err := parseAddress(req.Authority)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid authority address", err.Error())
		return
	}
	if err := s.authorize(authority, req.Signature, "close-market",
		"market="+strconv.FormatUint(req.Market, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}
	if err := s.engine.CloseMarket(authority, req.Market); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "closed"})
}

func (s *Server) handleGetMarkets(w http.ResponseWriter, r *http.Request) {
	markets := s.engine.Markets()
	response := make([]MarketInfo, len(markets))
	for i, m := range markets {
		response[i] = marketInfo(m)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	seed, err := pathSeed(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market seed", err.Error())
		return
	}
	m, err := s.engine.Market(seed)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, marketInfo(m))
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	seed, err := pathSeed(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market seed", err.Error())
		return
	}
	snapshot, err := s.orderbookSnapshot(seed)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, snapshot)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	seed, err := pathSeed(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market seed", err.Error())
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	trades, err := s.store.LoadRecentTrades(seed, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load failed", err.Error())
		return
	}
	response := make([]TradeInfo, len(trades))
	for i, t := range trades {
		response[i] = tradeInfo(t)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOpenOrders(w http.ResponseWriter, r *http.Request) {
	seed, err := pathSeed(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid market seed", err.Error())
		return
	}
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}
	oo, err := s.engine.OpenOrders(seed, addr)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, OpenOrdersInfo{
		Owner:             oo.Owner.Hex(),
		Market:            oo.MarketSeed,
		OpenedOrdersCount: oo.OpenedOrdersCount,
		BaseDepositTotal:  oo.BaseDepositTotal,
		QuoteDepositTotal: oo.QuoteDepositTotal,
		BaseTotalVolume:   oo.BaseTotalVolume,
		QuoteTotalVolume:  oo.QuoteTotalVolume,
	})
}

// ==============================
// Order Handlers
// ==============================

func (s *Server) handleCreateOpenOrders(w http.ResponseWriter, r *http.Request) {
	var req CreateOpenOrdersRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}
	if err := s.authorize(addr, req.Signature, "create-open-orders",
		"market="+strconv.FormatUint(req.Market, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}
	if _, err := s.engine.CreateOpenOrders(addr, req.Market); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if err := s.authorize(addr, req.Signature, "place",
		"market="+strconv.FormatUint(req.Market, 10), "side="+req.Side,
		"price="+strconv.FormatUint(req.Price, 10), "quantity="+strconv.FormatUint(req.Quantity, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	order, err := s.engine.Place(addr, req.Market, side, req.Price, req.Quantity)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	s.broadcastOrderbook(req.Market)
	respondJSON(w, PlaceOrderResponse{Status: "placed", Market: req.Market, OrderID: order.ID})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if err := s.authorize(addr, req.Signature, "cancel",
		"market="+strconv.FormatUint(req.Market, 10), "side="+req.Side,
		"order="+strconv.FormatUint(req.OrderID, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	if _, err := s.engine.Cancel(addr, req.Market, side, req.OrderID); err != nil {
		respondEngineError(w, err)
		return
	}
	s.broadcastOrderbook(req.Market)
	respondJSON(w, StatusResponse{Status: "cancelled"})
}

func (s *Server) handleTakeOrder(w http.ResponseWriter, r *http.Request) {
	var req TakeOrderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if err := s.authorize(addr, req.Signature, "take",
		"market="+strconv.FormatUint(req.Market, 10), "side="+req.Side,
		"order="+strconv.FormatUint(req.OrderID, 10), "amount="+strconv.FormatUint(req.Amount, 10)); err != nil {
		respondError(w, http.StatusUnauthorized, "signature rejected", err.Error())
		return
	}

	var trade state.Trade
	if req.Amount == 0 {
		trade, err = s.engine.Take(addr, req.Market, side, req.OrderID)
	} else {
		trade, err = s.engine.TakePartial(addr, req.Market, side, req.OrderID, req.Amount)
	}
	if err != nil {
		respondEngineError(w, err)
		return
	}
	s.broadcastOrderbook(req.Market)
	respondJSON(w, tradeInfo(trade))
}

// ==============================
// Read-only Handlers
// ==============================

func (s *Server) handleGetGlobal(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Global()
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, GlobalInfo{
		Admin:            g.Admin.Hex(),
		MaxOrdersPerUser: g.MaxOrdersPerUser,
		MaxOrdersPerBook: g.MaxOrdersPerBook,
		TotalMarketCount: g.TotalMarketCount,
		MarketSeqNum:     g.MarketSeqNum,
	})
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid address", err.Error())
		return
	}

	symbols := make(map[common.Address]string)
	for _, a := range s.ledger.Assets() {
		symbols[a.Mint] = a.Symbol
	}

	response := []BalanceInfo{}
	for _, row := range s.ledger.Snapshot() {
		if row.Account.Holder != addr {
			continue
		}
		response = append(response, BalanceInfo{
			Asset:  row.Account.Asset.Hex(),
			Symbol: symbols[row.Account.Asset],
			Amount: row.Amount,
		})
	}
	respondJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// WebSocket Broadcasts
// ==============================

func (s *Server) onTrade(t state.Trade) {
	channel := "trades:" + strconv.FormatUint(t.MarketSeed, 10)
	s.hub.BroadcastToChannel(channel, TradeUpdate{Type: "trade", Trade: tradeInfo(t)})
}

func (s *Server) broadcastOrderbook(seed uint64) {
	snapshot, err := s.orderbookSnapshot(seed)
	if err != nil {
		return
	}
	channel := "orderbook:" + strconv.FormatUint(seed, 10)
	s.hub.BroadcastToChannel(channel, OrderbookUpdate{Type: "orderbook", Snapshot: snapshot})
}

func (s *Server) orderbookSnapshot(seed uint64) (OrderbookSnapshot, error) {
	bids, err := s.engine.BookSnapshot(seed, book.Bid)
	if err != nil {
		return OrderbookSnapshot{}, err
	}
	asks, err := s.engine.BookSnapshot(seed, book.Ask)
	if err != nil {
		return OrderbookSnapshot{}, err
	}
	return OrderbookSnapshot{
		Market:    seed,
		Bids:      orderInfos(bids),
		Asks:      orderInfos(asks),
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// ==============================
// Helpers
// ==============================

// authorize recovers the signer of the canonical request payload and
// checks it matches the claimed address. Unsigned requests pass when
// signature enforcement is off.
func (s *Server) authorize(claimed common.Address, sigHex, action string, args ...string) error {
	if sigHex == "" {
		if s.requireSigs {
			return errors.New("signature required")
		}
		return nil
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return fmt.Errorf("malformed signature hex: %w", err)
	}
	return crypto.VerifyRequest(claimed, sig, action, args...)
}

func (s *Server) requireAdmin(caller common.Address) error {
	g, err := s.engine.Global()
	if err != nil {
		return err
	}
	if g.Admin != caller {
		return engine.ErrNotAdmin
	}
	return nil
}

func marketInfo(m state.Market) MarketInfo {
	return MarketInfo{
		Seed:             m.Seed,
		Name:             m.Label(),
		Authority:        m.Authority.Hex(),
		BaseAsset:        m.BaseAsset.Hex(),
		QuoteAsset:       m.QuoteAsset.Hex(),
		BaseDecimal:      m.BaseDecimal,
		QuoteDecimal:     m.QuoteDecimal,
		CreatedAt:        m.CreatedAt,
		BaseTotalVolume:  m.BaseTotalVolume,
		QuoteTotalVolume: m.QuoteTotalVolume,
		OrderSeqNum:      m.OrderSeqNum,
	}
}

func tradeInfo(t state.Trade) TradeInfo {
	return TradeInfo{
		Market:        t.MarketSeed,
		OrderID:       t.OrderID,
		RestingSide:   t.RestingSide.String(),
		Maker:         t.Maker.Hex(),
		Taker:         t.Taker.Hex(),
		Price:         t.Price,
		Quantity:      t.Quantity,
		CounterAmount: t.CounterAmount,
		Partial:       t.Partial,
		ExecutedAt:    t.ExecutedAt,
	}
}

func orderInfos(orders []book.Order) []OrderInfo {
	out := make([]OrderInfo, len(orders))
	for i, o := range orders {
		out[i] = OrderInfo{
			ID:        o.ID,
			Owner:     o.Owner.Hex(),
			Price:     o.Price,
			Quantity:  o.Quantity,
			CreatedAt: o.CreatedAt,
		}
	}
	return out
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("not a hex address: %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseSide(s string) (book.Side, error) {
	switch strings.ToLower(s) {
	case "bid", "buy":
		return book.Bid, nil
	case "ask", "sell":
		return book.Ask, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

func pathSeed(r *http.Request) (uint64, error) {
	return strconv.ParseUint(mux.Vars(r)["seed"], 10, 64)
}

func optArg(name string, v *uint64) string {
	if v == nil {
		return name + "="
	}
	return name + "=" + strconv.FormatUint(*v, 10)
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errStr, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errStr, Message: message})
}

// respondEngineError maps engine sentinels onto HTTP status codes.
func respondEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrNotAdmin),
		errors.Is(err, engine.ErrNotAuthority),
		errors.Is(err, engine.ErrOwnerMismatch):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrMarketNotFound),
		errors.Is(err, engine.ErrOpenOrdersMissing),
		errors.Is(err, book.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyInitialized),
		errors.Is(err, engine.ErrOpenOrdersExists),
		errors.Is(err, engine.ErrNonEmptyMarket),
		errors.Is(err, engine.ErrCapacityExceeded),
		errors.Is(err, book.ErrBookFull):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.Is(err, engine.ErrArchiveFailed):
		// The transition applied; only persistence failed.
		status = http.StatusInternalServerError
	case errors.Is(err, engine.ErrInvalidOrder),
		errors.Is(err, engine.ErrInsufficientDeposit),
		errors.Is(err, engine.ErrInsufficientVault),
		errors.Is(err, book.ErrPartialExceedsOrder),
		errors.Is(err, state.ErrNameTooLong),
		errors.Is(err, custody.ErrUnknownAsset),
		errors.Is(err, custody.ErrInsufficientFunds):
		status = http.StatusBadRequest
	}
	respondError(w, status, err.Error(), "")
}
