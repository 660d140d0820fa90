package api

// Wire types for REST endpoints and WebSocket messages.

// ==============================
// REST Request Types
// ==============================

// InitRequest bootstraps the exchange. Only valid once.
type InitRequest struct {
	Admin            string `json:"admin"`
	MaxOrdersPerUser uint64 `json:"maxOrdersPerUser"`
	MaxOrdersPerBook uint64 `json:"maxOrdersPerBook"`
}

// TransferAdminRequest hands global admin to a new address.
type TransferAdminRequest struct {
	Admin     string `json:"admin"`
	NewAdmin  string `json:"newAdmin"`
	Signature string `json:"signature,omitempty"`
}

// ChangeConfigRequest updates global capacity limits. Nil fields keep
// the current value.
type ChangeConfigRequest struct {
	Admin            string  `json:"admin"`
	MaxOrdersPerUser *uint64 `json:"maxOrdersPerUser,omitempty"`
	MaxOrdersPerBook *uint64 `json:"maxOrdersPerBook,omitempty"`
	Signature        string  `json:"signature,omitempty"`
}

// RegisterAssetRequest registers a transferable asset with the ledger.
type RegisterAssetRequest struct {
	Admin     string `json:"admin"`
	Mint      string `json:"mint"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Signature string `json:"signature,omitempty"`
}

// FundRequest credits an account on the ledger. Admin only.
type FundRequest struct {
	Admin     string `json:"admin"`
	Asset     string `json:"asset"`
	Holder    string `json:"holder"`
	Amount    uint64 `json:"amount"`
	Signature string `json:"signature,omitempty"`
}

// CreateMarketRequest opens a new trading pair.
type CreateMarketRequest struct {
	Authority  string `json:"authority"`
	Name       string `json:"name"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
	Signature  string `json:"signature,omitempty"`
}

// CloseMarketRequest tears down an empty market.
type CloseMarketRequest struct {
	Authority string `json:"authority"`
	Market    uint64 `json:"market"`
	Signature string `json:"signature,omitempty"`
}

// CreateOpenOrdersRequest enrolls a user in a market.
type CreateOpenOrdersRequest struct {
	Address   string `json:"address"`
	Market    uint64 `json:"market"`
	Signature string `json:"signature,omitempty"`
}

// PlaceOrderRequest rests a fully collateralized limit order.
type PlaceOrderRequest struct {
	Address   string `json:"address"`
	Market    uint64 `json:"market"`
	Side      string `json:"side"` // "bid" or "ask"
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	Signature string `json:"signature,omitempty"`
}

// CancelOrderRequest removes a resting order and refunds its escrow.
type CancelOrderRequest struct {
	Address   string `json:"address"`
	Market    uint64 `json:"market"`
	Side      string `json:"side"`
	OrderID   uint64 `json:"orderId"`
	Signature string `json:"signature,omitempty"`
}

// TakeOrderRequest fills a resting order. Amount 0 means a full fill;
// any other value is a partial fill of that many units.
type TakeOrderRequest struct {
	Address   string `json:"address"`
	Market    uint64 `json:"market"`
	Side      string `json:"side"` // side of the RESTING order
	OrderID   uint64 `json:"orderId"`
	Amount    uint64 `json:"amount,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// ==============================
// REST Response Types
// ==============================

// GlobalInfo mirrors the exchange-wide configuration record.
type GlobalInfo struct {
	Admin            string `json:"admin"`
	MaxOrdersPerUser uint64 `json:"maxOrdersPerUser"`
	MaxOrdersPerBook uint64 `json:"maxOrdersPerBook"`
	TotalMarketCount uint64 `json:"totalMarketCount"`
	MarketSeqNum     uint64 `json:"marketSeqNum"`
}

// MarketInfo is a market's static configuration plus lifetime volumes.
type MarketInfo struct {
	Seed             uint64 `json:"seed"`
	Name             string `json:"name"`
	Authority        string `json:"authority"`
	BaseAsset        string `json:"baseAsset"`
	QuoteAsset       string `json:"quoteAsset"`
	BaseDecimal      uint8  `json:"baseDecimal"`
	QuoteDecimal     uint8  `json:"quoteDecimal"`
	CreatedAt        int64  `json:"createdAt"`
	BaseTotalVolume  uint64 `json:"baseTotalVolume"`
	QuoteTotalVolume uint64 `json:"quoteTotalVolume"`
	OrderSeqNum      uint64 `json:"orderSeqNum"`
}

// OrderInfo is one resting order as seen from outside.
type OrderInfo struct {
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	CreatedAt int64  `json:"createdAt"`
}

// OrderbookSnapshot is both sides of a market, best first.
type OrderbookSnapshot struct {
	Market    uint64      `json:"market"`
	Bids      []OrderInfo `json:"bids"`      // sorted high to low
	Asks      []OrderInfo `json:"asks"`      // sorted low to high
	Timestamp int64       `json:"timestamp"` // unix milliseconds
}

// OpenOrdersInfo mirrors a user's per-market account.
type OpenOrdersInfo struct {
	Owner             string `json:"owner"`
	Market            uint64 `json:"market"`
	OpenedOrdersCount uint64 `json:"openedOrdersCount"`
	BaseDepositTotal  uint64 `json:"baseDepositTotal"`
	QuoteDepositTotal uint64 `json:"quoteDepositTotal"`
	BaseTotalVolume   uint64 `json:"baseTotalVolume"`
	QuoteTotalVolume  uint64 `json:"quoteTotalVolume"`
}

// BalanceInfo is one ledger row for a holder.
type BalanceInfo struct {
	Asset  string `json:"asset"`
	Symbol string `json:"symbol,omitempty"`
	Amount uint64 `json:"amount"`
}

// TradeInfo is one executed fill.
type TradeInfo struct {
	Market        uint64 `json:"market"`
	OrderID       uint64 `json:"orderId"`
	RestingSide   string `json:"restingSide"`
	Maker         string `json:"maker"`
	Taker         string `json:"taker"`
	Price         uint64 `json:"price"`
	Quantity      uint64 `json:"quantity"`
	CounterAmount uint64 `json:"counterAmount"`
	Partial       bool   `json:"partial"`
	ExecutedAt    int64  `json:"executedAt"`
}

// PlaceOrderResponse returns the assigned order identity.
type PlaceOrderResponse struct {
	Status  string `json:"status"`
	Market  uint64 `json:"market"`
	OrderID uint64 `json:"orderId"`
}

// StatusResponse is the generic success envelope.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to manage channel subscriptions,
// e.g. {"op":"subscribe","channels":["trades:0","orderbook:0"]}.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// TradeUpdate is broadcast on the trades:{market} channel after each fill.
type TradeUpdate struct {
	Type  string    `json:"type"` // "trade"
	Trade TradeInfo `json:"trade"`
}

// OrderbookUpdate is broadcast on the orderbook:{market} channel after
// any operation that changed a book.
type OrderbookUpdate struct {
	Type     string            `json:"type"` // "orderbook"
	Snapshot OrderbookSnapshot `json:"snapshot"`
}
