// Package engine implements the order lifecycle and admin state
// transitions over the dex ledger records. Each exported operation is a
// single synchronous transition: every precondition is checked before
// the first mutation, and the per-market mutex is held for the whole
// call, so a transition either applies completely or not at all.
package engine

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
	"github.com/hybriddex/hybriddex/pkg/util"
)

// Rail is the custody collaborator the engine moves funds over.
// *custody.Ledger satisfies it. Execute must apply all of a
// transition's legs or none, under the rail's own lock; the engine
// relies on that to move funds before it mutates any record.
type Rail interface {
	Balance(acct custody.Account) uint64
	Execute(moves ...custody.Movement) error
	AssetDecimals(mint common.Address) (uint8, error)
}

// Changeset lists the records one transition touched. An Archiver must
// commit all of it atomically or none.
type Changeset struct {
	Global        *state.GlobalState
	Market        *state.Market
	RemovedMarket *uint64
	Books         []*book.Book
	OpenOrders    []*state.OpenOrders
	Balances      []custody.Balance
	Trade         *state.Trade
}

// Archiver persists changesets. Optional; the engine runs fully
// in-memory without one.
type Archiver interface {
	Commit(cs *Changeset) error
}

// Engine executes dex state transitions. The zero value is not usable;
// construct with New and call Initialize (or Restore) before use.
type Engine struct {
	markets *state.Registry
	rail    Rail
	clock   util.Clock
	log     *zap.SugaredLogger

	gmu    sync.RWMutex
	global *state.GlobalState

	archive Archiver
	onTrade func(state.Trade)
}

// New creates an engine over the given custody rail.
func New(rail Rail, clock util.Clock, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		markets: state.NewRegistry(),
		rail:    rail,
		clock:   clock,
		log:     logger,
	}
}

// SetArchiver attaches persistence. Call before serving traffic.
func (e *Engine) SetArchiver(a Archiver) { e.archive = a }

// SetTradeHook attaches a callback invoked after every successful fill,
// with the market lock released.
func (e *Engine) SetTradeHook(fn func(state.Trade)) { e.onTrade = fn }

// Initialize creates the global configuration record. One-shot; every
// other transition fails until it has run.
func (e *Engine) Initialize(admin common.Address, maxOrdersPerUser, maxOrdersPerBook uint64) error {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global != nil {
		return ErrAlreadyInitialized
	}
	e.global = &state.GlobalState{
		Admin:            admin,
		MaxOrdersPerUser: maxOrdersPerUser,
		MaxOrdersPerBook: maxOrdersPerBook,
	}
	e.log.Infow("initialized", "admin", admin.Hex(),
		"max_orders_per_user", maxOrdersPerUser, "max_orders_per_book", maxOrdersPerBook)
	return e.commit(&Changeset{Global: e.global})
}

// Restore loads previously persisted state into a fresh engine.
func (e *Engine) Restore(global *state.GlobalState, recs []*state.MarketRecords) error {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global != nil {
		return ErrAlreadyInitialized
	}
	e.global = global
	for _, rec := range recs {
		if err := e.markets.Register(rec); err != nil {
			return err
		}
	}
	return nil
}

// TransferAdmin hands the admin identity to a new address.
func (e *Engine) TransferAdmin(caller, newAdmin common.Address) error {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global == nil {
		return ErrNotInitialized
	}
	if e.global.Admin != caller {
		return fmt.Errorf("%w: %s", ErrNotAdmin, caller.Hex())
	}
	e.global.Admin = newAdmin
	e.log.Infow("admin_transferred", "from", caller.Hex(), "to", newAdmin.Hex())
	return e.commit(&Changeset{Global: e.global})
}

// ChangeConfig adjusts the global order limits. Nil leaves a limit
// unchanged. New limits apply to future placements only; already
// resting orders are never evicted.
func (e *Engine) ChangeConfig(caller common.Address, maxOrdersPerUser, maxOrdersPerBook *uint64) error {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global == nil {
		return ErrNotInitialized
	}
	if e.global.Admin != caller {
		return fmt.Errorf("%w: %s", ErrNotAdmin, caller.Hex())
	}
	if maxOrdersPerUser != nil {
		e.global.MaxOrdersPerUser = *maxOrdersPerUser
	}
	if maxOrdersPerBook != nil {
		e.global.MaxOrdersPerBook = *maxOrdersPerBook
	}
	e.log.Infow("config_changed",
		"max_orders_per_user", e.global.MaxOrdersPerUser,
		"max_orders_per_book", e.global.MaxOrdersPerBook)
	return e.commit(&Changeset{Global: e.global})
}

// CreateMarket registers a new market for a base/quote asset pair. The
// caller becomes the market authority; both book sides are sized from
// the current max-orders-per-book limit and never grow.
func (e *Engine) CreateMarket(caller common.Address, name string, baseAsset, quoteAsset common.Address) (*state.Market, error) {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global == nil {
		return nil, ErrNotInitialized
	}

	packed, err := state.FillName(name)
	if err != nil {
		return nil, err
	}
	baseDec, err := e.rail.AssetDecimals(baseAsset)
	if err != nil {
		return nil, err
	}
	quoteDec, err := e.rail.AssetDecimals(quoteAsset)
	if err != nil {
		return nil, err
	}

	seed := e.global.MarketSeqNum
	mkt := &state.Market{
		Seed:         seed,
		Name:         packed,
		Authority:    caller,
		BaseAsset:    baseAsset,
		QuoteAsset:   quoteAsset,
		BaseDecimal:  baseDec,
		QuoteDecimal: quoteDec,
		CreatedAt:    e.clock.Now().Unix(),
	}
	rec := &state.MarketRecords{
		Market: mkt,
		Bids:   book.New(book.Bid, seed, e.global.MaxOrdersPerBook),
		Asks:   book.New(book.Ask, seed, e.global.MaxOrdersPerBook),
		Users:  make(map[common.Address]*state.OpenOrders),
	}
	if err := e.markets.Register(rec); err != nil {
		return nil, err
	}
	e.global.TotalMarketCount++
	e.global.MarketSeqNum++

	e.log.Infow("market_created", "seed", seed, "name", mkt.Label(),
		"base", baseAsset.Hex(), "quote", quoteAsset.Hex(), "authority", caller.Hex())
	if err := e.commit(&Changeset{Global: e.global, Market: mkt, Books: []*book.Book{rec.Bids, rec.Asks}}); err != nil {
		return nil, err
	}
	return mkt, nil
}

// CloseMarket releases a market's records. Requires the caller to be
// the market authority and both sides to be empty.
func (e *Engine) CloseMarket(caller common.Address, marketSeed uint64) error {
	e.gmu.Lock()
	defer e.gmu.Unlock()

	if e.global == nil {
		return ErrNotInitialized
	}
	rec, err := e.marketRecords(marketSeed)
	if err != nil {
		return err
	}

	rec.Mu.Lock()
	defer rec.Mu.Unlock()

	if rec.Market.Authority != caller {
		return fmt.Errorf("%w: %s", ErrNotAuthority, caller.Hex())
	}
	if rec.Bids.OrdersCount != 0 || rec.Asks.OrdersCount != 0 {
		return ErrNonEmptyMarket
	}
	if err := e.markets.Remove(marketSeed); err != nil {
		return err
	}
	e.global.TotalMarketCount--

	e.log.Infow("market_closed", "seed", marketSeed, "name", rec.Market.Label())
	seed := marketSeed
	return e.commit(&Changeset{Global: e.global, RemovedMarket: &seed})
}

// CreateOpenOrders creates the per-(user, market) record a user needs
// before placing or being matched.
func (e *Engine) CreateOpenOrders(user common.Address, marketSeed uint64) (*state.OpenOrders, error) {
	if err := e.requireInitialized(); err != nil {
		return nil, err
	}
	rec, err := e.marketRecords(marketSeed)
	if err != nil {
		return nil, err
	}

	rec.Mu.Lock()
	defer rec.Mu.Unlock()

	if _, exists := rec.Users[user]; exists {
		return nil, fmt.Errorf("%w: %s on market %d", ErrOpenOrdersExists, user.Hex(), marketSeed)
	}
	oo := &state.OpenOrders{Owner: user, MarketSeed: marketSeed}
	rec.Users[user] = oo

	e.log.Infow("open_orders_created", "market", marketSeed, "user", user.Hex())
	if err := e.commit(&Changeset{OpenOrders: []*state.OpenOrders{oo}}); err != nil {
		return nil, err
	}
	return oo, nil
}

func (e *Engine) requireInitialized() error {
	e.gmu.RLock()
	defer e.gmu.RUnlock()
	if e.global == nil {
		return ErrNotInitialized
	}
	return nil
}

// limits returns the current global order limits.
func (e *Engine) limits() (perUser, perBook uint64, err error) {
	e.gmu.RLock()
	defer e.gmu.RUnlock()
	if e.global == nil {
		return 0, 0, ErrNotInitialized
	}
	return e.global.MaxOrdersPerUser, e.global.MaxOrdersPerBook, nil
}

func (e *Engine) marketRecords(seed uint64) (*state.MarketRecords, error) {
	rec, err := e.markets.Get(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrMarketNotFound, seed)
	}
	return rec, nil
}

// userRecords resolves the open-orders record and reconfirms it belongs
// to the given identity. Caller must hold the market lock.
func userRecords(rec *state.MarketRecords, user common.Address) (*state.OpenOrders, error) {
	oo, ok := rec.Users[user]
	if !ok {
		return nil, fmt.Errorf("%w: %s on market %d", ErrOpenOrdersMissing, user.Hex(), rec.Market.Seed)
	}
	if oo.Owner != user {
		return nil, fmt.Errorf("%w: record owner %s", ErrOwnerMismatch, oo.Owner.Hex())
	}
	return oo, nil
}

// commit archives a changeset. By this point the transition has already
// applied in memory, so a storage error is reported as ErrArchiveFailed
// rather than unwinding anything.
func (e *Engine) commit(cs *Changeset) error {
	if e.archive == nil {
		return nil
	}
	if err := e.archive.Commit(cs); err != nil {
		e.log.Errorw("archive_commit_failed", "err", err)
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}
	return nil
}
