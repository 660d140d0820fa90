package engine

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
)

// Place escrows quantity of the side's reserved asset (quote for a bid,
// base for an ask) and rests a new order on the book. The order id is
// consumed from the market sequence only when the placement succeeds.
func (e *Engine) Place(maker common.Address, marketSeed uint64, side book.Side, price, quantity uint64) (book.Order, error) {
	if price == 0 || quantity == 0 {
		return book.Order{}, ErrInvalidOrder
	}
	perUser, perBook, err := e.limits()
	if err != nil {
		return book.Order{}, err
	}
	rec, err := e.marketRecords(marketSeed)
	if err != nil {
		return book.Order{}, err
	}

	rec.Mu.Lock()
	defer rec.Mu.Unlock()

	oo, err := userRecords(rec, maker)
	if err != nil {
		return book.Order{}, err
	}
	bk := rec.SideBook(side)

	// Every check runs before the first mutation.
	if oo.OpenedOrdersCount >= perUser {
		return book.Order{}, fmt.Errorf("%w: user has %d open orders", ErrCapacityExceeded, oo.OpenedOrdersCount)
	}
	if bk.OrdersCount >= perBook || bk.Full() {
		return book.Order{}, fmt.Errorf("%w: %s side holds %d orders", ErrCapacityExceeded, side, bk.OrdersCount)
	}
	asset := escrowAsset(rec.Market, side)
	src := custody.Account{Asset: asset, Holder: maker}
	vault := custody.Account{Asset: asset, Holder: state.VaultAuthority(marketSeed)}

	// The escrow leg checks and moves under the ledger lock before any
	// record changes, so a source drained by a concurrent transition on
	// another market cannot leave a half-applied placement.
	if err := e.rail.Execute(custody.Movement{From: src, To: vault, Amount: quantity}); err != nil {
		if errors.Is(err, custody.ErrInsufficientFunds) {
			return book.Order{}, fmt.Errorf("%w: need %d of %s", ErrInsufficientDeposit, quantity, asset.Hex())
		}
		return book.Order{}, fmt.Errorf("escrow transfer: %w", err)
	}

	order := book.Order{
		ID:        rec.Market.OrderSeqNum,
		Owner:     maker,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: e.clock.Now().Unix(),
	}
	if err := bk.Insert(order); err != nil {
		// Unreachable after the capacity checks above.
		_ = e.rail.Execute(custody.Movement{From: vault, To: src, Amount: quantity})
		return book.Order{}, err
	}
	oo.OpenedOrdersCount++
	addDeposit(oo, side, quantity)
	rec.Market.OrderSeqNum++

	e.log.Infow("order_placed", "market", marketSeed, "side", side.String(),
		"order_id", order.ID, "owner", maker.Hex(), "price", price, "quantity", quantity)
	err = e.commit(&Changeset{
		Market:     rec.Market,
		Books:      []*book.Book{bk},
		OpenOrders: []*state.OpenOrders{oo},
		Balances:   e.balanceRows(src, vault),
	})
	return order, err
}

// Cancel withdraws the caller's resting order and returns its escrow
// from the market vault.
func (e *Engine) Cancel(maker common.Address, marketSeed uint64, side book.Side, orderID uint64) (book.Order, error) {
	if err := e.requireInitialized(); err != nil {
		return book.Order{}, err
	}
	rec, err := e.marketRecords(marketSeed)
	if err != nil {
		return book.Order{}, err
	}

	rec.Mu.Lock()
	defer rec.Mu.Unlock()

	oo, err := userRecords(rec, maker)
	if err != nil {
		return book.Order{}, err
	}
	bk := rec.SideBook(side)

	order, ok := bk.Get(orderID)
	if !ok {
		return book.Order{}, fmt.Errorf("%w: id %d on %s side", book.ErrOrderNotFound, orderID, side)
	}
	if order.Owner != maker {
		return book.Order{}, fmt.Errorf("%w: order %d", ErrOwnerMismatch, orderID)
	}
	asset := escrowAsset(rec.Market, side)
	vault := custody.Account{Asset: asset, Holder: state.VaultAuthority(marketSeed)}
	dst := custody.Account{Asset: asset, Holder: maker}

	// Escrow returns atomically before any record changes.
	if err := e.rail.Execute(custody.Movement{From: vault, To: dst, Amount: order.Quantity}); err != nil {
		if errors.Is(err, custody.ErrInsufficientFunds) {
			return book.Order{}, fmt.Errorf("%w: need %d of %s", ErrInsufficientVault, order.Quantity, asset.Hex())
		}
		return book.Order{}, fmt.Errorf("escrow release: %w", err)
	}

	if _, err := bk.Remove(orderID); err != nil {
		// Unreachable: the order was read under the market lock.
		_ = e.rail.Execute(custody.Movement{From: dst, To: vault, Amount: order.Quantity})
		return book.Order{}, err
	}
	oo.OpenedOrdersCount--
	subDeposit(oo, side, order.Quantity)

	e.log.Infow("order_cancelled", "market", marketSeed, "side", side.String(),
		"order_id", orderID, "owner", maker.Hex(), "quantity", order.Quantity)
	err = e.commit(&Changeset{
		Books:      []*book.Book{bk},
		OpenOrders: []*state.OpenOrders{oo},
		Balances:   e.balanceRows(vault, dst),
	})
	return order, err
}

// Take fully consumes a resting order: the escrowed quantity leaves the
// vault for the taker, and the counter-leg amount moves straight from
// taker to maker without touching market custody.
func (e *Engine) Take(taker common.Address, marketSeed uint64, restingSide book.Side, orderID uint64) (state.Trade, error) {
	return e.take(taker, marketSeed, restingSide, orderID, 0)
}

// TakePartial fills amount of a resting order, which must be strictly
// less than the resting quantity; the order stays on the book with the
// remainder and no order counts change.
func (e *Engine) TakePartial(taker common.Address, marketSeed uint64, restingSide book.Side, orderID, amount uint64) (state.Trade, error) {
	if amount == 0 {
		return state.Trade{}, ErrInvalidOrder
	}
	return e.take(taker, marketSeed, restingSide, orderID, amount)
}

// take executes a fill. amount == 0 means full consumption.
func (e *Engine) take(taker common.Address, marketSeed uint64, restingSide book.Side, orderID, amount uint64) (state.Trade, error) {
	if err := e.requireInitialized(); err != nil {
		return state.Trade{}, err
	}
	rec, err := e.marketRecords(marketSeed)
	if err != nil {
		return state.Trade{}, err
	}

	rec.Mu.Lock()

	trade, err := e.fillLocked(rec, taker, restingSide, orderID, amount)
	rec.Mu.Unlock()
	if err != nil {
		// On ErrArchiveFailed the fill has applied; the trade comes back
		// with the error and the broadcast hook is skipped.
		return trade, err
	}
	if e.onTrade != nil {
		e.onTrade(trade)
	}
	return trade, nil
}

func (e *Engine) fillLocked(rec *state.MarketRecords, taker common.Address, restingSide book.Side, orderID, amount uint64) (state.Trade, error) {
	bk := rec.SideBook(restingSide)
	mkt := rec.Market

	order, ok := bk.Get(orderID)
	if !ok {
		return state.Trade{}, fmt.Errorf("%w: id %d on %s side", book.ErrOrderNotFound, orderID, restingSide)
	}
	partial := amount != 0
	filled := order.Quantity
	if partial {
		if amount >= order.Quantity {
			return state.Trade{}, fmt.Errorf("%w: %d of %d", book.ErrPartialExceedsOrder, amount, order.Quantity)
		}
		filled = amount
	}

	makerOO, err := userRecords(rec, order.Owner)
	if err != nil {
		return state.Trade{}, err
	}
	takerOO, err := userRecords(rec, taker)
	if err != nil {
		return state.Trade{}, err
	}

	counter, err := counterAmount(order.Price, filled, mkt.QuoteDecimal)
	if err != nil {
		return state.Trade{}, err
	}

	restAsset := escrowAsset(mkt, restingSide)
	oppAsset := counterAsset(mkt, restingSide)
	vault := custody.Account{Asset: restAsset, Holder: state.VaultAuthority(mkt.Seed)}
	takerRest := custody.Account{Asset: restAsset, Holder: taker}
	takerOpp := custody.Account{Asset: oppAsset, Holder: taker}
	makerOpp := custody.Account{Asset: oppAsset, Holder: order.Owner}

	// Both settlement legs move under one ledger lock before any record
	// changes: the escrow reaches the taker and the counter amount
	// reaches the maker, or neither does.
	vaultLeg := custody.Movement{From: vault, To: takerRest, Amount: filled}
	counterLeg := custody.Movement{From: takerOpp, To: makerOpp, Amount: counter}
	if err := e.rail.Execute(vaultLeg, counterLeg); err != nil {
		if errors.Is(err, custody.ErrInsufficientFunds) {
			if e.rail.Balance(vault) < filled {
				return state.Trade{}, fmt.Errorf("%w: need %d of %s", ErrInsufficientVault, filled, restAsset.Hex())
			}
			return state.Trade{}, fmt.Errorf("%w: need %d of %s", ErrInsufficientDeposit, counter, oppAsset.Hex())
		}
		return state.Trade{}, fmt.Errorf("settlement: %w", err)
	}

	// Funds moved; mutate the records.
	if partial {
		if _, err := bk.DecreaseQuantity(orderID, filled); err != nil {
			// Unreachable: the order and amount were checked above.
			_ = e.rail.Execute(
				custody.Movement{From: takerRest, To: vault, Amount: filled},
				custody.Movement{From: makerOpp, To: takerOpp, Amount: counter},
			)
			return state.Trade{}, err
		}
	} else {
		if _, err := bk.Remove(orderID); err != nil {
			_ = e.rail.Execute(
				custody.Movement{From: takerRest, To: vault, Amount: filled},
				custody.Movement{From: makerOpp, To: takerOpp, Amount: counter},
			)
			return state.Trade{}, err
		}
		makerOO.OpenedOrdersCount--
	}
	subDeposit(makerOO, restingSide, filled)
	creditVolumes(restingSide, filled, counter, &makerOO.BaseTotalVolume, &makerOO.QuoteTotalVolume)
	creditVolumes(restingSide, filled, counter, &takerOO.BaseTotalVolume, &takerOO.QuoteTotalVolume)
	creditVolumes(restingSide, filled, counter, &mkt.BaseTotalVolume, &mkt.QuoteTotalVolume)

	trade := state.Trade{
		MarketSeed:    mkt.Seed,
		OrderID:       orderID,
		RestingSide:   restingSide,
		Maker:         order.Owner,
		Taker:         taker,
		Price:         order.Price,
		Quantity:      filled,
		CounterAmount: counter,
		Partial:       partial,
		ExecutedAt:    e.clock.Now().Unix(),
	}
	e.log.Infow("order_taken", "market", mkt.Seed, "side", restingSide.String(),
		"order_id", orderID, "maker", order.Owner.Hex(), "taker", taker.Hex(),
		"filled", filled, "counter", counter, "partial", partial)
	err = e.commit(&Changeset{
		Market:     mkt,
		Books:      []*book.Book{bk},
		OpenOrders: []*state.OpenOrders{makerOO, takerOO},
		Balances:   e.balanceRows(vault, takerRest, takerOpp, makerOpp),
		Trade:      &trade,
	})
	return trade, err
}

// balanceRows snapshots the current amounts of the touched custody
// accounts for persistence.
func (e *Engine) balanceRows(accts ...custody.Account) []custody.Balance {
	rows := make([]custody.Balance, 0, len(accts))
	for _, a := range accts {
		rows = append(rows, custody.Balance{Account: a, Amount: e.rail.Balance(a)})
	}
	return rows
}

// IsNotFound reports whether err is the order-not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, book.ErrOrderNotFound) }
