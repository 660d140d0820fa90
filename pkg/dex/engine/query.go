package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
)

// Global returns a copy of the global configuration record.
func (e *Engine) Global() (state.GlobalState, error) {
	e.gmu.RLock()
	defer e.gmu.RUnlock()
	if e.global == nil {
		return state.GlobalState{}, ErrNotInitialized
	}
	return *e.global, nil
}

// Market returns a copy of a market record.
func (e *Engine) Market(seed uint64) (state.Market, error) {
	rec, err := e.marketRecords(seed)
	if err != nil {
		return state.Market{}, err
	}
	rec.Mu.Lock()
	defer rec.Mu.Unlock()
	return *rec.Market, nil
}

// Markets returns copies of every live market record.
func (e *Engine) Markets() []state.Market {
	recs := e.markets.List()
	out := make([]state.Market, 0, len(recs))
	for _, rec := range recs {
		rec.Mu.Lock()
		out = append(out, *rec.Market)
		rec.Mu.Unlock()
	}
	return out
}

// BookSnapshot returns the resting orders of one side, best first.
func (e *Engine) BookSnapshot(seed uint64, side book.Side) ([]book.Order, error) {
	rec, err := e.marketRecords(seed)
	if err != nil {
		return nil, err
	}
	rec.Mu.Lock()
	defer rec.Mu.Unlock()
	return rec.SideBook(side).Snapshot(), nil
}

// OpenOrders returns a copy of a user's record on a market.
func (e *Engine) OpenOrders(seed uint64, user common.Address) (state.OpenOrders, error) {
	rec, err := e.marketRecords(seed)
	if err != nil {
		return state.OpenOrders{}, err
	}
	rec.Mu.Lock()
	defer rec.Mu.Unlock()
	oo, ok := rec.Users[user]
	if !ok {
		return state.OpenOrders{}, fmt.Errorf("%w: %s on market %d", ErrOpenOrdersMissing, user.Hex(), seed)
	}
	return *oo, nil
}

// ValidateMarket checks every cross-record invariant on one market:
// count/length lockstep and price ordering per side, per-user open
// order counts against live book entries, and conservation of escrowed
// funds against the vault balances.
func (e *Engine) ValidateMarket(seed uint64) error {
	rec, err := e.marketRecords(seed)
	if err != nil {
		return err
	}
	rec.Mu.Lock()
	defer rec.Mu.Unlock()

	if err := rec.Bids.Validate(); err != nil {
		return fmt.Errorf("bid side: %w", err)
	}
	if err := rec.Asks.Validate(); err != nil {
		return fmt.Errorf("ask side: %w", err)
	}

	perUser := make(map[common.Address]uint64)
	var quoteEscrow, baseEscrow uint64
	for _, o := range rec.Bids.Orders {
		perUser[o.Owner]++
		quoteEscrow += o.Quantity
	}
	for _, o := range rec.Asks.Orders {
		perUser[o.Owner]++
		baseEscrow += o.Quantity
	}

	var quoteDeposits, baseDeposits uint64
	for addr, oo := range rec.Users {
		if oo.OpenedOrdersCount != perUser[addr] {
			return fmt.Errorf("user %s: opened_orders_count=%d, live entries=%d",
				addr.Hex(), oo.OpenedOrdersCount, perUser[addr])
		}
		quoteDeposits += oo.QuoteDepositTotal
		baseDeposits += oo.BaseDepositTotal
	}
	if quoteDeposits != quoteEscrow {
		return fmt.Errorf("quote deposit totals %d != resting bid escrow %d", quoteDeposits, quoteEscrow)
	}
	if baseDeposits != baseEscrow {
		return fmt.Errorf("base deposit totals %d != resting ask escrow %d", baseDeposits, baseEscrow)
	}

	vaultID := state.VaultAuthority(seed)
	quoteVault := e.rail.Balance(custody.Account{Asset: rec.Market.QuoteAsset, Holder: vaultID})
	baseVault := e.rail.Balance(custody.Account{Asset: rec.Market.BaseAsset, Holder: vaultID})
	if quoteVault != quoteDeposits {
		return fmt.Errorf("quote vault %d != outstanding quote escrow %d", quoteVault, quoteDeposits)
	}
	if baseVault != baseDeposits {
		return fmt.Errorf("base vault %d != outstanding base escrow %d", baseVault, baseDeposits)
	}
	return nil
}
