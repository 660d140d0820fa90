package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
)

// counterAmount computes the opposite-leg amount for filling quantity
// of a resting order at the given price:
//
//	floor(price * quantity / 10^quoteDecimals)
//
// denominated in base units when the resting order is a bid and quote
// units when it is an ask. The multiply runs at arbitrary width before
// the divide, so intermediate overflow cannot occur; a result that does
// not fit 64 bits is rejected.
func counterAmount(price, quantity uint64, quoteDecimals uint8) (uint64, error) {
	n := new(big.Int).Mul(new(big.Int).SetUint64(price), new(big.Int).SetUint64(quantity))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(quoteDecimals)), nil)
	n.Quo(n, scale)
	if !n.IsUint64() {
		return 0, fmt.Errorf("counter amount overflows: price=%d quantity=%d", price, quantity)
	}
	return n.Uint64(), nil
}

// escrowAsset returns the asset a side's resting orders hold in escrow.
func escrowAsset(m *state.Market, s book.Side) common.Address {
	if s == book.Bid {
		return m.QuoteAsset
	}
	return m.BaseAsset
}

// counterAsset returns the asset the taker owes when filling the side.
func counterAsset(m *state.Market, s book.Side) common.Address {
	if s == book.Bid {
		return m.BaseAsset
	}
	return m.QuoteAsset
}

// addDeposit and subDeposit adjust the escrow total for the asset a
// side reserves.
func addDeposit(oo *state.OpenOrders, s book.Side, amount uint64) {
	if s == book.Bid {
		oo.QuoteDepositTotal += amount
	} else {
		oo.BaseDepositTotal += amount
	}
}

func subDeposit(oo *state.OpenOrders, s book.Side, amount uint64) {
	if s == book.Bid {
		oo.QuoteDepositTotal -= amount
	} else {
		oo.BaseDepositTotal -= amount
	}
}

// creditVolumes bumps lifetime fill counters on an open-orders or
// market record. For a bid fill the counter leg is base; for an ask
// fill it is quote.
func creditVolumes(s book.Side, filled, counter uint64, baseVol, quoteVol *uint64) {
	if s == book.Bid {
		*baseVol += counter
		*quoteVol += filled
	} else {
		*baseVol += filled
		*quoteVol += counter
	}
}
