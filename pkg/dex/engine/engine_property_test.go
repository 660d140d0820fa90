package engine

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"pgregory.net/rapid"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/util"
)

// Random sequences of place/cancel/take must keep every cross-record
// invariant intact after each step, whether the individual operation
// succeeded or failed.
func TestEngineInvariantsUnderRandomOps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ledger := custody.NewLedger()
		ledger.RegisterAsset(custody.Asset{Mint: baseMint, Symbol: "BASE", Decimals: 0})
		ledger.RegisterAsset(custody.Asset{Mint: quoteMint, Symbol: "QUOTE", Decimals: 0})

		eng := New(ledger, util.NewManualClock(time.Unix(1_700_000_000, 0)), nil)
		perUser := rapid.Uint64Range(1, 8).Draw(t, "perUser")
		perBook := rapid.Uint64Range(1, 16).Draw(t, "perBook")
		if err := eng.Initialize(admin, perUser, perBook); err != nil {
			t.Fatalf("init: %v", err)
		}
		mkt, err := eng.CreateMarket(admin, "PROP", baseMint, quoteMint)
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		users := []common.Address{alice, bob, carol}
		for _, u := range users {
			if _, err := eng.CreateOpenOrders(u, mkt.Seed); err != nil {
				t.Fatalf("open orders: %v", err)
			}
			funding := rapid.Uint64Range(0, 10_000).Draw(t, "funding")
			ledger.Mint(custody.Account{Asset: baseMint, Holder: u}, funding)
			ledger.Mint(custody.Account{Asset: quoteMint, Holder: u}, funding)
		}

		ops := rapid.IntRange(1, 60).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			user := rapid.SampledFrom(users).Draw(t, "user")
			side := rapid.SampledFrom([]book.Side{book.Bid, book.Ask}).Draw(t, "side")

			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				price := rapid.Uint64Range(1, 20).Draw(t, "price")
				qty := rapid.Uint64Range(1, 500).Draw(t, "qty")
				eng.Place(user, mkt.Seed, side, price, qty)
			case 1:
				id := rapid.Uint64Range(0, 100).Draw(t, "cancelID")
				eng.Cancel(user, mkt.Seed, side, id)
			case 2:
				id := rapid.Uint64Range(0, 100).Draw(t, "takeID")
				eng.Take(user, mkt.Seed, side, id)
			case 3:
				id := rapid.Uint64Range(0, 100).Draw(t, "partialID")
				amount := rapid.Uint64Range(1, 200).Draw(t, "amount")
				eng.TakePartial(user, mkt.Seed, side, id, amount)
			}

			if err := eng.ValidateMarket(mkt.Seed); err != nil {
				t.Fatalf("after op %d: %v", i, err)
			}
		}
	})
}
