// End-to-end flow over real persistence: boot a node's worth of wiring,
// trade on it, then restart from disk and verify nothing drifted.
package tests

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/engine"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
	"github.com/hybriddex/hybriddex/pkg/storage"
	"github.com/hybriddex/hybriddex/pkg/util"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000002")

	baseMint  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	quoteMint = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func TestFullLifecycleWithRestart(t *testing.T) {
	dir := t.TempDir()

	// ---- First process lifetime ----
	store, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ledger := custody.NewLedger()
	for _, a := range []custody.Asset{
		{Mint: baseMint, Symbol: "BASE", Decimals: 0},
		{Mint: quoteMint, Symbol: "QUOTE", Decimals: 0},
	} {
		ledger.RegisterAsset(a)
		if err := store.SaveAsset(a); err != nil {
			t.Fatalf("save asset: %v", err)
		}
	}

	clock := util.NewManualClock(time.Unix(1_700_000_000, 0))
	eng := engine.New(ledger, clock, nil)
	eng.SetArchiver(store)

	if err := eng.Initialize(admin, 16, 64); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mkt, err := eng.CreateMarket(admin, "BASE-QUOTE", baseMint, quoteMint)
	if err != nil {
		t.Fatalf("create market: %v", err)
	}

	for _, user := range []common.Address{alice, bob} {
		if _, err := eng.CreateOpenOrders(user, mkt.Seed); err != nil {
			t.Fatalf("enroll %s: %v", user.Hex(), err)
		}
		for _, mint := range []common.Address{baseMint, quoteMint} {
			acct := custody.Account{Asset: mint, Holder: user}
			if err := ledger.Mint(acct, 10_000); err != nil {
				t.Fatalf("mint: %v", err)
			}
			if err := store.Commit(&engine.Changeset{
				Balances: []custody.Balance{{Account: acct, Amount: ledger.Balance(acct)}},
			}); err != nil {
				t.Fatalf("persist funding: %v", err)
			}
		}
	}

	// Bob rests two asks; alice fully takes one and partially fills the
	// other; bob cancels nothing. One bid rests across the restart.
	ask1, err := eng.Place(bob, mkt.Seed, book.Ask, 100, 3)
	if err != nil {
		t.Fatalf("place ask1: %v", err)
	}
	clock.Advance(time.Second)
	ask2, err := eng.Place(bob, mkt.Seed, book.Ask, 101, 10)
	if err != nil {
		t.Fatalf("place ask2: %v", err)
	}
	clock.Advance(time.Second)
	bid, err := eng.Place(alice, mkt.Seed, book.Bid, 99, 500)
	if err != nil {
		t.Fatalf("place bid: %v", err)
	}

	if _, err := eng.Take(alice, mkt.Seed, book.Ask, ask1.ID); err != nil {
		t.Fatalf("take ask1: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := eng.TakePartial(alice, mkt.Seed, book.Ask, ask2.ID, 4); err != nil {
		t.Fatalf("partial take ask2: %v", err)
	}

	if err := eng.ValidateMarket(mkt.Seed); err != nil {
		t.Fatalf("invariants before restart: %v", err)
	}

	wantGlobal, _ := eng.Global()
	wantMarket, _ := eng.Market(mkt.Seed)
	wantAliceOO, _ := eng.OpenOrders(mkt.Seed, alice)
	wantBobOO, _ := eng.OpenOrders(mkt.Seed, bob)
	wantAsks, _ := eng.BookSnapshot(mkt.Seed, book.Ask)
	wantBids, _ := eng.BookSnapshot(mkt.Seed, book.Bid)

	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// ---- Restart ----
	store2, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store2.Close()

	ledger2 := custody.NewLedger()
	assets, err := store2.LoadAssets()
	if err != nil {
		t.Fatalf("load assets: %v", err)
	}
	balances, err := store2.LoadBalances()
	if err != nil {
		t.Fatalf("load balances: %v", err)
	}
	ledger2.Restore(assets, balances)

	eng2 := engine.New(ledger2, util.RealClock{}, nil)
	global, err := store2.LoadGlobal()
	if err != nil || global == nil {
		t.Fatalf("load global: %v (nil=%v)", err, global == nil)
	}
	recs, err := store2.LoadMarkets()
	if err != nil {
		t.Fatalf("load markets: %v", err)
	}
	if err := eng2.Restore(global, recs); err != nil {
		t.Fatalf("restore: %v", err)
	}
	eng2.SetArchiver(store2)

	// Restored state matches the pre-restart views exactly.
	gotGlobal, _ := eng2.Global()
	if gotGlobal != wantGlobal {
		t.Fatalf("global = %+v, want %+v", gotGlobal, wantGlobal)
	}
	gotMarket, err := eng2.Market(mkt.Seed)
	if err != nil {
		t.Fatalf("market: %v", err)
	}
	if gotMarket != wantMarket {
		t.Fatalf("market = %+v, want %+v", gotMarket, wantMarket)
	}
	for _, tc := range []struct {
		user common.Address
		want state.OpenOrders
	}{{alice, wantAliceOO}, {bob, wantBobOO}} {
		got, err := eng2.OpenOrders(mkt.Seed, tc.user)
		if err != nil {
			t.Fatalf("open orders: %v", err)
		}
		if got != tc.want {
			t.Fatalf("open orders for %s = %+v, want %+v", tc.user.Hex(), got, tc.want)
		}
	}
	gotAsks, _ := eng2.BookSnapshot(mkt.Seed, book.Ask)
	gotBids, _ := eng2.BookSnapshot(mkt.Seed, book.Bid)
	if len(gotAsks) != len(wantAsks) || len(gotBids) != len(wantBids) {
		t.Fatalf("books = %d/%d, want %d/%d", len(gotBids), len(gotAsks), len(wantBids), len(wantAsks))
	}
	for i := range wantAsks {
		if gotAsks[i] != wantAsks[i] {
			t.Fatalf("ask %d = %+v, want %+v", i, gotAsks[i], wantAsks[i])
		}
	}

	if err := eng2.ValidateMarket(mkt.Seed); err != nil {
		t.Fatalf("invariants after restart: %v", err)
	}

	// Trade history survived with newest first.
	trades, err := store2.LoadRecentTrades(mkt.Seed, 10)
	if err != nil {
		t.Fatalf("load trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	if trades[0].OrderID != ask2.ID || !trades[0].Partial {
		t.Fatalf("newest trade = %+v", trades[0])
	}
	if trades[1].OrderID != ask1.ID || trades[1].Partial {
		t.Fatalf("older trade = %+v", trades[1])
	}

	// The restarted engine keeps trading where the first one stopped:
	// finish ask2, cancel the bid, close the market.
	if _, err := eng2.Take(alice, mkt.Seed, book.Ask, ask2.ID); err != nil {
		t.Fatalf("take after restart: %v", err)
	}
	if _, err := eng2.Cancel(alice, mkt.Seed, book.Bid, bid.ID); err != nil {
		t.Fatalf("cancel after restart: %v", err)
	}
	if err := eng2.CloseMarket(admin, mkt.Seed); err != nil {
		t.Fatalf("close after restart: %v", err)
	}

	// Order ids never repeat across the restart.
	m2, err := eng2.CreateMarket(admin, "SECOND", baseMint, quoteMint)
	if err != nil {
		t.Fatalf("second market: %v", err)
	}
	if m2.Seed != mkt.Seed+1 {
		t.Fatalf("seed = %d, want %d", m2.Seed, mkt.Seed+1)
	}
}

// A book's capacity is fixed when its market is created; raising the
// global per-book limit afterwards must not grow existing books, even
// across a restart from disk.
func TestBookCapacityFixedAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	store, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ledger := custody.NewLedger()
	for _, a := range []custody.Asset{
		{Mint: baseMint, Symbol: "BASE", Decimals: 0},
		{Mint: quoteMint, Symbol: "QUOTE", Decimals: 0},
	} {
		ledger.RegisterAsset(a)
		if err := store.SaveAsset(a); err != nil {
			t.Fatalf("save asset: %v", err)
		}
	}

	eng := engine.New(ledger, util.NewManualClock(time.Unix(1_700_000_000, 0)), nil)
	eng.SetArchiver(store)
	if err := eng.Initialize(admin, 16, 2); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mkt, err := eng.CreateMarket(admin, "BASE-QUOTE", baseMint, quoteMint)
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	if _, err := eng.CreateOpenOrders(bob, mkt.Seed); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	acct := custody.Account{Asset: quoteMint, Holder: bob}
	if err := ledger.Mint(acct, 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := store.Commit(&engine.Changeset{
		Balances: []custody.Balance{{Account: acct, Amount: ledger.Balance(acct)}},
	}); err != nil {
		t.Fatalf("persist funding: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := eng.Place(bob, mkt.Seed, book.Bid, uint64(100+i), 10); err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
	}

	raised := uint64(4)
	if err := eng.ChangeConfig(admin, nil, &raised); err != nil {
		t.Fatalf("change config: %v", err)
	}
	if _, err := eng.Place(bob, mkt.Seed, book.Bid, 102, 10); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded before restart", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// ---- Restart ----
	store2, err := storage.NewStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store2.Close()

	ledger2 := custody.NewLedger()
	assets, err := store2.LoadAssets()
	if err != nil {
		t.Fatalf("load assets: %v", err)
	}
	balances, err := store2.LoadBalances()
	if err != nil {
		t.Fatalf("load balances: %v", err)
	}
	ledger2.Restore(assets, balances)

	eng2 := engine.New(ledger2, util.RealClock{}, nil)
	global, err := store2.LoadGlobal()
	if err != nil || global == nil {
		t.Fatalf("load global: %v (nil=%v)", err, global == nil)
	}
	if global.MaxOrdersPerBook != 4 {
		t.Fatalf("limit = %d, want 4", global.MaxOrdersPerBook)
	}
	recs, err := store2.LoadMarkets()
	if err != nil {
		t.Fatalf("load markets: %v", err)
	}
	if err := eng2.Restore(global, recs); err != nil {
		t.Fatalf("restore: %v", err)
	}
	eng2.SetArchiver(store2)

	if _, err := eng2.Place(bob, mkt.Seed, book.Bid, 102, 10); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded after restart", err)
	}

	// A market created under the raised limit gets the new capacity.
	m2, err := eng2.CreateMarket(admin, "SECOND", baseMint, quoteMint)
	if err != nil {
		t.Fatalf("second market: %v", err)
	}
	side, err := eng2.BookSnapshot(m2.Seed, book.Bid)
	if err != nil || len(side) != 0 {
		t.Fatalf("fresh book = %v (%v)", side, err)
	}
	if _, err := eng2.CreateOpenOrders(bob, m2.Seed); err != nil {
		t.Fatalf("enroll second: %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := eng2.Place(bob, m2.Seed, book.Bid, uint64(100+i), 10); err != nil {
			t.Fatalf("place on second market %d: %v", i, err)
		}
	}
	if _, err := eng2.Place(bob, m2.Seed, book.Bid, 120, 10); !errors.Is(err, engine.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded at raised bound", err)
	}
}
