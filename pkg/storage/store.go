// Package storage persists the dex ledger records in Pebble. One
// engine transition becomes one batch commit, so the on-disk state
// only ever reflects whole transitions.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
	"github.com/hybriddex/hybriddex/pkg/dex/custody"
	"github.com/hybriddex/hybriddex/pkg/dex/engine"
	"github.com/hybriddex/hybriddex/pkg/dex/state"
)

type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Commit writes every record a transition touched in one atomic batch.
func (s *Store) Commit(cs *engine.Changeset) error {
	b := s.db.NewBatch()
	defer b.Close()

	set := func(key []byte, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return b.Set(key, data, nil)
	}

	if cs.Global != nil {
		if err := set([]byte(keyGlobal), cs.Global); err != nil {
			return err
		}
	}
	if cs.Market != nil {
		if err := set(marketKey(cs.Market.Seed), cs.Market); err != nil {
			return err
		}
	}
	if cs.RemovedMarket != nil {
		seed := *cs.RemovedMarket
		if err := b.Delete(marketKey(seed), nil); err != nil {
			return err
		}
		if err := b.Delete(bookKey(seed, true), nil); err != nil {
			return err
		}
		if err := b.Delete(bookKey(seed, false), nil); err != nil {
			return err
		}
		if err := b.DeleteRange(ooPrefix(seed), keyUpperBound(ooPrefix(seed)), nil); err != nil {
			return err
		}
	}
	for _, bk := range cs.Books {
		if err := set(bookKey(bk.MarketSeed, bk.Side == book.Bid), bk); err != nil {
			return err
		}
	}
	for _, oo := range cs.OpenOrders {
		if err := set(ooKey(oo.MarketSeed, oo.Owner), oo); err != nil {
			return err
		}
	}
	for _, row := range cs.Balances {
		key := balKey(row.Account.Asset, row.Account.Holder)
		if row.Amount == 0 {
			if err := b.Delete(key, nil); err != nil {
				return err
			}
			continue
		}
		if err := set(key, row); err != nil {
			return err
		}
	}
	if cs.Trade != nil {
		if err := set(tradeKey(cs.Trade.MarketSeed, cs.Trade.ExecutedAt, cs.Trade.OrderID), cs.Trade); err != nil {
			return err
		}
	}

	return b.Commit(pebble.Sync)
}

var _ engine.Archiver = (*Store)(nil)

// SaveAsset persists a registered mint.
func (s *Store) SaveAsset(a custody.Asset) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Set(assetKey(a.Mint), data, pebble.Sync)
}

// LoadGlobal returns the global record, or nil when the store is fresh.
func (s *Store) LoadGlobal() (*state.GlobalState, error) {
	var g state.GlobalState
	found, err := s.get([]byte(keyGlobal), &g)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

// LoadMarkets reconstructs every market's records: market, both book
// sides (each at its persisted creation-time capacity), and open-orders
// records.
func (s *Store) LoadMarkets() ([]*state.MarketRecords, error) {
	var out []*state.MarketRecords

	err := s.scan([]byte(prefixMarket), func(_, val []byte) error {
		var mkt state.Market
		if err := json.Unmarshal(val, &mkt); err != nil {
			return err
		}
		rec := &state.MarketRecords{
			Market: &mkt,
			Users:  make(map[common.Address]*state.OpenOrders),
		}

		for _, bid := range []bool{true, false} {
			var bk book.Book
			found, err := s.get(bookKey(mkt.Seed, bid), &bk)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("market %d book record missing", mkt.Seed)
			}
			bk.Reanchor()
			if bid {
				rec.Bids = &bk
			} else {
				rec.Asks = &bk
			}
		}

		if err := s.scan(ooPrefix(mkt.Seed), func(_, val []byte) error {
			var oo state.OpenOrders
			if err := json.Unmarshal(val, &oo); err != nil {
				return err
			}
			rec.Users[oo.Owner] = &oo
			return nil
		}); err != nil {
			return err
		}

		out = append(out, rec)
		return nil
	})
	return out, err
}

// LoadAssets returns every registered mint.
func (s *Store) LoadAssets() ([]custody.Asset, error) {
	var out []custody.Asset
	err := s.scan([]byte(prefixAsset), func(_, val []byte) error {
		var a custody.Asset
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

// LoadBalances returns every persisted ledger row.
func (s *Store) LoadBalances() ([]custody.Balance, error) {
	var out []custody.Balance
	err := s.scan([]byte(prefixBal), func(_, val []byte) error {
		var row custody.Balance
		if err := json.Unmarshal(val, &row); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// LoadRecentTrades returns up to limit trades of one market, newest first.
func (s *Store) LoadRecentTrades(marketSeed uint64, limit int) ([]state.Trade, error) {
	prefix := tradePrefix(marketSeed)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []state.Trade
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var t state.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) get(key []byte, v any) (bool, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer closer.Close()
	return true, json.Unmarshal(data, v)
}

func (s *Store) scan(prefix []byte, fn func(key, val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
