package state

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
)

// MarketRecords bundles every record a transition on one market may
// touch. Mu is held for the whole transition, which is what makes each
// of place/cancel/take a single atomic state change (no internal yield
// points, single writer per market).
type MarketRecords struct {
	Mu sync.Mutex

	Market *Market
	Bids   *book.Book
	Asks   *book.Book
	Users  map[common.Address]*OpenOrders
}

// SideBook returns the book for the requested side.
func (r *MarketRecords) SideBook(s book.Side) *book.Book {
	if s == book.Bid {
		return r.Bids
	}
	return r.Asks
}

// Registry indexes markets by seed in a thread-safe manner.
type Registry struct {
	mu      sync.RWMutex
	markets map[uint64]*MarketRecords
}

// NewRegistry creates an empty market registry.
func NewRegistry() *Registry {
	return &Registry{markets: make(map[uint64]*MarketRecords)}
}

// Register adds a new market's records to the registry.
// Returns an error if the seed is already taken.
func (r *Registry) Register(rec *MarketRecords) error {
	if rec == nil || rec.Market == nil {
		return fmt.Errorf("cannot register nil market")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[rec.Market.Seed]; exists {
		return fmt.Errorf("market %d already registered", rec.Market.Seed)
	}

	r.markets[rec.Market.Seed] = rec
	return nil
}

// Get retrieves a market's records by seed.
func (r *Registry) Get(seed uint64) (*MarketRecords, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.markets[seed]
	if !exists {
		return nil, fmt.Errorf("market %d not found", seed)
	}
	return rec, nil
}

// Remove deletes a market's records. The caller is responsible for
// verifying the market is closable (both sides empty).
func (r *Registry) Remove(seed uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[seed]; !exists {
		return fmt.Errorf("market %d not found", seed)
	}
	delete(r.markets, seed)
	return nil
}

// List returns all registered markets' records.
func (r *Registry) List() []*MarketRecords {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*MarketRecords, 0, len(r.markets))
	for _, rec := range r.markets {
		out = append(out, rec)
	}
	return out
}

// Count returns the number of registered markets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}
