// Package custody implements the asset rail the lifecycle engine moves
// funds over: a registry of asset mints and a balance ledger keyed by
// (asset, holder). Transfers are all-or-nothing and never create value.
package custody

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientFunds is returned when a transfer source holds less
	// than the requested amount.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrUnknownAsset is returned for an asset mint that was never registered.
	ErrUnknownAsset = errors.New("unknown asset")
)

// Account identifies one token holding: an asset mint plus the holder.
type Account struct {
	Asset  common.Address `json:"asset"`
	Holder common.Address `json:"holder"`
}

// Balance is one ledger row, used for snapshot and restore.
type Balance struct {
	Account Account `json:"account"`
	Amount  uint64  `json:"amount"`
}

// Asset describes a registered mint.
type Asset struct {
	Mint     common.Address `json:"mint"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Ledger is an in-memory custody ledger. All methods are safe for
// concurrent use; a transfer observes and updates both rows under one
// lock, so partial application is impossible.
type Ledger struct {
	mu       sync.RWMutex
	assets   map[common.Address]Asset
	balances map[Account]uint64
}

// NewLedger creates an empty ledger with no assets registered.
func NewLedger() *Ledger {
	return &Ledger{
		assets:   make(map[common.Address]Asset),
		balances: make(map[Account]uint64),
	}
}

// RegisterAsset adds a mint to the ledger. Re-registering the same mint
// overwrites its metadata but not any balances.
func (l *Ledger) RegisterAsset(a Asset) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[a.Mint] = a
}

// AssetDecimals returns the decimal precision of a registered mint.
func (l *Ledger) AssetDecimals(mint common.Address) (uint8, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.assets[mint]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, mint.Hex())
	}
	return a.Decimals, nil
}

// Balance returns the amount held by an account. Missing rows read as zero.
func (l *Ledger) Balance(acct Account) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[acct]
}

// Mint credits an account out of thin air. Deposit/faucet path, not part
// of the matching flow.
func (l *Ledger) Mint(acct Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.assets[acct.Asset]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, acct.Asset.Hex())
	}
	l.balances[acct] += amount
	return nil
}

// Movement is one leg of a custody transition: amount moves from one
// holder to another within a single asset.
type Movement struct {
	From   Account `json:"from"`
	To     Account `json:"to"`
	Amount uint64  `json:"amount"`
}

// Execute applies a set of movements as one transition under the ledger
// lock. Each leg is validated against the balances left by the legs
// before it; either every leg applies or none does, so a concurrent
// writer can never observe, or cause, a half-applied transition.
func (l *Ledger) Execute(moves ...Movement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[Account]uint64, 2*len(moves))
	read := func(a Account) uint64 {
		if v, ok := staged[a]; ok {
			return v
		}
		return l.balances[a]
	}
	for _, m := range moves {
		if m.From.Asset != m.To.Asset {
			return fmt.Errorf("asset mismatch: %s vs %s", m.From.Asset.Hex(), m.To.Asset.Hex())
		}
		have := read(m.From)
		if have < m.Amount {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, have, m.Amount)
		}
		staged[m.From] = have - m.Amount
		staged[m.To] = read(m.To) + m.Amount
	}
	for acct, amt := range staged {
		l.balances[acct] = amt
	}
	return nil
}

// Transfer moves amount from one holder to another within one asset.
// Fails without any effect if the source balance is short or the
// accounts are denominated in different assets.
func (l *Ledger) Transfer(from, to Account, amount uint64) error {
	return l.Execute(Movement{From: from, To: to, Amount: amount})
}

// Snapshot returns every non-zero ledger row. Used by persistence.
func (l *Ledger) Snapshot() []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Balance, 0, len(l.balances))
	for acct, amt := range l.balances {
		if amt == 0 {
			continue
		}
		out = append(out, Balance{Account: acct, Amount: amt})
	}
	return out
}

// Assets returns all registered mints.
func (l *Ledger) Assets() []Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Asset, 0, len(l.assets))
	for _, a := range l.assets {
		out = append(out, a)
	}
	return out
}

// Restore loads assets and balances from a persisted snapshot,
// replacing current contents.
func (l *Ledger) Restore(assets []Asset, balances []Balance) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.assets = make(map[common.Address]Asset, len(assets))
	for _, a := range assets {
		l.assets[a.Mint] = a
	}
	l.balances = make(map[Account]uint64, len(balances))
	for _, b := range balances {
		l.balances[b.Account] = b.Amount
	}
}
