// Package state holds the ledger record types mutated by the order
// lifecycle engine: the process-wide GlobalState, per-market Market
// records, and per-(user, market) OpenOrders records.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNameTooLong is returned when a market name exceeds the fixed storage width.
var ErrNameTooLong = errors.New("name exceeds storage width")

// MarketNameLen is the fixed storage width of a market name.
const MarketNameLen = 16

// GlobalState is the single process-wide configuration record. It is
// created once by Initialize and mutated in place by admin operations;
// there is no implicit default construction once initialized.
type GlobalState struct {
	Admin            common.Address `json:"admin"`
	MaxOrdersPerUser uint64         `json:"maxOrdersPerUser"`
	MaxOrdersPerBook uint64         `json:"maxOrdersPerBook"`
	TotalMarketCount uint64         `json:"totalMarketCount"`
	MarketSeqNum     uint64         `json:"marketSeqNum"`
}

// Market describes one two-asset market. OrderSeqNum is the next order
// id to assign and only ever increases; the volume fields are lifetime
// counters, not balances.
type Market struct {
	Seed             uint64              `json:"seed"`
	Name             [MarketNameLen]byte `json:"name"`
	Authority        common.Address      `json:"authority"`
	BaseAsset        common.Address      `json:"baseAsset"`
	QuoteAsset       common.Address      `json:"quoteAsset"`
	BaseDecimal      uint8               `json:"baseDecimal"`
	QuoteDecimal     uint8               `json:"quoteDecimal"`
	CreatedAt        int64               `json:"createdAt"`
	BaseTotalVolume  uint64              `json:"baseTotalVolume"`
	QuoteTotalVolume uint64              `json:"quoteTotalVolume"`
	OrderSeqNum      uint64              `json:"orderSeqNum"`
}

// Label returns the market name with storage padding stripped.
func (m *Market) Label() string {
	return string(bytes.TrimRight(m.Name[:], "\x00"))
}

// FillName packs a market name into its fixed storage width.
func FillName(name string) ([MarketNameLen]byte, error) {
	var out [MarketNameLen]byte
	if len(name) > MarketNameLen {
		return out, ErrNameTooLong
	}
	copy(out[:], name)
	return out, nil
}

// OpenOrders tracks one user's standing on one market: how many orders
// they have resting across both sides, how much of each asset those
// orders hold in escrow, and lifetime fill volume as maker and taker.
type OpenOrders struct {
	Owner             common.Address `json:"owner"`
	MarketSeed        uint64         `json:"marketSeed"`
	OpenedOrdersCount uint64         `json:"openedOrdersCount"`
	BaseDepositTotal  uint64         `json:"baseDepositTotal"`
	QuoteDepositTotal uint64         `json:"quoteDepositTotal"`
	BaseTotalVolume   uint64         `json:"baseTotalVolume"`
	QuoteTotalVolume  uint64         `json:"quoteTotalVolume"`
}

// VaultAuthority derives the deterministic custody identity holding a
// market's escrowed funds. Nothing else ever holds the preimage, so the
// engine is the only signer for vault-sourced transfers.
func VaultAuthority(marketSeed uint64) common.Address {
	var seed [8]byte
	binary.LittleEndian.PutUint64(seed[:], marketSeed)
	sum := crypto.Keccak256([]byte("market-vault"), seed[:])
	return common.BytesToAddress(sum[12:])
}
