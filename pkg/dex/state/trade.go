package state

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hybriddex/hybriddex/pkg/dex/book"
)

// Trade records one fill: a taker consuming all or part of a resting
// order. Quantity is in the resting side's escrowed asset;
// CounterAmount is what the taker paid the maker in the opposite asset.
type Trade struct {
	MarketSeed    uint64         `json:"marketSeed"`
	OrderID       uint64         `json:"orderId"`
	RestingSide   book.Side      `json:"restingSide"`
	Maker         common.Address `json:"maker"`
	Taker         common.Address `json:"taker"`
	Price         uint64         `json:"price"`
	Quantity      uint64         `json:"quantity"`
	CounterAmount uint64         `json:"counterAmount"`
	Partial       bool           `json:"partial"`
	ExecutedAt    int64          `json:"executedAt"` // unix seconds
}
