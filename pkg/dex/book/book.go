// Package book implements one side of a market's central limit order book
// as a capacity-bounded array of resting orders kept in price-time order.
package book

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrOrderNotFound is returned when an order id is absent from the side.
	ErrOrderNotFound = errors.New("order not found in book")

	// ErrBookFull is returned when an insert would exceed the side's capacity.
	ErrBookFull = errors.New("book is at capacity")

	// ErrPartialExceedsOrder is returned when a partial decrease would consume
	// the whole order. Full consumption must go through Remove.
	ErrPartialExceedsOrder = errors.New("partial amount exceeds order size")
)

// Side identifies which half of the book an order rests on.
type Side uint8

const (
	Bid Side = iota // buy, escrows the quote asset
	Ask             // sell, escrows the base asset
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Order is a resting limit order. Quantity is denominated in the side's
// escrowed asset: quote units on the bid side, base units on the ask side.
// Price is quote smallest units per base unit, at quote-decimal scale.
type Order struct {
	ID        uint64         `json:"id"`
	Owner     common.Address `json:"owner"`
	Price     uint64         `json:"price"`
	Quantity  uint64         `json:"quantity"`
	CreatedAt int64          `json:"createdAt"` // unix seconds
}

// Book is one side of a market. Orders is sorted best-first: descending
// price for bids, ascending for asks, FIFO within a price level.
// OrdersCount always equals len(Orders); Capacity is fixed at creation,
// persisted with the record, and the backing array never grows.
type Book struct {
	Side        Side    `json:"side"`
	MarketSeed  uint64  `json:"marketSeed"`
	OrdersCount uint64  `json:"ordersCount"`
	Capacity    uint64  `json:"capacity"`
	Orders      []Order `json:"orders"`
}

// New creates an empty book side with a fixed capacity.
func New(side Side, marketSeed, capacity uint64) *Book {
	return &Book{
		Side:       side,
		MarketSeed: marketSeed,
		Capacity:   capacity,
		Orders:     make([]Order, 0, capacity),
	}
}

// Reanchor rebuilds the backing array of a book decoded from storage to
// its persisted capacity, so later inserts stay within the fixed bound.
func (b *Book) Reanchor() {
	if b.Capacity < uint64(len(b.Orders)) {
		b.Capacity = uint64(len(b.Orders))
	}
	orders := make([]Order, len(b.Orders), b.Capacity)
	copy(orders, b.Orders)
	b.Orders = orders
}

// Len returns the number of live orders.
func (b *Book) Len() int { return len(b.Orders) }

// Full reports whether the side has reached capacity.
func (b *Book) Full() bool { return uint64(len(b.Orders)) >= b.Capacity }

// Insert places a new order at its price-time position: bids before the
// first strictly lower price, asks before the first strictly higher, so
// equal-priced orders keep arrival order. OrdersCount moves in lockstep
// with the slice length.
func (b *Book) Insert(o Order) error {
	if b.Full() {
		return ErrBookFull
	}

	idx := len(b.Orders)
	for i, rest := range b.Orders {
		if b.ranksAbove(o.Price, rest.Price) {
			idx = i
			break
		}
	}

	b.Orders = append(b.Orders, Order{})
	copy(b.Orders[idx+1:], b.Orders[idx:])
	b.Orders[idx] = o
	b.OrdersCount++
	return nil
}

// ranksAbove reports whether a new order at price p strictly outranks a
// resting order at price rest.
func (b *Book) ranksAbove(p, rest uint64) bool {
	if b.Side == Bid {
		return p > rest
	}
	return p < rest
}

// Get returns a snapshot of the order with the given id.
func (b *Book) Get(orderID uint64) (Order, bool) {
	for _, o := range b.Orders {
		if o.ID == orderID {
			return o, true
		}
	}
	return Order{}, false
}

// Remove detaches the order with the given id and returns its snapshot.
// OrdersCount is decremented to match the new length.
func (b *Book) Remove(orderID uint64) (Order, error) {
	for i, o := range b.Orders {
		if o.ID == orderID {
			b.Orders = append(b.Orders[:i], b.Orders[i+1:]...)
			b.OrdersCount--
			return o, nil
		}
	}
	return Order{}, ErrOrderNotFound
}

// DecreaseQuantity reduces a resting order's quantity in place for a
// partial fill and returns the order as reduced. The amount must be
// strictly less than the resting quantity; OrdersCount is unchanged.
func (b *Book) DecreaseQuantity(orderID, amount uint64) (Order, error) {
	for i := range b.Orders {
		if b.Orders[i].ID == orderID {
			if amount >= b.Orders[i].Quantity {
				return Order{}, ErrPartialExceedsOrder
			}
			b.Orders[i].Quantity -= amount
			return b.Orders[i], nil
		}
	}
	return Order{}, ErrOrderNotFound
}

// Best returns the top-of-book order without removing it.
func (b *Book) Best() (Order, bool) {
	if len(b.Orders) == 0 {
		return Order{}, false
	}
	return b.Orders[0], true
}

// Snapshot returns a copy of the resting orders, best first.
func (b *Book) Snapshot() []Order {
	out := make([]Order, len(b.Orders))
	copy(out, b.Orders)
	return out
}

// Validate checks the count/length and ordering invariants.
func (b *Book) Validate() error {
	if b.OrdersCount != uint64(len(b.Orders)) {
		return errors.New("orders count diverged from live entries")
	}
	for i := 1; i < len(b.Orders); i++ {
		prev, cur := b.Orders[i-1], b.Orders[i]
		if b.ranksAbove(cur.Price, prev.Price) {
			return errors.New("book out of price order")
		}
		if cur.Price == prev.Price && cur.ID < prev.ID {
			return errors.New("equal-price orders out of arrival order")
		}
	}
	return nil
}
