package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Pebble key schema. Prefix-based so one market's records and one
// asset's balances can be range-scanned; trade keys embed a zero-padded
// timestamp for lexicographic time ordering.
const (
	keyGlobal    = "global"
	prefixMarket = "mkt:"
	prefixBook   = "book:"
	prefixOO     = "oo:"
	prefixAsset  = "asset:"
	prefixBal    = "bal:"
	prefixTrade  = "trade:"
)

func seedBytes(seed uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seed)
	return b[:]
}

func marketKey(seed uint64) []byte {
	return append([]byte(prefixMarket), seedBytes(seed)...)
}

// bookKey: "book:{seed}:b" for bids, "book:{seed}:a" for asks.
func bookKey(seed uint64, bid bool) []byte {
	k := append([]byte(prefixBook), seedBytes(seed)...)
	if bid {
		return append(k, ':', 'b')
	}
	return append(k, ':', 'a')
}

// ooKey: "oo:{seed}:{address}"
func ooKey(seed uint64, owner common.Address) []byte {
	k := append([]byte(prefixOO), seedBytes(seed)...)
	k = append(k, ':')
	return append(k, owner.Bytes()...)
}

// ooPrefix covers every open-orders record of one market.
func ooPrefix(seed uint64) []byte {
	k := append([]byte(prefixOO), seedBytes(seed)...)
	return append(k, ':')
}

func assetKey(mint common.Address) []byte {
	return append([]byte(prefixAsset), mint.Bytes()...)
}

// balKey: "bal:{asset}:{holder}"
func balKey(asset, holder common.Address) []byte {
	k := append([]byte(prefixBal), asset.Bytes()...)
	k = append(k, ':')
	return append(k, holder.Bytes()...)
}

// tradeKey: "trade:{seed}:{timestamp}:{orderID}"
func tradeKey(seed uint64, ts int64, orderID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d:%020d", prefixTrade, seed, ts, orderID))
}

func tradePrefix(seed uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:", prefixTrade, seed))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound[:i+1]
		}
	}
	return nil // prefix was all 0xff; scan to the end
}
