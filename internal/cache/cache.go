// Package cache implements the resting-order cache and its crossing algorithm.
//
// Two storage strategies satisfy domain.OrderCache:
//
//   - VectorCache keeps orders in one insertion-ordered slice.
//   - IndexedCache keeps B-tree indices by residency sequence, security and order id.
//
// Both produce identical totals and identical GetAllOrders sequences for the same
// sequence of operations.
//
// Locking: a collection RWMutex guards the stored orders, and a separate match mutex
// serialises matching runs (in-place, extract and peek) against each other, so the two
// matching variants may be called concurrently. The extract variant only holds the
// collection lock while it pulls the batch out and while it puts survivors back.
// Cancellations arriving in between are replayed against the survivors.
package cache

import (
	"fmt"
	"strings"

	"order_cache/internal/domain"
)

// Strategy names a storage strategy.
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyIndexed Strategy = "indexed"
)

// ParseStrategy accepts "vector" and "indexed" (case-insensitive). Empty means vector.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyVector:
		return StrategyVector, nil
	case StrategyIndexed:
		return StrategyIndexed, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, s)
	}
}

// Options tune cache behaviour.
type Options struct {
	// PruneFilled makes the in-place variant drop the security's fully filled orders
	// before it returns. Off by default: filled orders stay resident with Qty == 0.
	PruneFilled bool
}

// New builds an empty cache with the given strategy.
func New(strategy Strategy, opts Options) (domain.OrderCache, error) {
	switch strategy {
	case StrategyVector, "":
		return NewVectorCache(opts), nil
	case StrategyIndexed:
		return NewIndexedCache(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, string(strategy))
	}
}
