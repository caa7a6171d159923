package cache

import (
	"slices"
	"sync"

	"order_cache/internal/domain"
)

// VectorCache stores resident orders in a single slice in insertion order.
type VectorCache struct {
	mu       sync.RWMutex
	orders   []domain.Order
	pending  []*cancelFilter // cancels issued while an extracted batch is out
	batchOut bool

	// matchMu serialises matching runs. Lock order: matchMu before mu.
	matchMu sync.Mutex

	opts Options
}

var _ domain.OrderCache = (*VectorCache)(nil)

// NewVectorCache creates an empty slice-backed cache.
func NewVectorCache(opts Options) *VectorCache {
	return &VectorCache{opts: opts}
}

func (c *VectorCache) AddOrder(order domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = append(c.orders, order)
}

func (c *VectorCache) CancelOrder(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.orders, func(o domain.Order) bool { return o.OrderID == orderID })
	if i >= 0 {
		c.orders = slices.Delete(c.orders, i, i+1)
		return
	}
	if c.batchOut {
		c.pending = append(c.pending, byOrderID(orderID))
	}
}

func (c *VectorCache) CancelOrdersForUser(user string) {
	c.removeWhere(byUser(user))
}

func (c *VectorCache) CancelOrdersForSecIDWithMinimumQty(securityID string, minQty uint64) {
	c.removeWhere(bySecurityMinQty(securityID, minQty))
}

func (c *VectorCache) removeWhere(f *cancelFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = slices.DeleteFunc(c.orders, func(o domain.Order) bool { return f.match(&o) })
	if c.batchOut {
		c.pending = append(c.pending, f)
	}
}

// GetMatchingSizeForSecurity crosses the security's resident orders in place.
func (c *VectorCache) GetMatchingSizeForSecurity(securityID string) uint64 {
	c.matchMu.Lock()
	defer c.matchMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	// Pointers into c.orders stay valid while mu is held.
	var batch []*domain.Order
	for i := range c.orders {
		if c.orders[i].SecurityID == securityID {
			batch = append(batch, &c.orders[i])
		}
	}
	total := cross(partitionBySide(batch))

	if c.opts.PruneFilled {
		c.orders = slices.DeleteFunc(c.orders, func(o domain.Order) bool {
			return o.SecurityID == securityID && o.Qty == 0
		})
	}
	return total
}

// GetMatchingSizeForSecurity2 extracts the security's orders, crosses them outside the
// collection lock and appends the survivors back to the cache.
func (c *VectorCache) GetMatchingSizeForSecurity2(securityID string) uint64 {
	c.matchMu.Lock()
	defer c.matchMu.Unlock()

	batch := c.extract(securityID)

	ptrs := make([]*domain.Order, len(batch))
	for i := range batch {
		ptrs[i] = &batch[i]
	}
	sells, buys := partitionBySide(ptrs)
	total := cross(sells, buys)

	c.reinsert(sells, buys)
	return total
}

func (c *VectorCache) extract(securityID string) []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	var batch []domain.Order
	kept := c.orders[:0]
	for _, o := range c.orders {
		if o.SecurityID == securityID {
			batch = append(batch, o)
		} else {
			kept = append(kept, o)
		}
	}
	clear(c.orders[len(kept):])
	c.orders = kept
	c.batchOut = true
	return batch
}

func (c *VectorCache) reinsert(sells, buys []*domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.orders = append(c.orders, survivors(sells, buys, c.pending)...)
	c.pending = nil
	c.batchOut = false
}

func (c *VectorCache) PeekMatchingSize(securityID string) uint64 {
	c.matchMu.Lock()
	defer c.matchMu.Unlock()
	c.mu.RLock()
	var batch []domain.Order
	for _, o := range c.orders {
		if o.SecurityID == securityID {
			batch = append(batch, o)
		}
	}
	c.mu.RUnlock()

	return crossCopies(batch)
}

func (c *VectorCache) PurgeFilled() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.orders)
	c.orders = slices.DeleteFunc(c.orders, func(o domain.Order) bool { return o.Qty == 0 })
	return before - len(c.orders)
}

func (c *VectorCache) GetAllOrders() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.orders)
}

func (c *VectorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.orders)
}
