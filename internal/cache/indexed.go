package cache

import (
	"slices"
	"sync"

	"github.com/tidwall/btree"

	"order_cache/internal/domain"
)

const btreeDegree = 32

// entry is one resident order. seq is its residency sequence: it orders GetAllOrders
// and is reassigned when an extracted order is reinserted.
type entry struct {
	seq   uint64
	order domain.Order
}

type seqIndex = btree.Map[uint64, *entry]

// IndexedCache keeps resident orders in B-tree indices so matching scans only the
// requested security and cancellation by id does not walk the whole cache.
type IndexedCache struct {
	mu         sync.RWMutex
	nextSeq    uint64
	all        *seqIndex
	bySecurity map[string]*seqIndex
	byID       map[string][]*entry // residency order
	pending    []*cancelFilter
	batchOut   bool

	// matchMu serialises matching runs. Lock order: matchMu before mu.
	matchMu sync.Mutex

	opts Options
}

var _ domain.OrderCache = (*IndexedCache)(nil)

// NewIndexedCache creates an empty security-indexed cache.
func NewIndexedCache(opts Options) *IndexedCache {
	return &IndexedCache{
		all:        btree.NewMap[uint64, *entry](btreeDegree),
		bySecurity: make(map[string]*seqIndex),
		byID:       make(map[string][]*entry),
		opts:       opts,
	}
}

// insertLocked must be called with mu held.
func (c *IndexedCache) insertLocked(order domain.Order) {
	c.nextSeq++
	e := &entry{seq: c.nextSeq, order: order}

	c.all.Set(e.seq, e)

	sec, ok := c.bySecurity[order.SecurityID]
	if !ok {
		sec = btree.NewMap[uint64, *entry](btreeDegree)
		c.bySecurity[order.SecurityID] = sec
	}
	sec.Set(e.seq, e)

	c.byID[order.OrderID] = append(c.byID[order.OrderID], e)
}

// removeLocked must be called with mu held.
func (c *IndexedCache) removeLocked(e *entry) {
	c.all.Delete(e.seq)

	if sec, ok := c.bySecurity[e.order.SecurityID]; ok {
		sec.Delete(e.seq)
		if sec.Len() == 0 {
			delete(c.bySecurity, e.order.SecurityID)
		}
	}

	ids := c.byID[e.order.OrderID]
	if i := slices.Index(ids, e); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(c.byID, e.order.OrderID)
	} else {
		c.byID[e.order.OrderID] = ids
	}
}

// collect returns the entries of idx accepted by keep, in residency order.
func collect(idx *seqIndex, keep func(*entry) bool) []*entry {
	var out []*entry
	if idx == nil {
		return out
	}
	idx.Scan(func(_ uint64, e *entry) bool {
		if keep(e) {
			out = append(out, e)
		}
		return true
	})
	return out
}

func everyEntry(*entry) bool { return true }

func (c *IndexedCache) AddOrder(order domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.insertLocked(order)
}

func (c *IndexedCache) CancelOrder(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ids := c.byID[orderID]; len(ids) > 0 {
		c.removeLocked(ids[0])
		return
	}
	if c.batchOut {
		c.pending = append(c.pending, byOrderID(orderID))
	}
}

func (c *IndexedCache) CancelOrdersForUser(user string) {
	f := byUser(user)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range collect(c.all, func(e *entry) bool { return f.match(&e.order) }) {
		c.removeLocked(e)
	}
	if c.batchOut {
		c.pending = append(c.pending, f)
	}
}

func (c *IndexedCache) CancelOrdersForSecIDWithMinimumQty(securityID string, minQty uint64) {
	f := bySecurityMinQty(securityID, minQty)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range collect(c.bySecurity[securityID], func(e *entry) bool { return f.match(&e.order) }) {
		c.removeLocked(e)
	}
	if c.batchOut {
		c.pending = append(c.pending, f)
	}
}

func (c *IndexedCache) GetMatchingSizeForSecurity(securityID string) uint64 {
	c.matchMu.Lock()
	defer c.matchMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := collect(c.bySecurity[securityID], everyEntry)
	batch := make([]*domain.Order, len(entries))
	for i, e := range entries {
		batch[i] = &e.order
	}
	total := cross(partitionBySide(batch))

	if c.opts.PruneFilled {
		for _, e := range entries {
			if e.order.Qty == 0 {
				c.removeLocked(e)
			}
		}
	}
	return total
}

func (c *IndexedCache) GetMatchingSizeForSecurity2(securityID string) uint64 {
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

func (c *IndexedCache) extract(securityID string) []domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := collect(c.bySecurity[securityID], everyEntry)
	batch := make([]domain.Order, len(entries))
	for i, e := range entries {
		batch[i] = e.order
		c.removeLocked(e)
	}
	c.batchOut = true
	return batch
}

func (c *IndexedCache) reinsert(sells, buys []*domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, o := range survivors(sells, buys, c.pending) {
		c.insertLocked(o)
	}
	c.pending = nil
	c.batchOut = false
}

func (c *IndexedCache) PeekMatchingSize(securityID string) uint64 {
	c.matchMu.Lock()
	defer c.matchMu.Unlock()

	c.mu.RLock()
	entries := collect(c.bySecurity[securityID], everyEntry)
	batch := make([]domain.Order, len(entries))
	for i, e := range entries {
		batch[i] = e.order
	}
	c.mu.RUnlock()

	return crossCopies(batch)
}

func (c *IndexedCache) PurgeFilled() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	filled := collect(c.all, func(e *entry) bool { return e.order.Qty == 0 })
	for _, e := range filled {
		c.removeLocked(e)
	}
	return len(filled)
}

func (c *IndexedCache) GetAllOrders() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Order, 0, c.all.Len())
	c.all.Scan(func(_ uint64, e *entry) bool {
		out = append(out, e.order)
		return true
	})
	return out
}

func (c *IndexedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.all.Len()
}
