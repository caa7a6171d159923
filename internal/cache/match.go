package cache

import "order_cache/internal/domain"

// partitionBySide splits orders into sells and buys, keeping each side in input order.
func partitionBySide(orders []*domain.Order) (sells, buys []*domain.Order) {
	for _, o := range orders {
		if o.IsSell() {
			sells = append(sells, o)
		} else {
			buys = append(buys, o)
		}
	}
	return sells, buys
}

// cross runs the greedy fill: each sell, in order, takes from the buys in order until
// it is exhausted. Same-company pairs never trade. Quantities are decremented in place.
func cross(sells, buys []*domain.Order) uint64 {
	if len(sells) == 0 || len(buys) == 0 {
		return 0
	}

	var total uint64
	for _, sell := range sells {
		for _, buy := range buys {
			if sell.Company == buy.Company {
				continue
			}
			qty := min(sell.Qty, buy.Qty)
			sell.Qty -= qty
			buy.Qty -= qty
			total += qty

			if sell.Qty == 0 {
				break
			}
		}
	}
	return total
}

// crossCopies crosses private copies of orders and leaves the inputs untouched.
func crossCopies(orders []domain.Order) uint64 {
	ptrs := make([]*domain.Order, len(orders))
	for i := range orders {
		o := orders[i]
		ptrs[i] = &o
	}
	return cross(partitionBySide(ptrs))
}

// cancelFilter is a cancellation issued while an extracted batch was out of the cache.
// It is replayed against the batch survivors on reinsertion.
type cancelFilter struct {
	match func(o *domain.Order) bool
	once  bool // consumes at most one order (cancel by id)
	used  bool
}

func (f *cancelFilter) drop(o *domain.Order) bool {
	if f.once && f.used {
		return false
	}
	if !f.match(o) {
		return false
	}
	f.used = true
	return true
}

func byOrderID(orderID string) *cancelFilter {
	return &cancelFilter{
		match: func(o *domain.Order) bool { return o.OrderID == orderID },
		once:  true,
	}
}

func byUser(user string) *cancelFilter {
	return &cancelFilter{
		match: func(o *domain.Order) bool { return o.User == user },
	}
}

func bySecurityMinQty(securityID string, minQty uint64) *cancelFilter {
	return &cancelFilter{
		match: func(o *domain.Order) bool { return o.SecurityID == securityID && o.Qty >= minQty },
	}
}

// survivors returns the batch orders that still have quantity and were not cancelled
// while in flight. Sells come first, then buys, each in scan order.
func survivors(sells, buys []*domain.Order, filters []*cancelFilter) []domain.Order {
	out := make([]domain.Order, 0, len(sells)+len(buys))
	for _, side := range [][]*domain.Order{sells, buys} {
	next:
		for _, o := range side {
			if o.Qty == 0 {
				continue
			}
			for _, f := range filters {
				if f.drop(o) {
					continue next
				}
			}
			out = append(out, *o)
		}
	}
	return out
}
