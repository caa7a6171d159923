package domain

import (
	"context"
	"time"
)

// OrderCache holds resting orders and computes how much of a security can cross
// between buy and sell orders of different companies.
//
// Implementations are safe for concurrent use. Cancellation and matching never fail:
// an unknown id, user or security is a no-op (or a zero total).
type OrderCache interface {
	// AddOrder stores a copy of order at the end of the cache. No uniqueness check.
	AddOrder(order Order)

	// CancelOrder removes the first resident order with this id, if any.
	CancelOrder(orderID string)

	// CancelOrdersForUser removes every order of user.
	CancelOrdersForUser(user string)

	// CancelOrdersForSecIDWithMinimumQty removes every order of securityID with qty >= minQty.
	CancelOrdersForSecIDWithMinimumQty(securityID string, minQty uint64)

	// GetMatchingSizeForSecurity crosses the security's orders in place.
	// Quantities are decremented on the resident orders; fully filled orders stay
	// resident with Qty == 0 unless the cache was built to prune them.
	GetMatchingSizeForSecurity(securityID string) uint64

	// GetMatchingSizeForSecurity2 extracts the security's orders, crosses them and
	// reinserts only the survivors (Qty > 0) at the end of the cache.
	GetMatchingSizeForSecurity2(securityID string) uint64

	// PeekMatchingSize computes the same total on copies without touching the cache.
	PeekMatchingSize(securityID string) uint64

	// PurgeFilled removes resident orders with Qty == 0 and returns how many were removed.
	PurgeFilled() int

	// GetAllOrders returns a snapshot copy in cache order.
	GetAllOrders() []Order

	// Len returns the number of resident orders.
	Len() int
}

// MatchReportRepository records the outcome of matching runs.
type MatchReportRepository interface {
	SaveMatchReport(ctx context.Context, report *MatchReport) error
	FindMatchReports(ctx context.Context, securityID string, limit int) ([]MatchReport, error)
	// GetLatestMatchReport returns nil, nil when the security has no report.
	GetLatestMatchReport(ctx context.Context, securityID string) (*MatchReport, error)
	DeleteMatchReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
