package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"order_cache/internal/domain"
	"order_cache/internal/infra"
)

const journalBuffer = 1000

// OrderService wraps an OrderCache with logging, metrics, match-report journaling
// and match notifications. It satisfies domain.OrderCache itself.
type OrderService struct {
	cache   domain.OrderCache
	repo    domain.MatchReportRepository // nil disables journaling
	metrics *infra.Metrics

	mu        sync.RWMutex
	listeners []func(domain.MatchReport)

	journal chan domain.MatchReport

	// background writers: journal and retention
	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

var _ domain.OrderCache = (*OrderService)(nil)

// NewOrderService creates a service over cache. repo and metrics may be nil.
func NewOrderService(cache domain.OrderCache, repo domain.MatchReportRepository, metrics *infra.Metrics) *OrderService {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &OrderService{
		cache:   cache,
		repo:    repo,
		metrics: metrics,
		journal: make(chan domain.MatchReport, journalBuffer),
		stop:    make(chan struct{}),
	}
}

// Metrics returns the service's metrics.
func (s *OrderService) Metrics() *infra.Metrics {
	return s.metrics
}

// OnMatch registers fn to be called after every matching run.
func (s *OrderService) OnMatch(fn func(domain.MatchReport)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// StartJournal starts a background goroutine writing match reports to the repository.
// On ctx cancellation or Close the queued reports are flushed before it exits.
func (s *OrderService) StartJournal(ctx context.Context) {
	if s.repo == nil {
		return
	}
	// writes outlive ctx so the flush on shutdown still reaches the repository
	writeCtx := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				s.flushJournal(writeCtx)
				return
			case <-s.stop:
				s.flushJournal(writeCtx)
				return
			case report := <-s.journal:
				s.saveReport(writeCtx, report)
			}
		}
	}()
}

func (s *OrderService) flushJournal(ctx context.Context) {
	n := 0
	for {
		select {
		case report := <-s.journal:
			s.saveReport(ctx, report)
			n++
		default:
			if n > 0 {
				slog.Info("Match journal flushed", slog.Int("reports", n))
			}
			return
		}
	}
}

func (s *OrderService) saveReport(ctx context.Context, report domain.MatchReport) {
	if err := s.repo.SaveMatchReport(ctx, &report); err != nil {
		s.metrics.RecordJournalError()
		slog.Error("Failed to journal match report",
			slog.String("security_id", report.SecurityID),
			slog.Any("error", err))
	}
}

// StartRetention deletes journaled reports older than maxAge now and then every
// interval. A non-positive maxAge keeps reports forever.
func (s *OrderService) StartRetention(ctx context.Context, maxAge, interval time.Duration) {
	if s.repo == nil || maxAge <= 0 {
		return
	}
	if interval <= 0 {
		interval = maxAge
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := s.PruneReports(ctx, time.Now().Add(-maxAge)); err != nil {
				slog.Warn("Match report retention failed", slog.Any("error", err))
			}

			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// PruneReports deletes journaled reports created before cutoff.
func (s *OrderService) PruneReports(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	n, err := s.repo.DeleteMatchReportsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Pruned match reports", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// Close stops the background writers and waits until queued reports are journaled.
// Call it before closing the repository.
func (s *OrderService) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Reports returns recent journaled reports, newest first.
func (s *OrderService) Reports(ctx context.Context, securityID string, limit int) ([]domain.MatchReport, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.FindMatchReports(ctx, securityID, limit)
}

// LatestReport returns the newest journaled report for securityID, or nil.
func (s *OrderService) LatestReport(ctx context.Context, securityID string) (*domain.MatchReport, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.GetLatestMatchReport(ctx, securityID)
}

func (s *OrderService) AddOrder(order domain.Order) {
	s.cache.AddOrder(order)
	s.metrics.RecordAdd()
	s.metrics.SetResident(s.cache.Len())
	slog.Debug("Order added",
		slog.String("order_id", order.OrderID),
		slog.String("security_id", order.SecurityID),
		slog.String("side", order.Side.String()),
		slog.Uint64("qty", order.Qty))
}

func (s *OrderService) CancelOrder(orderID string) {
	s.cache.CancelOrder(orderID)
	s.afterCancel(slog.String("order_id", orderID))
}

func (s *OrderService) CancelOrdersForUser(user string) {
	s.cache.CancelOrdersForUser(user)
	s.afterCancel(slog.String("user", user))
}

func (s *OrderService) CancelOrdersForSecIDWithMinimumQty(securityID string, minQty uint64) {
	s.cache.CancelOrdersForSecIDWithMinimumQty(securityID, minQty)
	s.afterCancel(slog.String("security_id", securityID), slog.Uint64("min_qty", minQty))
}

func (s *OrderService) afterCancel(attrs ...any) {
	s.metrics.RecordCancel()
	n := s.cache.Len()
	s.metrics.SetResident(n)
	slog.Debug("Cancel applied", append(attrs, slog.Int("resident", n))...)
}

func (s *OrderService) GetMatchingSizeForSecurity(securityID string) uint64 {
	report, _ := s.Match(securityID, domain.PolicyInPlace)
	return report.MatchedQty
}

func (s *OrderService) GetMatchingSizeForSecurity2(securityID string) uint64 {
	report, _ := s.Match(securityID, domain.PolicyExtract)
	return report.MatchedQty
}

func (s *OrderService) PeekMatchingSize(securityID string) uint64 {
	report, _ := s.Match(securityID, domain.PolicyPeek)
	return report.MatchedQty
}

// Match runs policy for securityID and returns the resulting report.
func (s *OrderService) Match(securityID string, policy domain.MatchPolicy) (domain.MatchReport, error) {
	start := time.Now()
	qty, err := policy.Match(s.cache, securityID)
	if err != nil {
		return domain.MatchReport{}, err
	}
	latency := time.Since(start)

	report := domain.MatchReport{
		SecurityID: securityID,
		Policy:     policy.String(),
		MatchedQty: qty,
		Resident:   s.cache.Len(),
		LatencyNs:  latency.Nanoseconds(),
		CreatedAt:  start,
	}

	s.metrics.RecordMatch(qty, report.LatencyNs)
	s.metrics.SetResident(report.Resident)
	slog.Info("Match completed",
		slog.String("security_id", securityID),
		slog.String("policy", report.Policy),
		slog.Uint64("matched_qty", qty),
		slog.Int("resident", report.Resident),
		slog.Duration("latency", latency))

	if s.repo != nil {
		select {
		case s.journal <- report:
		default:
			s.metrics.RecordJournalError()
			slog.Warn("Match journal full, report dropped", slog.String("security_id", securityID))
		}
	}

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(report)
	}
	return report, nil
}

func (s *OrderService) PurgeFilled() int {
	n := s.cache.PurgeFilled()
	s.metrics.RecordPurge(n)
	s.metrics.SetResident(s.cache.Len())
	if n > 0 {
		slog.Info("Purged filled orders", slog.Int("count", n))
	}
	return n
}

func (s *OrderService) GetAllOrders() []domain.Order {
	return s.cache.GetAllOrders()
}

func (s *OrderService) Len() int {
	return s.cache.Len()
}
