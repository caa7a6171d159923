package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"order_cache/internal/domain"
)

// Storage journals match reports in SQLite. Order state itself is never persisted.
type Storage struct {
	db *gorm.DB
}

var _ domain.MatchReportRepository = (*Storage)(nil)

// NewStorage opens (or creates) the journal at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// one writer: the journal and retention goroutines share the file
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.MatchReport{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Match Report Operations
// ======================================================================================

// SaveMatchReport inserts report and fills its ID.
func (s *Storage) SaveMatchReport(ctx context.Context, report *domain.MatchReport) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(report).Error
}

// FindMatchReports returns the newest reports first. An empty securityID matches
// every security; limit <= 0 means no limit.
func (s *Storage) FindMatchReports(ctx context.Context, securityID string, limit int) ([]domain.MatchReport, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if securityID != "" {
		q = q.Where("security_id = ?", securityID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var reports []domain.MatchReport
	err := q.Find(&reports).Error
	return reports, err
}

// GetLatestMatchReport returns the newest report for a security, or nil if none exists.
func (s *Storage) GetLatestMatchReport(ctx context.Context, securityID string) (*domain.MatchReport, error) {
	var report domain.MatchReport
	err := s.db.WithContext(ctx).Order("id DESC").First(&report, "security_id = ?", securityID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// DeleteMatchReportsBefore removes reports older than cutoff and returns how many were removed.
func (s *Storage) DeleteMatchReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.MatchReport{})
	return res.RowsAffected, res.Error
}
