package domain

import (
	"time"
)

// MatchReport is the journal record of one matching run
type MatchReport struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SecurityID string    `gorm:"index" json:"security_id"`
	Policy     string    `json:"policy"`
	MatchedQty uint64    `json:"matched_qty"`
	Resident   int       `json:"resident"` // resident orders after the run
	LatencyNs  int64     `json:"latency_ns"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
