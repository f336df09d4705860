package models

import "time"

// UsageRecord tracks per-user request counters, one row per user.
//
// DailyRequests is only meaningful relative to LastRequestDate: when the
// stored date is not today the stored count is stale and reads as zero. The
// row is reinterpreted at read time, never eagerly reset. TotalRequests only
// ever grows, by exactly one per admitted request.
type UsageRecord struct {
	UserID          string    `gorm:"primaryKey;size:191" json:"user_id"`
	Email           string    `gorm:"size:255" json:"email"`
	DailyRequests   int       `gorm:"not null;default:0" json:"daily_requests"`
	LastRequestDate string    `gorm:"size:10" json:"last_request_date"` // YYYY-MM-DD
	TotalRequests   int       `gorm:"not null;default:0" json:"total_requests"`
	CreatedAt       time.Time `json:"created_at"`
}

func (UsageRecord) TableName() string { return "user_usage" }
