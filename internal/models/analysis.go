package models

import "time"

// AnalysisRecord is one completed nutrition analysis. Records are append-only:
// written once after a successful model call, never updated or deleted by the
// request path. The uploaded image itself is not stored.
type AnalysisRecord struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"` // UUID, generated at write time
	UserID         string    `gorm:"size:191;index:idx_analyses_user_created" json:"user_id"`
	AnalysisResult string    `gorm:"type:text" json:"analysis_result"`
	CreatedAt      time.Time `gorm:"index:idx_analyses_user_created" json:"created_at"`
}

func (AnalysisRecord) TableName() string { return "analyses" }
