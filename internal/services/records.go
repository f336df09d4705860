package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nutrilens/backend/internal/models"
	"gorm.io/gorm"
)

// AnalysisLogService is the append-only log of completed analyses. Records
// are written once, after admission and a successful model call, and never
// updated or deleted by the request path.
type AnalysisLogService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAnalysisLogService(db *gorm.DB) *AnalysisLogService {
	return &AnalysisLogService{db: db, now: time.Now}
}

// Append stores a completed analysis and returns its generated id.
func (s *AnalysisLogService) Append(userID, resultText string) (string, error) {
	rec := models.AnalysisRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		AnalysisResult: resultText,
		CreatedAt:      s.now(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return rec.ID, nil
}

// Get returns one record by id, or (nil, nil) when it does not exist.
func (s *AnalysisLogService) Get(id string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	err := s.db.Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &rec, nil
}

// ListRecent returns a user's analyses, most recent first, at most limit rows.
func (s *AnalysisLogService) ListRecent(userID string, limit int) ([]models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var recs []models.AnalysisRecord
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return recs, nil
}

// CountToday returns how many analyses a user completed today.
func (s *AnalysisLogService) CountToday(userID string) (int64, error) {
	var count int64
	err := s.todayRange(s.db.Model(&models.AnalysisRecord{}).Where("user_id = ?", userID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// CountAll returns the total number of analyses across all users.
func (s *AnalysisLogService) CountAll() (int64, error) {
	var count int64
	if err := s.db.Model(&models.AnalysisRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// CountTodayAll returns the number of analyses completed today across all users.
func (s *AnalysisLogService) CountTodayAll() (int64, error) {
	var count int64
	err := s.todayRange(s.db.Model(&models.AnalysisRecord{})).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

// todayRange restricts a query to records created on the current calendar
// date. A half-open [midnight, midnight+24h) range keeps the comparison
// portable across sqlite, mysql and postgres date handling.
func (s *AnalysisLogService) todayRange(q *gorm.DB) *gorm.DB {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return q.Where("created_at >= ? AND created_at < ?", start, start.Add(24*time.Hour))
}
