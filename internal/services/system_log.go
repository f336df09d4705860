package services

import (
	"encoding/json"
	"time"

	"github.com/nutrilens/backend/internal/models"
	"github.com/nutrilens/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var globalLogDB *gorm.DB

// InitSystemLogger wires the DB-backed operational log. Writes are best
// effort: before initialization (and in unit tests) they are dropped.
func InitSystemLogger(db *gorm.DB) {
	globalLogDB = db
}

func LogInfo(module, action, message, userID, ip, userAgent string, extra interface{}) {
	writeLog("info", module, action, message, userID, ip, userAgent, extra)
}

func LogWarning(module, action, message, userID, ip, userAgent string, extra interface{}) {
	writeLog("warning", module, action, message, userID, ip, userAgent, extra)
}

func LogError(module, action, message, userID, ip, userAgent string, extra interface{}) {
	writeLog("error", module, action, message, userID, ip, userAgent, extra)
}

func writeLog(level, module, action, message, userID, ip, userAgent string, extra interface{}) {
	if globalLogDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	globalLogDB.Create(entry)
}

// SystemLogService queries and prunes the operational log.
type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

// Recent returns the latest entries, optionally filtered by level.
func (s *SystemLogService) Recent(level string, limit int) ([]models.SystemLog, error) {
	if limit <= 0 {
		limit = 50
	}
	query := s.db.Model(&models.SystemLog{})
	if level != "" {
		query = query.Where("level = ?", level)
	}
	var entries []models.SystemLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// CleanupOlderThan deletes entries past the retention window and returns how
// many rows were removed.
func (s *SystemLogService) CleanupOlderThan(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// LogCleanupScheduler prunes old system log entries on a daily cron schedule.
type LogCleanupScheduler struct {
	service       *SystemLogService
	retentionDays int
	cronScheduler *cron.Cron
}

func NewLogCleanupScheduler(db *gorm.DB, retentionDays int) *LogCleanupScheduler {
	return &LogCleanupScheduler{
		service:       NewSystemLogService(db),
		retentionDays: retentionDays,
	}
}

// Start runs one cleanup immediately, then daily at 03:00.
func (s *LogCleanupScheduler) Start() {
	if s.retentionDays <= 0 {
		logger.Info().Msg("system log cleanup disabled (retention_days <= 0)")
		return
	}

	s.runCleanup()

	s.cronScheduler = cron.New()
	if _, err := s.cronScheduler.AddFunc("0 3 * * *", s.runCleanup); err != nil {
		logger.Error().Err(err).Msg("failed to schedule system log cleanup")
		return
	}
	s.cronScheduler.Start()
	logger.Info().Int("retention_days", s.retentionDays).Msg("system log cleanup scheduler started")
}

func (s *LogCleanupScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
	}
}

func (s *LogCleanupScheduler) runCleanup() {
	deleted, err := s.service.CleanupOlderThan(s.retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("system log cleanup failed")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", s.retentionDays).Msg("system logs pruned")
	}
}
