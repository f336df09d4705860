package services

import (
	"fmt"
	"testing"

	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database for one test. The named DSN
// keeps the database alive across the connection pool for the test's lifetime
// without sharing state between tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&models.UsageRecord{}, &models.AnalysisRecord{}, &models.SystemLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func newTestConfig(dailyLimit int, adminUserID string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Quota.DailyLimit = dailyLimit
	cfg.Auth.AdminUserID = adminUserID
	return cfg
}
