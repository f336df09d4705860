package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nutrilens/backend/internal/models"
	"github.com/nutrilens/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	storageRetryCount    = 3
	storageRetryInterval = 50 * time.Millisecond
)

// UsageStore is the durable mapping from user id to UsageRecord. All counter
// mutation goes through IncrementUsage; nothing else writes user_usage rows.
//
// Callers that need a read-check-increment sequence to be atomic take the
// per-user lock via LockUser. Locks are striped per user id so requests from
// different users never block each other.
type UsageStore struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUsageStore(db *gorm.DB) *UsageStore {
	return &UsageStore{
		db:    db,
		locks: make(map[string]*userLock),
	}
}

// LockUser acquires the mutex for one user id and returns the release func.
// Entries are reference-counted and removed when the last holder releases,
// so the map does not grow with the lifetime user population.
func (s *UsageStore) LockUser(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

// Get returns the usage record for a user, or (nil, nil) when none exists.
func (s *UsageStore) Get(userID string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := s.withRetry(func() error {
		res := s.db.Where("user_id = ?", userID).First(&rec)
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return res.Error
	})
	if err != nil {
		return nil, err
	}
	if rec.UserID == "" {
		return nil, nil
	}
	return &rec, nil
}

// IncrementUsage atomically records one admitted request for a user on the
// given date (YYYY-MM-DD). Exactly one of three things happens:
//
//   - no row yet: a row is created with daily=1, total=1;
//   - row from another date: daily resets to 1, date moves to today;
//   - row from today: daily and total both increase by one.
//
// The increments use SQL expressions inside a transaction, so two concurrent
// calls for the same user can never lose an update even without LockUser.
func (s *UsageStore) IncrementUsage(userID, email, today string) (*models.UsageRecord, error) {
	var rec models.UsageRecord

	err := s.withRetry(func() error {
		return s.db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("user_id = ?", userID).First(&rec).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rec = models.UsageRecord{
					UserID:          userID,
					Email:           email,
					DailyRequests:   1,
					LastRequestDate: today,
					TotalRequests:   1,
				}
				return tx.Create(&rec).Error
			}
			if err != nil {
				return err
			}

			updates := map[string]interface{}{
				"total_requests":    gorm.Expr("total_requests + 1"),
				"last_request_date": today,
			}
			if rec.LastRequestDate == today {
				updates["daily_requests"] = gorm.Expr("daily_requests + 1")
			} else {
				// Stale row from a previous date: the counter restarts,
				// no matter how many days have passed.
				updates["daily_requests"] = 1
			}

			if err := tx.Model(&models.UsageRecord{}).
				Where("user_id = ?", userID).
				Updates(updates).Error; err != nil {
				return err
			}

			return tx.Where("user_id = ?", userID).First(&rec).Error
		})
	})
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// CountUsers returns the number of users that have made at least one request.
func (s *UsageStore) CountUsers() (int64, error) {
	var count int64
	err := s.withRetry(func() error {
		return s.db.Model(&models.UsageRecord{}).Count(&count).Error
	})
	return count, err
}

// TopUser is one row of the by-total-requests leaderboard.
type TopUser struct {
	Email         string `json:"email"`
	TotalRequests int    `json:"requests"`
}

// TopUsers returns the heaviest users by lifetime request count.
func (s *UsageStore) TopUsers(limit int) ([]TopUser, error) {
	var users []TopUser
	err := s.withRetry(func() error {
		return s.db.Model(&models.UsageRecord{}).
			Select("email, total_requests").
			Order("total_requests DESC").
			Limit(limit).
			Scan(&users).Error
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []TopUser{}
	}
	return users, nil
}

// withRetry runs op up to storageRetryCount times, backing off between
// attempts. Transient contention (locked sqlite file, serialization failure)
// usually clears within a retry; anything that survives all attempts
// surfaces as ErrStorageUnavailable.
func (s *UsageStore) withRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= storageRetryCount; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt < storageRetryCount {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("usage store operation failed, retrying")
			time.Sleep(storageRetryInterval)
		}
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
