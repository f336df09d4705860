package services

import (
	"encoding/json"
	"time"

	"github.com/nutrilens/backend/internal/config"
	"github.com/nutrilens/backend/pkg/logger"
)

// Identity is a resolved caller: a stable opaque user id from the identity
// provider plus an informational email address.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Remaining is the quota budget left for a caller: either a finite count or
// unlimited (privileged callers). It serializes as the number or the string
// "Unlimited", which is the shape clients already consume.
type Remaining struct {
	Unlimited bool
	Count     int
}

func FiniteRemaining(n int) Remaining { return Remaining{Count: n} }
func UnlimitedRemaining() Remaining   { return Remaining{Unlimited: true} }

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return json.Marshal("Unlimited")
	}
	return json.Marshal(r.Count)
}

func (r *Remaining) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Unlimited = true
		r.Count = 0
		return nil
	}
	r.Unlimited = false
	return json.Unmarshal(data, &r.Count)
}

// Decision is the outcome of a quota evaluation.
type Decision struct {
	Admitted  bool
	Remaining Remaining
}

// QuotaService decides whether a request is admitted against the daily limit
// and, on admission, charges one unit to the caller's counters.
type QuotaService struct {
	store       *UsageStore
	dailyLimit  int
	adminUserID string

	// now is swappable so day-rollover behavior is testable.
	now func() time.Time
}

func NewQuotaService(store *UsageStore, cfg *config.Config) *QuotaService {
	return &QuotaService{
		store:       store,
		dailyLimit:  cfg.Quota.DailyLimit,
		adminUserID: cfg.Auth.AdminUserID,
		now:         time.Now,
	}
}

// DailyLimit returns the configured per-day admission limit.
func (s *QuotaService) DailyLimit() int { return s.dailyLimit }

// IsPrivileged reports whether the user id is the configured admin identity.
// An empty configured id never matches.
func (s *QuotaService) IsPrivileged(userID string) bool {
	return s.adminUserID != "" && userID == s.adminUserID
}

// Today returns the current calendar date as YYYY-MM-DD. Rollover is string
// inequality on this value, not elapsed time.
func (s *QuotaService) Today() string {
	return s.now().Format("2006-01-02")
}

// Evaluate runs the admission check for one request.
//
// Privileged callers are admitted without touching the store. For everyone
// else the check-then-increment runs under the per-user lock, so concurrent
// requests from one user serialize and can never race past the limit.
// A denial mutates nothing.
func (s *QuotaService) Evaluate(id Identity) (Decision, error) {
	if s.IsPrivileged(id.UserID) {
		return Decision{Admitted: true, Remaining: UnlimitedRemaining()}, nil
	}

	release := s.store.LockUser(id.UserID)
	defer release()

	today := s.Today()

	rec, err := s.store.Get(id.UserID)
	if err != nil {
		return Decision{}, err
	}

	effectiveDaily := 0
	if rec != nil && rec.LastRequestDate == today {
		effectiveDaily = rec.DailyRequests
	}

	if effectiveDaily >= s.dailyLimit {
		logger.Info().
			Str("user_id", id.UserID).
			Int("daily_requests", effectiveDaily).
			Int("daily_limit", s.dailyLimit).
			Msg("quota denied")
		return Decision{Admitted: false, Remaining: FiniteRemaining(0)}, nil
	}

	updated, err := s.store.IncrementUsage(id.UserID, id.Email, today)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Admitted:  true,
		Remaining: FiniteRemaining(s.dailyLimit - updated.DailyRequests),
	}, nil
}

// EffectiveDailyCount reads the counter as of today without mutating anything.
// Used by the profile endpoint, which must see the same rollover semantics as
// admission.
func (s *QuotaService) EffectiveDailyCount(userID string) (int, error) {
	rec, err := s.store.Get(userID)
	if err != nil {
		return 0, err
	}
	if rec == nil || rec.LastRequestDate != s.Today() {
		return 0, nil
	}
	return rec.DailyRequests, nil
}
