package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/middleware"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/internal/utils"
	"github.com/nutrilens/backend/pkg/response"
)

const historyPreviewLen = 100

type UserHandler struct {
	store   *services.UsageStore
	quota   *services.QuotaService
	records *services.AnalysisLogService
}

func NewUserHandler(store *services.UsageStore, quota *services.QuotaService, records *services.AnalysisLogService) *UserHandler {
	return &UserHandler{store: store, quota: quota, records: records}
}

// UserProfile is the usage summary for the current caller.
type UserProfile struct {
	UserID            string             `json:"user_id"`
	Email             string             `json:"email"`
	IsAdmin           bool               `json:"is_admin"`
	DailyRequestsUsed int                `json:"daily_requests_used"`
	DailyLimit        services.Remaining `json:"daily_limit"`
	RemainingRequests services.Remaining `json:"remaining_requests"`
	TotalRequests     int                `json:"total_requests"`
	TodayAnalyses     int64              `json:"today_analyses"`
	MemberSince       string             `json:"member_since"`
}

// GetProfile returns the caller's usage statistics.
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	id := middleware.GetIdentity(c)
	isAdmin := middleware.IsAdmin(c)

	dailyUsed, err := h.quota.EffectiveDailyCount(id.UserID)
	if err != nil {
		response.ServerError(c, "failed to load usage")
		return
	}

	totalRequests := 0
	memberSince := time.Now()
	if rec, err := h.store.Get(id.UserID); err == nil && rec != nil {
		totalRequests = rec.TotalRequests
		memberSince = rec.CreatedAt
	}

	todayAnalyses, err := h.records.CountToday(id.UserID)
	if err != nil {
		response.ServerError(c, "failed to load usage")
		return
	}

	limit := services.FiniteRemaining(h.quota.DailyLimit())
	remaining := services.FiniteRemaining(h.quota.DailyLimit() - dailyUsed)
	if isAdmin {
		limit = services.UnlimitedRemaining()
		remaining = services.UnlimitedRemaining()
	}

	response.Success(c, UserProfile{
		UserID:            id.UserID,
		Email:             id.Email,
		IsAdmin:           isAdmin,
		DailyRequestsUsed: dailyUsed,
		DailyLimit:        limit,
		RemainingRequests: remaining,
		TotalRequests:     totalRequests,
		TodayAnalyses:     todayAnalyses,
		MemberSince:       memberSince.Format(time.RFC3339),
	})
}

// HistoryEntry is one row of the caller's analysis history.
type HistoryEntry struct {
	ID        string `json:"id"`
	Preview   string `json:"preview"`
	CreatedAt string `json:"created_at"`
}

// GetHistory returns the caller's recent analyses with truncated previews.
// GET /api/user/history?limit=10
func (h *UserHandler) GetHistory(c *gin.Context) {
	id := middleware.GetIdentity(c)

	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	recs, err := h.records.ListRecent(id.UserID, limit)
	if err != nil {
		response.ServerError(c, "failed to load history")
		return
	}

	entries := make([]HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, HistoryEntry{
			ID:        rec.ID,
			Preview:   utils.TruncatePreview(rec.AnalysisResult, historyPreviewLen),
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}

	response.Success(c, entries)
}
