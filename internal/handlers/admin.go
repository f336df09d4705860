package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/pkg/response"
)

const topUsersLimit = 5

type AdminHandler struct {
	store   *services.UsageStore
	records *services.AnalysisLogService
}

func NewAdminHandler(store *services.UsageStore, records *services.AnalysisLogService) *AdminHandler {
	return &AdminHandler{store: store, records: records}
}

// AdminStats aggregates service-wide usage for the admin dashboard.
type AdminStats struct {
	TotalUsers    int64              `json:"total_users"`
	TotalAnalyses int64              `json:"total_analyses"`
	TodayAnalyses int64              `json:"today_analyses"`
	TopUsers      []services.TopUser `json:"top_users"`
}

// GetStats returns global usage aggregates.
// GET /api/admin/stats (admin only)
func (h *AdminHandler) GetStats(c *gin.Context) {
	totalUsers, err := h.store.CountUsers()
	if err != nil {
		response.ServerError(c, "failed to load stats")
		return
	}

	totalAnalyses, err := h.records.CountAll()
	if err != nil {
		response.ServerError(c, "failed to load stats")
		return
	}

	todayAnalyses, err := h.records.CountTodayAll()
	if err != nil {
		response.ServerError(c, "failed to load stats")
		return
	}

	topUsers, err := h.store.TopUsers(topUsersLimit)
	if err != nil {
		response.ServerError(c, "failed to load stats")
		return
	}

	response.Success(c, AdminStats{
		TotalUsers:    totalUsers,
		TotalAnalyses: totalAnalyses,
		TodayAnalyses: todayAnalyses,
		TopUsers:      topUsers,
	})
}
