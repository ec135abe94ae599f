package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
)

type StatsHandler struct {
	statsService service.StatsService
	logger       *logger.Logger
}

func NewStatsHandler(statsService service.StatsService, logger *logger.Logger) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		logger:       logger,
	}
}

// GetDashboardStats godoc
// @Summary Dashboard totals for the caller
// @Tags Stats
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.DashboardStatsResponse
// @Router /stats [get]
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	resp, err := h.statsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetRecentActivity godoc
// @Summary Newest invoices and transactions of the caller
// @Tags Stats
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.RecentActivityResponse
// @Router /stats/activity [get]
func (h *StatsHandler) GetRecentActivity(c *gin.Context) {
	resp, err := h.statsService.GetRecentActivity(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
