package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/models"
	"github.com/gin-gonic/gin"
)

type DashboardQuerier interface {
	Dashboard(context.Context) (*models.DashboardStats, error)
	Status(context.Context) (*models.SystemStatus, error)
}

type DashboardHandler struct {
	queries DashboardQuerier
}

func NewDashboardHandler(queries DashboardQuerier) *DashboardHandler {
	return &DashboardHandler{queries: queries}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	stats, err := h.queries.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load dashboard")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) Status(c *gin.Context) {
	status, err := h.queries.Status(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load system status")
		return
	}
	c.JSON(http.StatusOK, status)
}
