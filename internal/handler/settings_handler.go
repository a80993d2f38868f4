package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/models"
	"github.com/gin-gonic/gin"
)

type SettingsCommander interface {
	Update(context.Context, cqrs.UpdateSettingsCommand) (*models.SystemConfig, error)
	Reset(context.Context) (*models.SystemConfig, error)
}

type SettingsQuerier interface {
	Get(context.Context) (*models.SystemConfig, error)
	Public(context.Context) (*models.PublicSettings, error)
}

type SettingsHandler struct {
	commands SettingsCommander
	queries  SettingsQuerier
}

func NewSettingsHandler(commands SettingsCommander, queries SettingsQuerier) *SettingsHandler {
	return &SettingsHandler{commands: commands, queries: queries}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.queries.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Public needs no authentication.
func (h *SettingsHandler) Public(c *gin.Context) {
	public, err := h.queries.Public(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, public)
}

// Update takes the full configuration document; SystemConfig carries the
// validation tags.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.SystemConfig
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.commands.Update(c.Request.Context(), cqrs.UpdateSettingsCommand{Config: req})
	if err != nil {
		respondError(c, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *SettingsHandler) Reset(c *gin.Context) {
	cfg, err := h.commands.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to reset settings")
		return
	}
	c.JSON(http.StatusOK, cfg)
}
