package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/models"
	"github.com/gin-gonic/gin"
)

type CardCommander interface {
	Generate(context.Context, cqrs.GenerateCardCodesCommand) ([]models.CardCode, error)
	Enable(context.Context, cqrs.CardCodeCommand) (*models.CardCode, error)
	Disable(context.Context, cqrs.CardCodeCommand) (*models.CardCode, error)
	Delete(context.Context, cqrs.CardCodeCommand) error
	DeleteBatch(context.Context, cqrs.DeleteCardCodesCommand) (int64, error)
	CleanExpired(context.Context) (int64, error)
}

type CardQuerier interface {
	List(context.Context) ([]models.CardCode, error)
	Page(context.Context, cqrs.PageQuery) (*models.Page[models.CardCode], error)
}

type CardHandler struct {
	commands CardCommander
	queries  CardQuerier
}

type GenerateCardCodesRequest struct {
	Value       int    `json:"value" validate:"required,gt=0"`
	Count       int    `json:"count" validate:"required,gte=1,lte=1000"`
	ValidDays   int    `json:"validDays" validate:"gte=0"`
	Description string `json:"description" validate:"max=200"`
}

func NewCardHandler(commands CardCommander, queries CardQuerier) *CardHandler {
	return &CardHandler{commands: commands, queries: queries}
}

func (h *CardHandler) Generate(c *gin.Context) {
	var req GenerateCardCodesRequest
	if !bindJSON(c, &req) {
		return
	}

	codes, err := h.commands.Generate(c.Request.Context(), cqrs.GenerateCardCodesCommand{
		Value:       req.Value,
		Count:       req.Count,
		ValidDays:   req.ValidDays,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err, "Failed to generate card codes")
		return
	}

	c.JSON(http.StatusCreated, codes)
}

func (h *CardHandler) List(c *gin.Context) {
	codes, err := h.queries.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list card codes")
		return
	}
	c.JSON(http.StatusOK, codes)
}

func (h *CardHandler) Page(c *gin.Context) {
	page, err := h.queries.Page(c.Request.Context(), pageQuery(c))
	if err != nil {
		respondError(c, err, "Failed to list card codes")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CardHandler) Enable(c *gin.Context) {
	card, err := h.commands.Enable(c.Request.Context(), cqrs.CardCodeCommand{ID: c.Param("id")})
	if err != nil {
		respondError(c, err, "Failed to enable card code")
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) Disable(c *gin.Context) {
	card, err := h.commands.Disable(c.Request.Context(), cqrs.CardCodeCommand{ID: c.Param("id")})
	if err != nil {
		respondError(c, err, "Failed to disable card code")
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) Delete(c *gin.Context) {
	if err := h.commands.Delete(c.Request.Context(), cqrs.CardCodeCommand{ID: c.Param("id")}); err != nil {
		respondError(c, err, "Failed to delete card code")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CardHandler) DeleteBatch(c *gin.Context) {
	ids, ok := bindIDs(c)
	if !ok {
		return
	}
	deleted, err := h.commands.DeleteBatch(c.Request.Context(), cqrs.DeleteCardCodesCommand{IDs: ids})
	if err != nil {
		respondError(c, err, "Failed to delete card codes")
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: deleted})
}

func (h *CardHandler) CleanExpired(c *gin.Context) {
	deleted, err := h.commands.CleanExpired(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to clean expired card codes")
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: deleted})
}
