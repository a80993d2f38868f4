package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/repository"
	"github.com/gin-gonic/gin"
)

type RechargeCommander interface {
	RedeemCard(context.Context, cqrs.RedeemCardCommand) (*repository.RechargeResult, error)
	AdminRecharge(context.Context, cqrs.AdminRechargeCommand) (*repository.RechargeResult, error)
	DeleteRecord(context.Context, cqrs.DeleteRechargeRecordCommand) error
}

type RechargeQuerier interface {
	ListByUser(context.Context, cqrs.ListRechargeRecordsQuery) ([]models.RechargeRecord, error)
	ListAll(context.Context) ([]models.RechargeRecord, error)
	Page(context.Context, cqrs.PageQuery) (*models.Page[models.RechargeRecord], error)
}

type RechargeHandler struct {
	commands RechargeCommander
	queries  RechargeQuerier
}

type RedeemCardRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

type AdminRechargeRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Amount      int    `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

// RechargeResponse returns the updated balance alongside the new record.
type RechargeResponse struct {
	User   *models.UserView      `json:"user"`
	Record models.RechargeRecord `json:"record"`
}

func NewRechargeHandler(commands RechargeCommander, queries RechargeQuerier) *RechargeHandler {
	return &RechargeHandler{commands: commands, queries: queries}
}

func (h *RechargeHandler) RedeemCard(c *gin.Context) {
	var req RedeemCardRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.commands.RedeemCard(c.Request.Context(), cqrs.RedeemCardCommand{UserID: userID, Code: req.Code})
	if err != nil {
		respondError(c, err, "Failed to redeem card code")
		return
	}

	c.JSON(http.StatusOK, RechargeResponse{User: result.User.View(), Record: result.Record})
}

func (h *RechargeHandler) AdminRecharge(c *gin.Context) {
	var req AdminRechargeRequest
	if !bindJSON(c, &req) {
		return
	}
	adminID, _ := middleware.GetUserID(c)

	result, err := h.commands.AdminRecharge(c.Request.Context(), cqrs.AdminRechargeCommand{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Description: req.Description,
		AdminID:     adminID,
		AdminName:   middleware.GetUsername(c),
	})
	if err != nil {
		respondError(c, err, "Failed to recharge user")
		return
	}

	c.JSON(http.StatusOK, RechargeResponse{User: result.User.View(), Record: result.Record})
}

// MyRecords lists the caller's own recharge history.
func (h *RechargeHandler) MyRecords(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	h.listFor(c, userID)
}

func (h *RechargeHandler) UserRecords(c *gin.Context) {
	h.listFor(c, c.Param("userId"))
}

func (h *RechargeHandler) listFor(c *gin.Context, userID string) {
	records, err := h.queries.ListByUser(c.Request.Context(), cqrs.ListRechargeRecordsQuery{UserID: userID})
	if err != nil {
		respondError(c, err, "Failed to list recharge records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *RechargeHandler) AllRecords(c *gin.Context) {
	records, err := h.queries.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list recharge records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *RechargeHandler) PageRecords(c *gin.Context) {
	page, err := h.queries.Page(c.Request.Context(), pageQuery(c))
	if err != nil {
		respondError(c, err, "Failed to list recharge records")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *RechargeHandler) DeleteRecord(c *gin.Context) {
	if err := h.commands.DeleteRecord(c.Request.Context(), cqrs.DeleteRechargeRecordCommand{ID: c.Param("id")}); err != nil {
		respondError(c, err, "Failed to delete recharge record")
		return
	}
	c.Status(http.StatusNoContent)
}
