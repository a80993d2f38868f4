package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/command"
	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/models"
	"github.com/gin-gonic/gin"
)

// EmailCommander defines the write-side operations used by EmailHandler.
type EmailCommander interface {
	CreateForwardingRule(context.Context, cqrs.CreateRuleCommand) (*command.RuleResult, error)
	UpdateRule(context.Context, cqrs.UpdateRuleCommand) (*cloudflare.Rule, error)
	DeleteRule(context.Context, cqrs.DeleteRuleCommand) error
	CreateRecord(context.Context, cqrs.CreateEmailRecordCommand) (*models.EmailRecord, error)
	UpdateRecord(context.Context, cqrs.UpdateEmailRecordCommand) (*models.EmailRecord, error)
	DeleteRecord(context.Context, cqrs.DeleteEmailRecordCommand) error
	DeleteRecords(context.Context, cqrs.DeleteEmailRecordsCommand) (int, error)
}

// EmailQuerier defines the read-side operations used by EmailHandler.
type EmailQuerier interface {
	GetRecord(context.Context, cqrs.GetEmailRecordQuery) (*models.EmailRecordView, error)
	ListByUser(context.Context, cqrs.ListUserEmailsQuery) ([]models.EmailRecord, error)
	ListAll(context.Context) ([]models.EmailRecordView, error)
	Page(context.Context, cqrs.PageQuery) (*models.Page[models.EmailRecordView], error)
	ListRules(context.Context, cqrs.ListRulesQuery) ([]cloudflare.Rule, error)
}

// EmailHandler serves forwarding rules and the email records behind them.
type EmailHandler struct {
	commands EmailCommander
	queries  EmailQuerier
}

type CreateRuleRequest struct {
	Prefix string `json:"prefix" validate:"required,max=64,prefix"`
}

type UpdateRuleRequest struct {
	Prefix    string `json:"prefix" validate:"required,max=64,prefix"`
	ForwardTo string `json:"forwardTo" validate:"omitempty,email"`
}

type CreateEmailRecordRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	ToEmail string `json:"toEmail" validate:"required,email"`
}

type UpdateEmailRecordRequest struct {
	Email   string `json:"email" validate:"omitempty,email"`
	ToEmail string `json:"toEmail" validate:"omitempty,email"`
}

func NewEmailHandler(commands EmailCommander, queries EmailQuerier) *EmailHandler {
	return &EmailHandler{commands: commands, queries: queries}
}

// CreateRule spends one unit of the caller's quota on a new address.
func (h *EmailHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.commands.CreateForwardingRule(c.Request.Context(), cqrs.CreateRuleCommand{
		UserID: userID,
		Prefix: req.Prefix,
	})
	if err != nil {
		respondError(c, err, "Failed to create forwarding rule")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *EmailHandler) ListRules(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rules, err := h.queries.ListRules(c.Request.Context(), cqrs.ListRulesQuery{
		UserID:  userID,
		IsAdmin: middleware.IsAdmin(c),
	})
	if err != nil {
		respondError(c, err, "Failed to list forwarding rules")
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *EmailHandler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if !bindJSON(c, &req) {
		return
	}

	rule, err := h.commands.UpdateRule(c.Request.Context(), cqrs.UpdateRuleCommand{
		RuleID:    c.Param("ruleId"),
		Prefix:    req.Prefix,
		ForwardTo: req.ForwardTo,
	})
	if err != nil {
		respondError(c, err, "Failed to update forwarding rule")
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *EmailHandler) DeleteRule(c *gin.Context) {
	if err := h.commands.DeleteRule(c.Request.Context(), cqrs.DeleteRuleCommand{RuleID: c.Param("ruleId")}); err != nil {
		respondError(c, err, "Failed to delete forwarding rule")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EmailHandler) ListRecords(c *gin.Context) {
	records, err := h.queries.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list email records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *EmailHandler) PageRecords(c *gin.Context) {
	page, err := h.queries.Page(c.Request.Context(), pageQuery(c))
	if err != nil {
		respondError(c, err, "Failed to list email records")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *EmailHandler) GetRecord(c *gin.Context) {
	requestingUserID, _ := middleware.GetUserID(c)
	rec, err := h.queries.GetRecord(c.Request.Context(), cqrs.GetEmailRecordQuery{
		ID:               c.Param("id"),
		RequestingUserID: requestingUserID,
		IsAdmin:          middleware.IsAdmin(c),
	})
	if err != nil {
		respondError(c, err, "Failed to load email record")
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *EmailHandler) ListUserRecords(c *gin.Context) {
	requestingUserID, _ := middleware.GetUserID(c)
	records, err := h.queries.ListByUser(c.Request.Context(), cqrs.ListUserEmailsQuery{
		UserID:           c.Param("userId"),
		RequestingUserID: requestingUserID,
		IsAdmin:          middleware.IsAdmin(c),
	})
	if err != nil {
		respondError(c, err, "Failed to list email records")
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *EmailHandler) CreateRecord(c *gin.Context) {
	var req CreateEmailRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.commands.CreateRecord(c.Request.Context(), cqrs.CreateEmailRecordCommand{
		UserID:  req.UserID,
		Email:   req.Email,
		ToEmail: req.ToEmail,
	})
	if err != nil {
		respondError(c, err, "Failed to create email record")
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *EmailHandler) UpdateRecord(c *gin.Context) {
	var req UpdateEmailRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.commands.UpdateRecord(c.Request.Context(), cqrs.UpdateEmailRecordCommand{
		ID:      c.Param("id"),
		Email:   req.Email,
		ToEmail: req.ToEmail,
	})
	if err != nil {
		respondError(c, err, "Failed to update email record")
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *EmailHandler) DeleteRecord(c *gin.Context) {
	requestingUserID, _ := middleware.GetUserID(c)
	err := h.commands.DeleteRecord(c.Request.Context(), cqrs.DeleteEmailRecordCommand{
		ID:               c.Param("id"),
		RequestingUserID: requestingUserID,
		IsAdmin:          middleware.IsAdmin(c),
	})
	if err != nil {
		respondError(c, err, "Failed to delete email record")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EmailHandler) DeleteRecords(c *gin.Context) {
	ids, ok := bindIDs(c)
	if !ok {
		return
	}
	deleted, err := h.commands.DeleteRecords(c.Request.Context(), cqrs.DeleteEmailRecordsCommand{IDs: ids})
	if err != nil {
		respondError(c, err, "Failed to delete email records")
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: int64(deleted)})
}
