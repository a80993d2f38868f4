package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/query"
	"github.com/gin-gonic/gin"
)

// UserCommander defines the write-side operations used by UserHandler.
type UserCommander interface {
	CreateUser(context.Context, cqrs.CreateUserCommand) (*models.User, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.UserView, error)
	SetPermissions(context.Context, cqrs.SetPermissionsCommand) error
	SetFrequency(context.Context, cqrs.SetFrequencyCommand) (*models.UserView, error)
	IncrementFrequency(context.Context, cqrs.IncrementFrequencyCommand) (*models.UserView, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
	DeleteUsers(context.Context, cqrs.DeleteUsersCommand) (int64, error)
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.UserView, error)
	UserInfo(context.Context, cqrs.GetUserQuery) (*query.UserInfo, error)
	ListUsers(context.Context) ([]models.UserView, error)
	PageUsers(context.Context, cqrs.PageQuery) (*models.Page[models.UserView], error)
}

// UserHandler routes requests to the command or query service as appropriate.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Permissions string `json:"permissions" validate:"omitempty,oneof=user admin"`
	Frequency   *int   `json:"frequency" validate:"omitempty,gte=0"`
}

// UpdateUserRequest is a partial update; absent fields are left alone.
type UpdateUserRequest struct {
	Username    *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    *string `json:"password" validate:"omitempty,min=6,max=72"`
	Permissions *string `json:"permissions" validate:"omitempty,oneof=user admin"`
	Frequency   *int    `json:"frequency" validate:"omitempty,gte=0"`
}

type SetPermissionsRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Permissions string `json:"permissions" validate:"required,oneof=user admin"`
}

type SetFrequencyRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Frequency *int   `json:"frequency" validate:"required,gte=0"`
}

func NewUserHandler(commands UserCommander, queries UserQuerier) *UserHandler {
	return &UserHandler{commands: commands, queries: queries}
}

// Info returns the signed-in user with their quota summary.
func (h *UserHandler) Info(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	info, err := h.queries.UserInfo(c.Request.Context(), cqrs.GetUserQuery{UserID: userID})
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.queries.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) PageUsers(c *gin.Context) {
	page, err := h.queries.PageUsers(c.Request.Context(), pageQuery(c))
	if err != nil {
		respondError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{UserID: c.Param("id")})
	if err != nil {
		respondError(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.commands.CreateUser(c.Request.Context(), cqrs.CreateUserCommand{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Permissions: req.Permissions,
		Frequency:   req.Frequency,
	})
	if err != nil {
		respondError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	requestingUserID, _ := middleware.GetUserID(c)

	view, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID:           c.Param("id"),
		RequestingUserID: requestingUserID,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		Permissions:      req.Permissions,
		Frequency:        req.Frequency,
	})
	if err != nil {
		respondError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) SetPermissions(c *gin.Context) {
	var req SetPermissionsRequest
	if !bindJSON(c, &req) {
		return
	}
	requestingUserID, _ := middleware.GetUserID(c)

	err := h.commands.SetPermissions(c.Request.Context(), cqrs.SetPermissionsCommand{
		UserID:           req.UserID,
		RequestingUserID: requestingUserID,
		Permissions:      req.Permissions,
	})
	if err != nil {
		respondError(c, err, "Failed to update permissions")
		return
	}

	c.JSON(http.StatusOK, gin.H{"userId": req.UserID, "permissions": req.Permissions})
}

// SetFrequency is open to every signed-in user; the command service limits
// non-admins to lowering their own balance.
func (h *UserHandler) SetFrequency(c *gin.Context) {
	var req SetFrequencyRequest
	if !bindJSON(c, &req) {
		return
	}
	requestingUserID, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.commands.SetFrequency(c.Request.Context(), cqrs.SetFrequencyCommand{
		UserID:            req.UserID,
		RequestingUserID:  requestingUserID,
		RequestingIsAdmin: middleware.IsAdmin(c),
		Frequency:         *req.Frequency,
	})
	if err != nil {
		respondError(c, err, "Failed to update quota")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) IncrementFrequency(c *gin.Context) {
	view, err := h.commands.IncrementFrequency(c.Request.Context(), cqrs.IncrementFrequencyCommand{UserID: c.Param("id")})
	if err != nil {
		respondError(c, err, "Failed to update quota")
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	requestingUserID, _ := middleware.GetUserID(c)

	err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{
		UserID:           c.Param("id"),
		RequestingUserID: requestingUserID,
	})
	if err != nil {
		respondError(c, err, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) DeleteUsers(c *gin.Context) {
	ids, ok := bindIDs(c)
	if !ok {
		return
	}
	requestingUserID, _ := middleware.GetUserID(c)

	deleted, err := h.commands.DeleteUsers(c.Request.Context(), cqrs.DeleteUsersCommand{
		UserIDs:          ids,
		RequestingUserID: requestingUserID,
	})
	if err != nil {
		respondError(c, err, "Failed to delete users")
		return
	}

	c.JSON(http.StatusOK, CountResponse{Count: deleted})
}
