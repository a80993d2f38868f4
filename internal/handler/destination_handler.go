package handler

import (
	"context"
	"net/http"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/gin-gonic/gin"
)

// DestinationManager is satisfied by *cloudflare.Client.
type DestinationManager interface {
	ListDestinationAddresses(context.Context) ([]cloudflare.DestinationAddress, error)
	CreateDestinationAddress(context.Context, string) (*cloudflare.DestinationAddress, error)
	GetDestinationAddress(context.Context, string) (*cloudflare.DestinationAddress, error)
	DeleteDestinationAddress(context.Context, string) error
	VerifyToken(context.Context) (*cloudflare.TokenCheck, error)
}

// DestinationHandler talks to Cloudflare directly; there is no local state.
type DestinationHandler struct {
	cf DestinationManager
}

type CreateDestinationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func NewDestinationHandler(cf DestinationManager) *DestinationHandler {
	return &DestinationHandler{cf: cf}
}

func (h *DestinationHandler) List(c *gin.Context) {
	addresses, err := h.cf.ListDestinationAddresses(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list destination addresses")
		return
	}
	c.JSON(http.StatusOK, addresses)
}

func (h *DestinationHandler) Create(c *gin.Context) {
	var req CreateDestinationRequest
	if !bindJSON(c, &req) {
		return
	}
	address, err := h.cf.CreateDestinationAddress(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err, "Failed to create destination address")
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (h *DestinationHandler) Get(c *gin.Context) {
	address, err := h.cf.GetDestinationAddress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to load destination address")
		return
	}
	c.JSON(http.StatusOK, address)
}

func (h *DestinationHandler) Delete(c *gin.Context) {
	if err := h.cf.DeleteDestinationAddress(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete destination address")
		return
	}
	c.Status(http.StatusNoContent)
}

// Verify reports whether the configured token can manage Email Routing.
func (h *DestinationHandler) Verify(c *gin.Context) {
	check, err := h.cf.VerifyToken(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to verify Cloudflare token")
		return
	}
	c.JSON(http.StatusOK, check)
}
