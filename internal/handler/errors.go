package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/gin-gonic/gin"
)

type errorStatus struct {
	err     error
	status  int
	message string
}

// errorStatuses is checked in order; the first match wins. An empty message
// means the error text itself is shown.
var errorStatuses = []errorStatus{
	{errs.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{errs.ErrEmailNotFound, http.StatusNotFound, "Email record not found"},
	{errs.ErrCardNotFound, http.StatusNotFound, "Card code not found"},
	{errs.ErrRechargeNotFound, http.StatusNotFound, "Recharge record not found"},
	{errs.ErrNotFound, http.StatusNotFound, "Not found"},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{errs.ErrInvalidToken, http.StatusUnauthorized, "Invalid token"},
	{errs.ErrRegistrationClosed, http.StatusForbidden, "Registration is currently closed"},
	{errs.ErrSelfModification, http.StatusForbidden, "You cannot delete or demote your own account"},
	{errs.ErrForbidden, http.StatusForbidden, "You do not have access to this resource"},
	{errs.ErrUsernameTaken, http.StatusConflict, "Username already exists"},
	{errs.ErrEmailTaken, http.StatusConflict, "Email already registered"},
	{errs.ErrAddressTaken, http.StatusConflict, "This address is already in use"},
	{errs.ErrCardUsed, http.StatusConflict, "Card code has already been used"},
	{errs.ErrCardDisabled, http.StatusConflict, "Card code is disabled"},
	{errs.ErrCardExpired, http.StatusConflict, "Card code has expired"},
	{errs.ErrInvalidTransition, http.StatusConflict, "Card code cannot change to that status"},
	{errs.ErrConflict, http.StatusConflict, "Conflict"},
	{errs.ErrInsufficientQuota, http.StatusUnprocessableEntity, "Insufficient quota, please recharge"},
	{errs.ErrQuotaLimit, http.StatusUnprocessableEntity, "Quota would exceed the configured maximum"},
	{errs.ErrInvalidPrefix, http.StatusBadRequest, "Prefix may only contain letters, digits, '-', '_' and '.'"},
	{errs.ErrInvalidArgument, http.StatusBadRequest, ""},
	{cloudflare.ErrAccountNotConfigured, http.StatusServiceUnavailable, "Cloudflare account id is not configured"},
}

// statusFor maps a service error to a status and a client-safe message.
// Unknown errors map to 500 with an empty message.
func statusFor(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.message == "" {
				return e.status, err.Error()
			}
			return e.status, e.message
		}
	}
	var apiErr *cloudflare.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, fmt.Sprintf("Cloudflare API error: %s", apiErr.Message)
	}
	return http.StatusInternalServerError, ""
}

// respondError writes the mapped status. fallback is shown for unexpected
// errors, which are also logged.
func respondError(c *gin.Context, err error, fallback string) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		message = fallback
	}
	middleware.RespondWithError(c, status, message)
}
