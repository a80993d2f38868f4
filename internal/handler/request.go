package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/gin-gonic/gin"
)

// BatchRequest is the body of the batch delete endpoints. A bare JSON array
// of ids is accepted as well.
type BatchRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// bindJSON decodes and validates req, writing the error response itself.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

func bindIDs(c *gin.Context) ([]string, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	var req BatchRequest
	if err := json.Unmarshal(body, &req.IDs); err != nil {
		if err := json.Unmarshal(body, &req); err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
			return nil, false
		}
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return nil, false
	}
	return req.IDs, true
}

func pageQuery(c *gin.Context) cqrs.PageQuery {
	pageNum, _ := strconv.Atoi(c.Query("pageNum"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	return cqrs.PageQuery{
		PageNum:  pageNum,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
	}
}

func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
	}
	return userID, ok
}
