package cloudflare

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAccountNotConfigured is returned by account-scoped calls when no
// account id was configured.
var ErrAccountNotConfigured = errors.New("cloudflare account id is not configured")

const (
	MatcherLiteral = "literal"
	FieldTo        = "to"
	ActionForward  = "forward"
)

type Matcher struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`
}

type Action struct {
	Type  string   `json:"type"`
	Value []string `json:"value,omitempty"`
}

// Rule is an Email Routing rule. Cloudflare reports the identifier as both
// "id" and "tag" depending on the endpoint version.
type Rule struct {
	ID       string    `json:"id,omitempty"`
	Tag      string    `json:"tag,omitempty"`
	Name     string    `json:"name"`
	Enabled  bool      `json:"enabled"`
	Priority int       `json:"priority,omitempty"`
	Matchers []Matcher `json:"matchers"`
	Actions  []Action  `json:"actions"`
}

func (r Rule) Identifier() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Tag
}

// Address is the value of the first matcher, the custom address a rule serves.
func (r Rule) Address() string {
	if len(r.Matchers) == 0 {
		return ""
	}
	return r.Matchers[0].Value
}

type DestinationAddress struct {
	ID       string `json:"id,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Email    string `json:"email"`
	Created  string `json:"created,omitempty"`
	Modified string `json:"modified,omitempty"`
	Verified string `json:"verified,omitempty"`
}

type ResponseInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// Response is the envelope every v4 endpoint answers with.
type Response[T any] struct {
	Success    bool           `json:"success"`
	Errors     []ResponseInfo `json:"errors"`
	Messages   []ResponseInfo `json:"messages"`
	Result     T              `json:"result"`
	ResultInfo *ResultInfo    `json:"result_info,omitempty"`
}

// APIError carries the first error Cloudflare reported and the HTTP status.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("cloudflare: %s (code %d, http %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("cloudflare: %s (http %d)", e.Message, e.StatusCode)
}

// Retryable reports whether repeating the same request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

type TokenCheck struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}
