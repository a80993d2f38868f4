// Package cloudflare is a small client for the Email Routing endpoints of the
// Cloudflare v4 API.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cfmail/console/internal/metrics"
	"github.com/cfmail/console/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var prefixPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)

// ValidPrefix reports whether prefix may be used as the local part of a
// custom address.
func ValidPrefix(prefix string) bool {
	return prefixPattern.MatchString(prefix)
}

type Config struct {
	BaseURL       string
	APIToken      string
	APIEmail      string
	APIKey        string
	ZoneID        string
	AccountID     string
	EmailDomain   string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Address builds the full custom address for prefix on the routing domain.
func (c *Client) Address(prefix string) string {
	return strings.ToLower(prefix + "@" + c.cfg.EmailDomain)
}

type authMode int

const (
	authBearer authMode = iota
	// authKey is required by the destination address endpoints.
	authKey
)

type request struct {
	op     string
	method string
	path   string
	body   any
	auth   authMode
}

// call performs req and decodes the envelope into T. Only GETs are retried.
func call[T any](ctx context.Context, c *Client, req request) (resp Response[T], err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "cloudflare."+req.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("cloudflare.path", req.path),
		),
	)
	defer func() {
		metrics.CloudflareRequestsTotal.WithLabelValues(req.op, metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tries := uint(1)
	if req.method == http.MethodGet {
		tries = uint(c.cfg.RetryAttempts)
	}

	attempt := 0
	resp, err = backoff.Retry(ctx, func() (Response[T], error) {
		attempt++
		r, err := roundTrip[T](ctx, c, req)
		if err != nil && (ctx.Err() != nil || !retryable(err)) {
			return r, backoff.Permanent(err)
		}
		return r, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.cfg.RetryDelay)),
		backoff.WithMaxTries(tries),
	)
	span.SetAttributes(attribute.Int("cloudflare.attempts", attempt))
	return resp, err
}

func roundTrip[T any](ctx context.Context, c *Client, req request) (Response[T], error) {
	var out Response[T]

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return out, fmt.Errorf("cloudflare: marshal %s request: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.cfg.BaseURL+req.path, body)
	if err != nil {
		return out, fmt.Errorf("cloudflare: build %s request: %w", req.op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.auth == authKey && c.cfg.APIEmail != "" && c.cfg.APIKey != "" {
		httpReq.Header.Set("X-Auth-Email", c.cfg.APIEmail)
		httpReq.Header.Set("X-Auth-Key", c.cfg.APIKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("cloudflare: %s: %w", req.op, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return out, fmt.Errorf("cloudflare: read %s response: %w", req.op, err)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		if httpResp.StatusCode >= http.StatusBadRequest {
			return out, &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
		}
		return out, fmt.Errorf("cloudflare: decode %s response: %w", req.op, err)
	}

	if !out.Success || httpResp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: httpResp.StatusCode, Message: http.StatusText(httpResp.StatusCode)}
		if len(out.Errors) > 0 {
			apiErr.Code = out.Errors[0].Code
			apiErr.Message = out.Errors[0].Message
		}
		return out, apiErr
	}
	return out, nil
}

// retryable accepts transport failures and 5xx/429 answers. Encoding and
// decoding problems are final.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
