package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

func (c *Client) accountPath(suffix string) (string, error) {
	if c.cfg.AccountID == "" {
		return "", ErrAccountNotConfigured
	}
	return fmt.Sprintf("/accounts/%s%s", url.PathEscape(c.cfg.AccountID), suffix), nil
}

func (c *Client) ListDestinationAddresses(ctx context.Context) ([]DestinationAddress, error) {
	path, err := c.accountPath("/email/routing/addresses")
	if err != nil {
		return nil, err
	}
	resp, err := call[[]DestinationAddress](ctx, c, request{
		op:     "list_addresses",
		method: http.MethodGet,
		path:   path,
		auth:   authKey,
	})
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return []DestinationAddress{}, nil
	}
	return resp.Result, nil
}

// CreateDestinationAddress registers email as a forwarding target. Cloudflare
// mails a verification link before the address can receive mail.
func (c *Client) CreateDestinationAddress(ctx context.Context, email string) (*DestinationAddress, error) {
	path, err := c.accountPath("/email/routing/addresses")
	if err != nil {
		return nil, err
	}
	resp, err := call[DestinationAddress](ctx, c, request{
		op:     "create_address",
		method: http.MethodPost,
		path:   path,
		body:   map[string]string{"email": strings.ToLower(email)},
		auth:   authKey,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *Client) GetDestinationAddress(ctx context.Context, id string) (*DestinationAddress, error) {
	path, err := c.accountPath("/email/routing/addresses/" + url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	resp, err := call[DestinationAddress](ctx, c, request{
		op:     "get_address",
		method: http.MethodGet,
		path:   path,
		auth:   authKey,
	})
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *Client) DeleteDestinationAddress(ctx context.Context, id string) error {
	path, err := c.accountPath("/email/routing/addresses/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	_, err = call[json.RawMessage](ctx, c, request{
		op:     "delete_address",
		method: http.MethodDelete,
		path:   path,
		auth:   authKey,
	})
	return err
}

// VerifyToken checks that the bearer token can read the account and its
// Email Routing addresses.
func (c *Client) VerifyToken(ctx context.Context) (*TokenCheck, error) {
	accountPath, err := c.accountPath("")
	if err != nil {
		return &TokenCheck{OK: false, Message: err.Error()}, nil
	}
	if _, err := call[json.RawMessage](ctx, c, request{
		op:     "verify_account",
		method: http.MethodGet,
		path:   accountPath,
	}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &TokenCheck{OK: false, Message: "API token check failed: " + errorMessage(err)}, nil
	}
	if _, err := call[json.RawMessage](ctx, c, request{
		op:     "verify_routing",
		method: http.MethodGet,
		path:   accountPath + "/email/routing/addresses",
	}); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &TokenCheck{OK: false, Message: "API token lacks Email Routing permission: " + errorMessage(err)}, nil
	}
	return &TokenCheck{OK: true, Message: "API token permissions OK"}, nil
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
