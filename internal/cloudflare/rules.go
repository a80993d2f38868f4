package cloudflare

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const rulesPerPage = 50

func (c *Client) rulesPath() string {
	return fmt.Sprintf("/zones/%s/email/routing/rules", url.PathEscape(c.cfg.ZoneID))
}

func (c *Client) ruleBody(prefix, forwardTo string) Rule {
	return Rule{
		Name:    fmt.Sprintf("Forward %s@%s to %s", prefix, c.cfg.EmailDomain, forwardTo),
		Enabled: true,
		Matchers: []Matcher{{
			Type:  MatcherLiteral,
			Field: FieldTo,
			Value: c.Address(prefix),
		}},
		Actions: []Action{{
			Type:  ActionForward,
			Value: []string{strings.ToLower(forwardTo)},
		}},
	}
}

// ListRules returns every routing rule in the zone, following pagination.
func (c *Client) ListRules(ctx context.Context) ([]Rule, error) {
	var rules []Rule
	for page := 1; ; page++ {
		resp, err := call[[]Rule](ctx, c, request{
			op:     "list_rules",
			method: http.MethodGet,
			path:   fmt.Sprintf("%s?page=%d&per_page=%d", c.rulesPath(), page, rulesPerPage),
		})
		if err != nil {
			return nil, err
		}
		rules = append(rules, resp.Result...)

		info := resp.ResultInfo
		if info == nil || len(resp.Result) == 0 || page*rulesPerPage >= info.TotalCount {
			break
		}
	}
	if rules == nil {
		rules = []Rule{}
	}
	return rules, nil
}

// CreateRule forwards prefix@domain to forwardTo.
func (c *Client) CreateRule(ctx context.Context, prefix, forwardTo string) (*Rule, error) {
	resp, err := call[Rule](ctx, c, request{
		op:     "create_rule",
		method: http.MethodPost,
		path:   c.rulesPath(),
		body:   c.ruleBody(prefix, forwardTo),
	})
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *Client) UpdateRule(ctx context.Context, id, prefix, forwardTo string) (*Rule, error) {
	resp, err := call[Rule](ctx, c, request{
		op:     "update_rule",
		method: http.MethodPut,
		path:   c.rulesPath() + "/" + url.PathEscape(id),
		body:   c.ruleBody(prefix, forwardTo),
	})
	if err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	_, err := call[json.RawMessage](ctx, c, request{
		op:     "delete_rule",
		method: http.MethodDelete,
		path:   c.rulesPath() + "/" + url.PathEscape(id),
	})
	return err
}
