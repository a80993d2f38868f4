package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/quota"
	"github.com/cfmail/console/internal/utils"
)

func init() {
	middleware.MustInitJWTSecret("query-test-secret")
}

type staticSettings struct {
	cfg models.SystemConfig
}

func (s staticSettings) Get(context.Context) (*models.SystemConfig, error) {
	cfg := s.cfg
	return &cfg, nil
}

type mockUserLookup struct {
	getByIDFn       func(id string) (*models.User, error)
	getByUsernameFn func(username string) (*models.User, error)
}

func (m *mockUserLookup) GetByID(_ context.Context, id string) (*models.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(id)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockUserLookup) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(username)
	}
	return nil, fmt.Errorf("not configured")
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return hash
}

func TestLogin(t *testing.T) {
	user := &models.User{ID: "usr-1", Username: "alice", PasswordHash: mustHash(t, "secret1"), Permissions: models.PermissionAdmin}
	lookup := &mockUserLookup{getByUsernameFn: func(username string) (*models.User, error) {
		if username != "alice" {
			return nil, errs.ErrUserNotFound
		}
		return user, nil
	}}
	cfg := models.DefaultSystemConfig()
	cfg.SessionTimeout = 2
	svc := NewAuthQueryService(lookup, staticSettings{cfg: cfg})

	tests := []struct {
		name        string
		cmd         cqrs.LoginCommand
		expectedErr error
		ttl         time.Duration
	}{
		{"session", cqrs.LoginCommand{Username: "alice", Password: "secret1"}, nil, 2 * time.Hour},
		{"remember me", cqrs.LoginCommand{Username: " alice ", Password: "secret1", Remember: true}, nil, RememberMeTTL},
		{"wrong password", cqrs.LoginCommand{Username: "alice", Password: "nope"}, errs.ErrInvalidCredentials, 0},
		{"unknown user", cqrs.LoginCommand{Username: "bob", Password: "secret1"}, errs.ErrInvalidCredentials, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(context.Background(), tt.cmd)
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Errorf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			claims, err := middleware.ParseToken(result.Token)
			if err != nil {
				t.Fatalf("token did not parse: %v", err)
			}
			if claims.UserID != "usr-1" || claims.Role != models.PermissionAdmin {
				t.Errorf("unexpected claims %+v", claims)
			}
			ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
			if ttl != tt.ttl {
				t.Errorf("expected ttl %v, got %v", tt.ttl, ttl)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	lookup := &mockUserLookup{getByIDFn: func(id string) (*models.User, error) {
		if id == "usr-1" {
			return &models.User{ID: "usr-1", Username: "alice", Permissions: models.PermissionUser}, nil
		}
		return nil, errs.ErrUserNotFound
	}}
	svc := NewAuthQueryService(lookup, staticSettings{cfg: models.DefaultSystemConfig()})

	token, _ := middleware.IssueToken("usr-1", "alice", models.PermissionAdmin, time.Hour)
	result, err := svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: token})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, _ := middleware.ParseToken(result.Token)
	if claims.Role != models.PermissionUser {
		t.Errorf("expected refreshed role to follow the stored user, got %s", claims.Role)
	}

	gone, _ := middleware.IssueToken("usr-2", "bob", models.PermissionUser, time.Hour)
	if _, err := svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: gone}); !errors.Is(err, errs.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for a deleted user, got %v", err)
	}
	if _, err := svc.RefreshToken(context.Background(), cqrs.RefreshTokenCommand{Token: "garbage"}); !errors.Is(err, errs.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

type mockViews struct {
	view *models.UserView
}

func (m *mockViews) GetByID(_ context.Context, id string) (*models.UserView, error) {
	if m.view == nil || m.view.ID != id {
		return nil, errs.ErrUserNotFound
	}
	return m.view, nil
}

func (m *mockViews) List(context.Context) ([]models.UserView, error) { return nil, nil }

func (m *mockViews) Page(context.Context, string, int, int) (*models.Page[models.UserView], error) {
	return models.NewPage[models.UserView](nil, 0, 1, 10), nil
}

func TestUserInfoSummarisesQuota(t *testing.T) {
	svc := NewUserQueryService(&mockViews{view: &models.UserView{ID: "usr-1", Frequency: 3}})
	info, err := svc.UserInfo(context.Background(), cqrs.GetUserQuery{UserID: "usr-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Quota.Status != quota.StatusLow || !info.Quota.CanCreate || info.Quota.Remaining != 3 {
		t.Errorf("unexpected summary %+v", info.Quota)
	}
}

func TestGetUserRejectsMalformedID(t *testing.T) {
	id := utils.GenerateID("usr")
	svc := NewUserQueryService(&mockViews{view: &models.UserView{ID: id}})

	if _, err := svc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: id}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "usr-", "crd-" + id[4:], "1 OR 1=1"} {
		if _, err := svc.GetUser(context.Background(), cqrs.GetUserQuery{UserID: bad}); !errors.Is(err, errs.ErrUserNotFound) {
			t.Errorf("GetUser(%q): expected ErrUserNotFound, got %v", bad, err)
		}
	}
}

type mockEmails struct {
	records []models.EmailRecord
}

func (m *mockEmails) GetByID(_ context.Context, id string) (*models.EmailRecordView, error) {
	for _, r := range m.records {
		if r.ID == id {
			return &models.EmailRecordView{EmailRecord: r}, nil
		}
	}
	return nil, errs.ErrEmailNotFound
}

func (m *mockEmails) ListByUser(_ context.Context, userID string) ([]models.EmailRecord, error) {
	out := []models.EmailRecord{}
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockEmails) ListAll(context.Context) ([]models.EmailRecordView, error) { return nil, nil }

func (m *mockEmails) Page(context.Context, string, int, int) (*models.Page[models.EmailRecordView], error) {
	return nil, nil
}

type staticRules []cloudflare.Rule

func (r staticRules) ListRules(context.Context) ([]cloudflare.Rule, error) { return r, nil }

func rule(id, address string) cloudflare.Rule {
	return cloudflare.Rule{ID: id, Matchers: []cloudflare.Matcher{{Type: cloudflare.MatcherLiteral, Field: cloudflare.FieldTo, Value: address}}}
}

func TestListRulesFiltersForUsers(t *testing.T) {
	emails := &mockEmails{records: []models.EmailRecord{
		{ID: "eml-1", UserID: "usr-1", Email: "shop@mail.example.com"},
		{ID: "eml-2", UserID: "usr-2", Email: "news@mail.example.com"},
	}}
	rules := staticRules{rule("r1", "Shop@mail.example.com"), rule("r2", "news@mail.example.com"), {ID: "r3"}}
	svc := NewEmailQueryService(emails, rules)

	got, err := svc.ListRules(context.Background(), cqrs.ListRulesQuery{UserID: "usr-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("expected only r1, got %+v", got)
	}

	all, _ := svc.ListRules(context.Background(), cqrs.ListRulesQuery{UserID: "usr-1", IsAdmin: true})
	if len(all) != 3 {
		t.Errorf("expected admins to see all rules, got %d", len(all))
	}
}

func TestEmailOwnership(t *testing.T) {
	svc := NewEmailQueryService(&mockEmails{records: []models.EmailRecord{{ID: "eml-1", UserID: "usr-1"}}}, staticRules{})

	if _, err := svc.GetRecord(context.Background(), cqrs.GetEmailRecordQuery{ID: "eml-1", RequestingUserID: "usr-2"}); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetRecord(context.Background(), cqrs.GetEmailRecordQuery{ID: "eml-1", RequestingUserID: "usr-2", IsAdmin: true}); err != nil {
		t.Errorf("expected admin access, got %v", err)
	}
	if _, err := svc.ListByUser(context.Background(), cqrs.ListUserEmailsQuery{UserID: "usr-1", RequestingUserID: "usr-2"}); !errors.Is(err, errs.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	records, err := svc.ListByUser(context.Background(), cqrs.ListUserEmailsQuery{UserID: "usr-9", RequestingUserID: "usr-9"})
	if err != nil || records == nil || len(records) != 0 {
		t.Errorf("expected an empty list, got %v %v", records, err)
	}
}

func TestPublicSettings(t *testing.T) {
	cfg := models.DefaultSystemConfig()
	cfg.MaintenanceMode = true
	public, err := NewSettingsQueryService(staticSettings{cfg: cfg}).Public(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !public.MaintenanceMode || public.SiteName != cfg.SiteName {
		t.Errorf("unexpected public settings %+v", public)
	}
}

type mockStats struct {
	active int
}

func (m mockStats) Dashboard(context.Context, time.Time) (*models.DashboardStats, error) {
	return &models.DashboardStats{}, nil
}

func (m mockStats) CountActiveUsers(context.Context) (int, error) { return m.active, nil }

func TestStatus(t *testing.T) {
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewDashboardQueryService(mockStats{active: 7}, started)
	svc.now = func() time.Time { return started.Add(90*time.Minute + 500*time.Millisecond) }

	status, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.ActiveUsers != 7 || status.UptimeSeconds != 5400 || status.Uptime != "1h30m0s" {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Goroutines < 1 || status.MemorySysMB <= 0 {
		t.Errorf("expected runtime figures, got %+v", status)
	}
}
