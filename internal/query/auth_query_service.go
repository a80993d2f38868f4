package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/middleware"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/utils"
)

// RememberMeTTL replaces the configured session timeout when the user asks
// to stay signed in.
const RememberMeTTL = 30 * 24 * time.Hour

type AuthResult struct {
	User  *models.UserView `json:"user"`
	Token string           `json:"token"`
}

// AuthQueryService handles login and token refresh. There's no CommandService
// for auth because these operations don't mutate application state.
type AuthQueryService struct {
	users    UserLookup
	settings SettingsSource
}

func NewAuthQueryService(users UserLookup, settings SettingsSource) *AuthQueryService {
	return &AuthQueryService{users: users, settings: settings}
}

func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(cmd.Username))
	if errors.Is(err, errs.ErrUserNotFound) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		return nil, errs.ErrInvalidCredentials
	}
	ttl := RememberMeTTL
	if !cmd.Remember {
		if ttl, err = s.sessionTTL(ctx); err != nil {
			return nil, err
		}
	}
	return s.issue(user, ttl)
}

// Issue signs a session for a user who was just created.
func (s *AuthQueryService) Issue(ctx context.Context, user *models.User) (*AuthResult, error) {
	ttl, err := s.sessionTTL(ctx)
	if err != nil {
		return nil, err
	}
	return s.issue(user, ttl)
}

// RefreshToken re-signs a still-valid token. The user is reloaded so a
// changed role or a deleted account takes effect.
func (s *AuthQueryService) RefreshToken(ctx context.Context, cmd cqrs.RefreshTokenCommand) (*AuthResult, error) {
	claims, err := middleware.ParseToken(cmd.Token)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, errs.ErrUserNotFound) {
		return nil, errs.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	ttl, err := s.sessionTTL(ctx)
	if err != nil {
		return nil, err
	}
	return s.issue(user, ttl)
}

func (s *AuthQueryService) sessionTTL(ctx context.Context) (time.Duration, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(cfg.SessionTimeout) * time.Hour, nil
}

func (s *AuthQueryService) issue(user *models.User, ttl time.Duration) (*AuthResult, error) {
	token, err := middleware.IssueToken(user.ID, user.Username, user.Permissions, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user.View(), Token: token}, nil
}
