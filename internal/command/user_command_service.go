package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/utils"
)

// UserCommandService writes user state to PostgreSQL and keeps the Redis
// read model up to date.
type UserCommandService struct {
	users        UserStore
	views        UserViewCache
	emails       EmailStore
	rules        RuleClient
	destinations DestinationRegistrar
	settings     SettingsSource
	publisher    EventPublisher
}

func NewUserCommandService(
	users UserStore,
	views UserViewCache,
	emails EmailStore,
	rules RuleClient,
	destinations DestinationRegistrar,
	settings SettingsSource,
	publisher EventPublisher,
) *UserCommandService {
	return &UserCommandService{
		users:        users,
		views:        views,
		emails:       emails,
		rules:        rules,
		destinations: destinations,
		settings:     settings,
		publisher:    publisher,
	}
}

// Register creates a regular user with the configured starting quota.
func (s *UserCommandService) Register(ctx context.Context, cmd cqrs.RegisterCommand) (*models.User, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.AllowRegistration {
		return nil, errs.ErrRegistrationClosed
	}

	user, err := s.newUser(cmd.Username, cmd.Email, cmd.Password, models.PermissionUser, cfg.DefaultQuota)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.views.CacheUserView(ctx, user.View())

	// Cloudflare only forwards to verified destinations. Failure here never
	// blocks registration.
	if s.destinations != nil {
		if _, err := s.destinations.CreateDestinationAddress(ctx, user.Email); err != nil {
			log.Printf("Failed to register destination address for %s: %v", user.ID, err)
		}
	}

	publish(ctx, s.publisher, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	return user, nil
}

// CreateUser is the admin path; permissions and starting quota may be chosen.
func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	permissions := cmd.Permissions
	if permissions == "" {
		permissions = models.PermissionUser
	}
	if !validPermissions(permissions) {
		return nil, fmt.Errorf("%w: unknown permissions %q", errs.ErrInvalidArgument, permissions)
	}
	frequency := cfg.DefaultQuota
	if cmd.Frequency != nil {
		frequency = *cmd.Frequency
	}
	if err := checkFrequency(frequency, cfg.MaxQuota); err != nil {
		return nil, err
	}

	user, err := s.newUser(cmd.Username, cmd.Email, cmd.Password, permissions, frequency)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.views.CacheUserView(ctx, user.View())
	return user, nil
}

// SeedAdmin creates the bootstrap administrator unless the username exists.
func (s *UserCommandService) SeedAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return false, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	user, err := s.newUser(username, email, password, models.PermissionAdmin, cfg.MaxQuota)
	if err != nil {
		return false, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateUser applies a partial update. Frequency changes are bounded by
// maxQuota and an admin may not strip their own admin role.
func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	if cmd.Username != nil {
		user.Username = strings.TrimSpace(*cmd.Username)
	}
	if cmd.Email != nil {
		user.Email = utils.NormalizeEmail(*cmd.Email)
	}
	if cmd.Password != nil && *cmd.Password != "" {
		if err := checkPassword(*cmd.Password); err != nil {
			return nil, err
		}
		hash, err := utils.HashPassword(*cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if cmd.Permissions != nil {
		if err := s.checkPermissionChange(cmd.UserID, cmd.RequestingUserID, *cmd.Permissions); err != nil {
			return nil, err
		}
		user.Permissions = *cmd.Permissions
	}
	if cmd.Frequency != nil {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if err := checkFrequency(*cmd.Frequency, cfg.MaxQuota); err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if cmd.Frequency != nil {
		before, err := s.users.SetFrequency(ctx, user.ID, *cmd.Frequency)
		if err != nil {
			return nil, err
		}
		if before.Frequency != *cmd.Frequency {
			publishQuotaChange(ctx, s.publisher, user.ID, user.Username, user.Email, before.Frequency, *cmd.Frequency, events.ReasonAdminSet)
		}
	}

	current, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	view := current.View()
	s.views.CacheUserView(ctx, view)
	return view, nil
}

func (s *UserCommandService) SetPermissions(ctx context.Context, cmd cqrs.SetPermissionsCommand) error {
	if err := s.checkPermissionChange(cmd.UserID, cmd.RequestingUserID, cmd.Permissions); err != nil {
		return err
	}
	if err := s.users.SetPermissions(ctx, cmd.UserID, cmd.Permissions); err != nil {
		return err
	}
	s.views.InvalidateUserView(ctx, cmd.UserID)
	return nil
}

// SetFrequency overwrites a balance. Admins may set any user up to maxQuota;
// everyone else may only lower their own balance.
func (s *UserCommandService) SetFrequency(ctx context.Context, cmd cqrs.SetFrequencyCommand) (*models.UserView, error) {
	if cmd.Frequency < 0 {
		return nil, fmt.Errorf("%w: frequency must not be negative", errs.ErrInvalidArgument)
	}
	reason := events.ReasonAdminSet
	if cmd.RequestingIsAdmin {
		cfg, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if cmd.Frequency > cfg.MaxQuota {
			return nil, errs.ErrQuotaLimit
		}
	} else {
		if cmd.UserID != cmd.RequestingUserID {
			return nil, errs.ErrForbidden
		}
		current, err := s.users.GetByID(ctx, cmd.UserID)
		if err != nil {
			return nil, err
		}
		if cmd.Frequency > current.Frequency {
			return nil, errs.ErrForbidden
		}
		reason = events.ReasonSelfSet
	}

	before, err := s.users.SetFrequency(ctx, cmd.UserID, cmd.Frequency)
	if err != nil {
		return nil, err
	}
	after := *before
	after.Frequency = cmd.Frequency
	view := after.View()
	s.views.InvalidateUserView(ctx, cmd.UserID)
	publishQuotaChange(ctx, s.publisher, after.ID, after.Username, after.Email, before.Frequency, after.Frequency, reason)
	return view, nil
}

// IncrementFrequency adds one unit, refusing to pass maxQuota.
func (s *UserCommandService) IncrementFrequency(ctx context.Context, cmd cqrs.IncrementFrequencyCommand) (*models.UserView, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.users.AddFrequency(ctx, cmd.UserID, 1, cfg.MaxQuota)
	if err != nil {
		return nil, err
	}
	s.views.InvalidateUserView(ctx, cmd.UserID)
	publishQuotaChange(ctx, s.publisher, user.ID, user.Username, user.Email, user.Frequency-1, user.Frequency, events.ReasonAdminIncrement)
	return user.View(), nil
}

// DeleteUser removes the user, their email records by cascade, and then
// their rules at Cloudflare.
func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	if cmd.UserID == cmd.RequestingUserID {
		return errs.ErrSelfModification
	}
	records, err := s.emails.ListByUsers(ctx, []string{cmd.UserID})
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	s.views.InvalidateUserView(ctx, cmd.UserID)
	deleteRules(ctx, s.rules, records)
	publish(ctx, s.publisher, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{UserID: cmd.UserID})
	return nil
}

func (s *UserCommandService) DeleteUsers(ctx context.Context, cmd cqrs.DeleteUsersCommand) (int64, error) {
	if len(cmd.UserIDs) == 0 {
		return 0, fmt.Errorf("%w: no users selected", errs.ErrInvalidArgument)
	}
	for _, id := range cmd.UserIDs {
		if id == cmd.RequestingUserID {
			return 0, errs.ErrSelfModification
		}
	}
	records, err := s.emails.ListByUsers(ctx, cmd.UserIDs)
	if err != nil {
		return 0, err
	}
	deleted, err := s.users.DeleteBatch(ctx, cmd.UserIDs)
	if err != nil {
		return 0, err
	}
	s.views.InvalidateUserView(ctx, cmd.UserIDs...)
	deleteRules(ctx, s.rules, records)
	for _, id := range cmd.UserIDs {
		publish(ctx, s.publisher, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{UserID: id})
	}
	return deleted, nil
}

func (s *UserCommandService) newUser(username, email, password, permissions string, frequency int) (*models.User, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now().UTC()
	return &models.User{
		ID:           utils.GenerateID("usr"),
		Username:     strings.TrimSpace(username),
		Email:        utils.NormalizeEmail(email),
		PasswordHash: hash,
		Frequency:    frequency,
		Permissions:  permissions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *UserCommandService) checkPermissionChange(userID, requestingUserID, permissions string) error {
	if !validPermissions(permissions) {
		return fmt.Errorf("%w: unknown permissions %q", errs.ErrInvalidArgument, permissions)
	}
	if userID == requestingUserID && permissions != models.PermissionAdmin {
		return errs.ErrSelfModification
	}
	return nil
}

func validPermissions(p string) bool {
	return p == models.PermissionUser || p == models.PermissionAdmin
}

// bcrypt only hashes the first 72 bytes.
const maxPasswordBytes = 72

func checkPassword(password string) error {
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", errs.ErrInvalidArgument, maxPasswordBytes)
	}
	return nil
}

func checkFrequency(frequency, max int) error {
	if frequency < 0 {
		return fmt.Errorf("%w: frequency must not be negative", errs.ErrInvalidArgument)
	}
	if frequency > max {
		return errs.ErrQuotaLimit
	}
	return nil
}
