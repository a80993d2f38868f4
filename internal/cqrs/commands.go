package cqrs

import "github.com/cfmail/console/internal/models"

type RegisterCommand struct {
	Username string
	Email    string
	Password string
}

type CreateUserCommand struct {
	Username    string
	Email       string
	Password    string
	Permissions string
	Frequency   *int
}

// UpdateUserCommand applies a partial update; nil fields are left unchanged.
type UpdateUserCommand struct {
	UserID           string
	RequestingUserID string
	Username         *string
	Email            *string
	Password         *string
	Permissions      *string
	Frequency        *int
}

type SetPermissionsCommand struct {
	UserID           string
	RequestingUserID string
	Permissions      string
}

type SetFrequencyCommand struct {
	UserID            string
	RequestingUserID  string
	RequestingIsAdmin bool
	Frequency         int
}

type IncrementFrequencyCommand struct {
	UserID string
}

type DeleteUserCommand struct {
	UserID           string
	RequestingUserID string
}

type DeleteUsersCommand struct {
	UserIDs          []string
	RequestingUserID string
}

type LoginCommand struct {
	Username string
	Password string
	Remember bool
}

type RefreshTokenCommand struct {
	Token string
}

type CreateRuleCommand struct {
	UserID string
	Prefix string
}

type UpdateRuleCommand struct {
	RuleID    string
	Prefix    string
	ForwardTo string
}

type DeleteRuleCommand struct {
	RuleID string
}

type CreateEmailRecordCommand struct {
	UserID  string
	Email   string
	ToEmail string
}

type UpdateEmailRecordCommand struct {
	ID      string
	Email   string
	ToEmail string
}

type DeleteEmailRecordCommand struct {
	ID               string
	RequestingUserID string
	IsAdmin          bool
}

type DeleteEmailRecordsCommand struct {
	IDs []string
}

type GenerateCardCodesCommand struct {
	Value       int
	Count       int
	ValidDays   int
	Description string
}

type CardCodeCommand struct {
	ID string
}

type DeleteCardCodesCommand struct {
	IDs []string
}

type RedeemCardCommand struct {
	UserID string
	Code   string
}

type AdminRechargeCommand struct {
	UserID      string
	Amount      int
	Description string
	AdminID     string
	AdminName   string
}

type DeleteRechargeRecordCommand struct {
	ID string
}

type UpdateSettingsCommand struct {
	Config models.SystemConfig
}
