package models

import "time"

const (
	PermissionUser  = "user"
	PermissionAdmin = "admin"
)

const (
	CardStatusUnused   = "unused"
	CardStatusUsed     = "used"
	CardStatusDisabled = "disabled"
)

const (
	RechargeTypeCard  = "card"
	RechargeTypeAdmin = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Frequency    int       `json:"frequency"`
	Permissions  string    `json:"permissions"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool { return u.Permissions == PermissionAdmin }

// EmailRecord ties a custom address on the routing domain to the user who
// paid quota for it. RuleID is the Cloudflare rule created alongside it.
type EmailRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ToEmail   string    `json:"toEmail"`
	RuleID    string    `json:"ruleId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CardCode struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	Value          int        `json:"value"`
	Status         string     `json:"status"`
	UsedByUserID   string     `json:"usedByUserId,omitempty"`
	UsedByUsername string     `json:"usedByUsername,omitempty"`
	UsedAt         *time.Time `json:"usedAt,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	Description    string     `json:"description"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Expired reports whether the code carries an expiry that is not after now.
func (c *CardCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

type RechargeRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	CardCode      string    `json:"cardCode,omitempty"`
	Amount        int       `json:"amount"`
	Type          string    `json:"type"`
	BeforeBalance int       `json:"beforeBalance"`
	AfterBalance  int       `json:"afterBalance"`
	Description   string    `json:"description"`
	AdminID       string    `json:"adminId,omitempty"`
	AdminName     string    `json:"adminName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type SystemConfig struct {
	SiteName          string `json:"siteName" validate:"required,max=100"`
	SiteDescription   string `json:"siteDescription" validate:"max=500"`
	DefaultQuota      int    `json:"defaultQuota" validate:"gte=0"`
	MaxQuota          int    `json:"maxQuota" validate:"gte=1"`
	AllowRegistration bool   `json:"allowRegistration"`
	EmailNotification bool   `json:"emailNotification"`
	MaintenanceMode   bool   `json:"maintenanceMode"`
	APIRateLimit      int    `json:"apiRateLimit" validate:"gte=1"`
	SessionTimeout    int    `json:"sessionTimeout" validate:"gte=1,lte=720"`
}

func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		SiteName:          "Cloudflare Email Routing Console",
		SiteDescription:   "Custom forwarding addresses on a shared routing domain",
		DefaultQuota:      10,
		MaxQuota:          100,
		AllowRegistration: true,
		EmailNotification: true,
		MaintenanceMode:   false,
		APIRateLimit:      100,
		SessionTimeout:    24,
	}
}
