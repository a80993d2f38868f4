package models

import "time"

// UserView is the read-optimised projection of a user.
// It never exposes PasswordHash.
type UserView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Frequency   int       `json:"frequency"`
	Permissions string    `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u *UserView) IsAdmin() bool { return u.Permissions == PermissionAdmin }

func (u *User) View() *UserView {
	return &UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Frequency:   u.Frequency,
		Permissions: u.Permissions,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// EmailRecordView joins the owning username for the admin tables.
type EmailRecordView struct {
	EmailRecord
	Username string `json:"username"`
}

type PublicSettings struct {
	SiteName          string `json:"siteName"`
	SiteDescription   string `json:"siteDescription"`
	AllowRegistration bool   `json:"allowRegistration"`
	MaintenanceMode   bool   `json:"maintenanceMode"`
}

func (c SystemConfig) Public() PublicSettings {
	return PublicSettings{
		SiteName:          c.SiteName,
		SiteDescription:   c.SiteDescription,
		AllowRegistration: c.AllowRegistration,
		MaintenanceMode:   c.MaintenanceMode,
	}
}

type GrowthPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DashboardStats struct {
	TotalUsers            int               `json:"totalUsers"`
	TotalEmails           int               `json:"totalEmails"`
	TotalAdmins           int               `json:"totalAdmins"`
	TotalActiveUsers      int               `json:"totalActiveUsers"`
	TotalCardCodes        int               `json:"totalCardCodes"`
	TotalRechargeRecords  int               `json:"totalRechargeRecords"`
	RecentUsers           []UserView        `json:"recentUsers"`
	RecentEmails          []EmailRecordView `json:"recentEmails"`
	RecentCardCodes       []CardCode        `json:"recentCardCodes"`
	RecentRechargeRecords []RechargeRecord  `json:"recentRechargeRecords"`
	UserGrowth            []GrowthPoint     `json:"userGrowth"`
	EmailGrowth           []GrowthPoint     `json:"emailGrowth"`
	RechargeGrowth        []GrowthPoint     `json:"rechargeGrowth"`
}

type SystemStatus struct {
	Uptime        string  `json:"uptime"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
	MemoryAllocMB float64 `json:"memoryAllocMb"`
	MemorySysMB   float64 `json:"memorySysMb"`
	Goroutines    int     `json:"goroutines"`
	ActiveUsers   int     `json:"activeUsers"`
	TotalRequests int64   `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
}
