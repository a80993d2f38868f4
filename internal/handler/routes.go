package handler

import (
	"github.com/cfmail/console/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth        *AuthHandler
	User        *UserHandler
	Email       *EmailHandler
	Destination *DestinationHandler
	Card        *CardHandler
	Recharge    *RechargeHandler
	Settings    *SettingsHandler
	Dashboard   *DashboardHandler
	Health      *HealthHandler
}

// RegisterRoutes mounts the JSON API under /api. Sign-in and token refresh
// stay reachable during maintenance so admins keep their sessions; the
// routes a refreshed token unlocks are still gated on its role.
func RegisterRoutes(r *gin.Engine, h Handlers, settings middleware.ConfigSource, limiter middleware.Limiter) {
	r.GET("/health", h.Health.Live)

	api := r.Group("/api")
	api.GET("/health", h.Health.Ready)
	api.GET("/system/public", h.Settings.Public)
	api.POST("/login", middleware.RateLimit(limiter, settings), h.Auth.Login)
	api.POST("/token/refresh", middleware.RateLimit(limiter, settings), h.Auth.RefreshToken)

	open := api.Group("", middleware.MaintenanceGate(settings), middleware.RateLimit(limiter, settings))
	open.POST("/register", h.Auth.Register)

	authed := api.Group("",
		middleware.AuthMiddleware(),
		middleware.MaintenanceGate(settings),
		middleware.RateLimit(limiter, settings),
	)
	authed.GET("/user/info", h.User.Info)
	authed.PUT("/user/frequency", h.User.SetFrequency)
	authed.GET("/routing/rules", h.Email.ListRules)
	authed.POST("/routing/rules", h.Email.CreateRule)
	authed.GET("/emails/user/:userId", h.Email.ListUserRecords)
	authed.GET("/emails/:id", h.Email.GetRecord)
	authed.DELETE("/emails/:id", h.Email.DeleteRecord)
	authed.POST("/recharge/card", h.Recharge.RedeemCard)
	authed.GET("/recharge/records", h.Recharge.MyRecords)

	admin := authed.Group("", middleware.AdminOnly())
	admin.GET("/users", h.User.ListUsers)
	admin.GET("/users/page", h.User.PageUsers)
	admin.GET("/users/:id", h.User.GetUser)
	admin.POST("/users", h.User.CreateUser)
	admin.PUT("/users/:id", h.User.UpdateUser)
	admin.DELETE("/users/batch", h.User.DeleteUsers)
	admin.DELETE("/users/:id", h.User.DeleteUser)
	admin.PUT("/user/permissions", h.User.SetPermissions)
	admin.POST("/user/:id/frequency/increment", h.User.IncrementFrequency)

	admin.PUT("/routing/rules/:ruleId", h.Email.UpdateRule)
	admin.DELETE("/routing/rules/:ruleId", h.Email.DeleteRule)
	admin.GET("/emails", h.Email.ListRecords)
	admin.GET("/emails/page", h.Email.PageRecords)
	admin.POST("/emails", h.Email.CreateRecord)
	admin.PUT("/emails/:id", h.Email.UpdateRecord)
	admin.DELETE("/emails/batch", h.Email.DeleteRecords)

	admin.GET("/destinations", h.Destination.List)
	admin.POST("/destinations", h.Destination.Create)
	admin.GET("/destinations/:id", h.Destination.Get)
	admin.DELETE("/destinations/:id", h.Destination.Delete)
	admin.GET("/cloudflare/verify", h.Destination.Verify)

	admin.POST("/card-codes/generate", h.Card.Generate)
	admin.GET("/card-codes", h.Card.List)
	admin.GET("/card-codes/page", h.Card.Page)
	admin.PUT("/card-codes/:id/enable", h.Card.Enable)
	admin.PUT("/card-codes/:id/disable", h.Card.Disable)
	admin.DELETE("/card-codes/batch", h.Card.DeleteBatch)
	admin.DELETE("/card-codes/:id", h.Card.Delete)
	admin.POST("/card-codes/clean-expired", h.Card.CleanExpired)

	admin.POST("/recharge/admin", h.Recharge.AdminRecharge)
	admin.GET("/recharge/records/all", h.Recharge.AllRecords)
	admin.GET("/recharge/records/page", h.Recharge.PageRecords)
	admin.GET("/recharge/records/:userId", h.Recharge.UserRecords)
	admin.DELETE("/recharge/records/:id", h.Recharge.DeleteRecord)

	admin.GET("/system/config", h.Settings.Get)
	admin.PUT("/system/config", h.Settings.Update)
	admin.POST("/system/config/reset", h.Settings.Reset)

	admin.GET("/admin/dashboard", h.Dashboard.Dashboard)
	admin.GET("/admin/status", h.Dashboard.Status)
}
