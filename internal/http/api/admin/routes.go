package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/adminauth"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/config"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/http/api/admin/handlers"
	"github.com/unidate/unidate-admin/internal/jobs"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/services/analytics"
	"github.com/unidate/unidate-admin/internal/services/content"
	"github.com/unidate/unidate-admin/internal/services/featureflags"
	"github.com/unidate/unidate-admin/internal/services/notifications"
	"github.com/unidate/unidate-admin/internal/services/reports"
	"github.com/unidate/unidate-admin/internal/services/users"
)

// Deps carries everything the admin routes serve.
type Deps struct {
	Client        *baas.Client
	Auth          *adminauth.Service
	Refresher     *metrics.Refresher
	Users         *users.Service
	Content       *content.Service
	Reports       *reports.Service
	Notifications *notifications.Service
	Analytics     *analytics.Service
	FeatureFlags  *featureflags.Service
	Jobs          *jobs.Scheduler
	LoginLimiter  *relayhttp.LoginRateLimiter
}

// RegisterAdminRoutes registers public and authenticated admin routes under /v0/admin.
func RegisterAdminRoutes(r *gin.Engine, deps Deps, jwtCfg config.JWTConfig) {
	if r == nil || deps.Client == nil || deps.Auth == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.Client)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")

	// throttled prefixes the per-IP login limiter to routes that check a password or code.
	throttled := func(chain ...gin.HandlerFunc) []gin.HandlerFunc {
		if deps.LoginLimiter == nil {
			return chain
		}
		return append([]gin.HandlerFunc{deps.LoginLimiter.Middleware()}, chain...)
	}

	authHandler := handlers.NewAuthHandler(deps.Auth, jwtCfg)
	admin.POST("/login", throttled(authHandler.Login)...)
	admin.POST("/login/verify-2fa", throttled(relayhttp.SessionTokenMiddleware(jwtCfg.Secret), authHandler.VerifyTwoFactor)...)

	authed := admin.Group("")
	authed.Use(relayhttp.AdminAuthMiddleware(jwtCfg.Secret, deps.Auth))
	authed.Use(adminPermissionMiddleware())

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/session", authHandler.Session)

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	mfaHandler := handlers.NewMFAHandler(deps.Auth)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", throttled(mfaHandler.ConfirmTOTP)...)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	adminHandler := handlers.NewAdminHandler(deps.Auth)
	authed.GET("/admins", adminHandler.List)
	authed.POST("/admins", adminHandler.Create)
	authed.GET("/admins/:uid", adminHandler.Get)
	authed.PUT("/admins/:uid/permissions", adminHandler.UpdatePermissions)
	authed.POST("/admins/:uid/status", adminHandler.SetStatus)

	dashboardHandler := handlers.NewDashboardHandler(deps.Refresher, deps.Analytics)
	authed.GET("/dashboard/metrics", dashboardHandler.Metrics)
	authed.POST("/dashboard/metrics/refresh", dashboardHandler.RefreshMetrics)
	authed.GET("/analytics/overview", dashboardHandler.AnalyticsOverview)

	userHandler := handlers.NewUserHandler(deps.Users)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/universities", userHandler.Universities)
	authed.GET("/users/:id", userHandler.Get)
	authed.POST("/users/:id/actions/:action", userHandler.Action)

	contentHandler := handlers.NewContentHandler(deps.Content)
	authed.GET("/posts", contentHandler.ListPosts)
	authed.POST("/posts/:id/actions/:action", contentHandler.ModeratePost)
	authed.GET("/groups", contentHandler.ListGroups)

	reportHandler := handlers.NewReportHandler(deps.Reports)
	authed.GET("/reports", reportHandler.List)
	authed.POST("/reports/:id/actions/:action", reportHandler.Action)
	authed.POST("/reports/export", reportHandler.StartExport)
	authed.GET("/reports/export/:task_id", reportHandler.ExportStatus)
	authed.GET("/reports/export/:task_id/download", reportHandler.DownloadExport)

	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	authed.GET("/notifications", notificationHandler.List)
	authed.POST("/notifications", notificationHandler.Send)
	authed.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
	authed.DELETE("/notifications/:id", notificationHandler.Delete)

	flagHandler := handlers.NewFeatureFlagHandler(deps.FeatureFlags)
	authed.GET("/feature-flags", flagHandler.List)
	authed.POST("/feature-flags", flagHandler.Create)
	authed.GET("/feature-flags/:key", flagHandler.Get)
	authed.PUT("/feature-flags/:key", flagHandler.Update)
	authed.DELETE("/feature-flags/:key", flagHandler.Delete)
	authed.POST("/feature-flags/:key/toggle", flagHandler.Toggle)
	authed.GET("/feature-flags/:key/evaluate", flagHandler.Evaluate)

	settingHandler := handlers.NewSettingHandler(deps.Client.DB)
	authed.GET("/settings", settingHandler.List)
	authed.PUT("/settings/:key", settingHandler.Put)

	jobHandler := handlers.NewJobHandler(deps.Jobs)
	authed.GET("/jobs", jobHandler.List)
	authed.POST("/jobs/:name/run", jobHandler.Run)
}
