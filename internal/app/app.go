package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/adminauth"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/cache"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/db"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	internalhttp "github.com/unidate/unidate-admin/internal/http/api/admin"
	"github.com/unidate/unidate-admin/internal/jobs"
	"github.com/unidate/unidate-admin/internal/logging"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/services/analytics"
	"github.com/unidate/unidate-admin/internal/services/content"
	"github.com/unidate/unidate-admin/internal/services/featureflags"
	"github.com/unidate/unidate-admin/internal/services/notifications"
	"github.com/unidate/unidate-admin/internal/services/reports"
	"github.com/unidate/unidate-admin/internal/services/users"
	"github.com/unidate/unidate-admin/internal/session"
	"github.com/unidate/unidate-admin/internal/settings"
	"gorm.io/gorm"
)

// Job names registered with the scheduler.
const (
	JobNotificationRetention = "notification-retention"
	JobReportExportPrune     = "report-export-prune"
	JobMetricsRefresh        = "metrics-refresh"
)

const shutdownTimeout = 15 * time.Second

// CreateAdminParams holds inputs for bootstrapping an admin account.
type CreateAdminParams struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg *config.AppConfig) error {
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	return db.Migrate(conn)
}

// CreateAdmin creates a credential and admin profile through the admin auth service.
func CreateAdmin(ctx context.Context, cfg *config.AppConfig, params CreateAdminParams) (*AdminSummary, error) {
	role, errRole := adminauth.ParseRole(params.Role)
	if errRole != nil {
		return nil, errRole
	}
	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	client, errClient := baas.New(ctx, cfg, conn)
	if errClient != nil {
		return nil, errClient
	}
	sessions := session.NewManager(session.NewStore(cache.NewMemory()), cfg.JWT.Expiry)
	authSvc := adminauth.NewService(client, sessions, adminauth.Options{Issuer: cfg.TwoFactor.Issuer})
	admin, errCreate := authSvc.CreateAdminUser(ctx, params.Email, params.Password, params.DisplayName, role)
	authSvc.Wait()
	if errCreate != nil {
		return nil, errCreate
	}
	return &AdminSummary{UID: admin.UID, Email: admin.Email, Role: admin.Role}, nil
}

// AdminSummary identifies a newly created admin.
type AdminSummary struct {
	UID   string
	Email string
	Role  string
}

// RunServer boots the admin API and blocks until ctx is cancelled, then shuts down gracefully.
func RunServer(ctx context.Context, cfg *config.AppConfig) error {
	logCloser, errLog := logging.Setup(cfg.Logging)
	if errLog != nil {
		return errLog
	}
	defer closeQuietly("log file", logCloser)

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer closeDB(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errSettings := settings.Refresh(ctx, conn); errSettings != nil {
		return fmt.Errorf("load settings: %w", errSettings)
	}

	sharedCache, errCache := cache.New(cfg.Redis)
	if errCache != nil {
		return errCache
	}
	defer closeQuietly("cache", sharedCache)

	client, errClient := baas.New(ctx, cfg, conn)
	if errClient != nil {
		return errClient
	}

	verifier, errVerifier := security.NewTwoFactorVerifier(cfg.TwoFactor.Mode, cfg.TwoFactor.Skew)
	if errVerifier != nil {
		return errVerifier
	}
	if cfg.TwoFactor.Mode == config.TwoFactorModePlaceholder {
		log.Warn("two-factor placeholder mode accepts a fixed code; do not use in production")
	}

	sessions := session.NewManager(session.NewStore(sharedCache), cfg.JWT.Expiry)
	unwatch := sessions.Watch(client.Auth)
	defer unwatch()
	authSvc := adminauth.NewService(client, sessions, adminauth.Options{Verifier: verifier, Issuer: cfg.TwoFactor.Issuer})
	defer authSvc.Wait()

	refresher := metrics.NewRefresher(metrics.NewService(conn, cfg.Metrics), sharedCache, cfg.Metrics.RefreshInterval)
	refresher.Start(ctx)

	reportSvc := reports.NewService(client, cfg.Reports)
	defer reportSvc.Wait()

	scheduler, errJobs := buildScheduler(cfg, conn, reportSvc, refresher)
	if errJobs != nil {
		return errJobs
	}
	scheduler.Start()
	defer scheduler.Stop()

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(cfg.Server.TrustedProxies); errProxies != nil {
		return fmt.Errorf("trusted proxies: %w", errProxies)
	}
	engine.Use(gin.Recovery(), logging.GinLogger(), metrics.GinMiddleware(), relayhttp.RequestTimeout(cfg.Server.RequestTimeout))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	internalhttp.RegisterAdminRoutes(engine, internalhttp.Deps{
		Client:        client,
		Auth:          authSvc,
		Refresher:     refresher,
		Users:         users.NewService(client),
		Content:       content.NewService(client),
		Reports:       reportSvc,
		Notifications: notifications.NewService(client),
		Analytics:     analytics.NewService(client),
		FeatureFlags:  featureflags.NewService(client, cfg.FeatureFlags.Environment),
		Jobs:          scheduler,
		LoginLimiter:  relayhttp.NewLoginRateLimiter(cfg.Server.LoginRPS, cfg.Server.LoginBurst),
	}, cfg.JWT)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("starting admin api on %s (config=%s)", cfg.Server.Addr, cfg.ConfigPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serverErr <- errServe
		}
		close(serverErr)
	}()

	select {
	case errServe := <-serverErr:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down admin api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// buildScheduler registers the maintenance jobs.
func buildScheduler(cfg *config.AppConfig, conn *gorm.DB, reportSvc *reports.Service, refresher *metrics.Refresher) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler()

	cleaner := notifications.NewRetentionCleaner(conn, cfg.Notifications.RetentionDays)
	if errAdd := scheduler.Add(JobNotificationRetention, every(cfg.Notifications.CleanupInterval), func(ctx context.Context) error {
		_, errCleanup := cleaner.CleanupOnce(ctx)
		return errCleanup
	}); errAdd != nil {
		return nil, errAdd
	}

	pruneInterval := cfg.Reports.ExportTaskTTL / 4
	if pruneInterval < time.Minute {
		pruneInterval = time.Minute
	}
	if errAdd := scheduler.Add(JobReportExportPrune, every(pruneInterval), func(ctx context.Context) error {
		_, errPrune := reportSvc.PruneExports(ctx)
		return errPrune
	}); errAdd != nil {
		return nil, errAdd
	}

	// Daily forced refresh, also runnable on demand through the jobs API.
	if errAdd := scheduler.Add(JobMetricsRefresh, "@daily", func(ctx context.Context) error {
		_, errRefresh := refresher.Refresh(ctx)
		return errRefresh
	}); errAdd != nil {
		return nil, errAdd
	}
	return scheduler, nil
}

func every(d time.Duration) string {
	return "@every " + d.String()
}

func closeDB(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	closeQuietly("database", sqlDB)
}

func closeQuietly(name string, c io.Closer) {
	if c == nil {
		return
	}
	if errClose := c.Close(); errClose != nil {
		log.WithError(errClose).Warnf("close %s", name)
	}
}
