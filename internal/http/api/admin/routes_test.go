package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidate/unidate-admin/internal/adminauth"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/baas/baastest"
	"github.com/unidate/unidate-admin/internal/cache"
	"github.com/unidate/unidate-admin/internal/config"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/jobs"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/services/analytics"
	"github.com/unidate/unidate-admin/internal/services/content"
	"github.com/unidate/unidate-admin/internal/services/featureflags"
	"github.com/unidate/unidate-admin/internal/services/notifications"
	"github.com/unidate/unidate-admin/internal/services/reports"
	"github.com/unidate/unidate-admin/internal/services/users"
	"github.com/unidate/unidate-admin/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	engine *gin.Engine
	client *baas.Client
	auth   *adminauth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithLimiter(t, relayhttp.NewLoginRateLimiter(100, 100))
}

func newTestServerWithLimiter(t *testing.T, limiter *relayhttp.LoginRateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	client := baastest.New(t)
	sessions := session.NewManager(session.NewStore(cache.NewMemory()), time.Hour)
	authSvc := adminauth.NewService(client, sessions, adminauth.Options{Verifier: security.PlaceholderVerifier{}})
	t.Cleanup(authSvc.Wait)

	reportSvc := reports.NewService(client, config.ReportsConfig{ExportTaskTTL: time.Hour, ExportMaxTasks: 4})
	t.Cleanup(reportSvc.Wait)

	scheduler := jobs.NewScheduler()
	require.NoError(t, scheduler.Add("noop", "@every 1h", func(context.Context) error { return nil }))

	engine := gin.New()
	RegisterAdminRoutes(engine, Deps{
		Client:        client,
		Auth:          authSvc,
		Refresher:     metrics.NewRefresher(metrics.NewService(client.DB, config.MetricsConfig{}), cache.NewMemory(), time.Minute),
		Users:         users.NewService(client),
		Content:       content.NewService(client),
		Reports:       reportSvc,
		Notifications: notifications.NewService(client),
		Analytics:     analytics.NewService(client),
		FeatureFlags:  featureflags.NewService(client, "production"),
		Jobs:          scheduler,
		LoginLimiter:  limiter,
	}, config.JWTConfig{Secret: testSecret, Expiry: time.Hour})

	return &testServer{engine: engine, client: client, auth: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) login(t *testing.T, email, password string) map[string]any {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)
}

func (s *testServer) adminToken(t *testing.T, role adminauth.Role) string {
	t.Helper()
	email := strings.ToLower(string(role)) + "@unidate.test"
	_, err := s.auth.CreateAdminUser(context.Background(), email, "password123", "Test "+string(role), role)
	require.NoError(t, err)
	resp := s.login(t, email, "password123")
	require.Equal(t, string(session.StateAuthenticated), resp["state"])
	return resp["token"].(string)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ok"])
}

func TestLoginErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"email": "nobody@unidate.test", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "auth", decode(t, w)["kind"])

	_, err := s.client.Auth.CreateUser(context.Background(), "student@unidate.test", "password123")
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"email": "student@unidate.test", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "not_admin", decode(t, w)["kind"])
}

func TestTwoFactorLoginFlow(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	admin, err := s.auth.CreateAdminUser(ctx, "mfa@unidate.test", "password123", "MFA", adminauth.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, s.auth.EnableTwoFactor(ctx, admin.UID, "SECRET"))

	resp := s.login(t, "mfa@unidate.test", "password123")
	assert.Equal(t, string(session.StateAwaitingCode), resp["state"])
	pending := resp["token"].(string)

	w := s.do(t, http.MethodGet, "/v0/admin/dashboard/metrics", pending, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "000000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "two_factor", decode(t, w)["kind"])

	w = s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "123456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verified := decode(t, w)
	assert.Equal(t, string(session.StateAuthenticated), verified["state"])

	token := verified["token"].(string)
	w = s.do(t, http.MethodGet, "/v0/admin/session", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/v0/admin/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/v0/admin/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyTwoFactorIsThrottledAndCapped(t *testing.T) {
	s := newTestServerWithLimiter(t, relayhttp.NewLoginRateLimiter(0.001, 4))
	ctx := context.Background()
	admin, err := s.auth.CreateAdminUser(ctx, "brute@unidate.test", "password123", "Brute", adminauth.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, s.auth.EnableTwoFactor(ctx, admin.UID, "SECRET"))

	pending := s.login(t, "brute@unidate.test", "password123")["token"].(string)

	codes := map[int]int{}
	for i := 0; i < 10; i++ {
		w := s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "000000"})
		codes[w.Code]++
	}
	assert.Equal(t, map[int]int{http.StatusUnauthorized: 3, http.StatusTooManyRequests: 7}, codes)

	w := s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "123456"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestVerifyTwoFactorClosesSessionAfterFailedCodes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	admin, err := s.auth.CreateAdminUser(ctx, "cap@unidate.test", "password123", "Cap", adminauth.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, s.auth.EnableTwoFactor(ctx, admin.UID, "SECRET"))

	pending := s.login(t, "cap@unidate.test", "password123")["token"].(string)
	for i := 0; i < 5; i++ {
		w := s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "000000"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "two_factor", decode(t, w)["kind"])
	}

	w := s.do(t, http.MethodPost, "/v0/admin/login/verify-2fa", pending, gin.H{"code": "123456"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode(t, w)["kind"])
}

func TestPermissionGates(t *testing.T) {
	s := newTestServer(t)
	moderator := s.adminToken(t, adminauth.RoleModerator)

	w := s.do(t, http.MethodGet, "/v0/admin/users", moderator, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/admins", moderator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/settings", moderator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/permissions", moderator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	perms := decode(t, w)["permissions"].([]any)
	assert.NotEmpty(t, perms)
}

func TestUserListAndActions(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t, adminauth.RoleSuperAdmin)
	base := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.AppUser{
		{ID: "u1", Name: "Ada", Email: "ada@mit.edu", University: "MIT", Status: models.UserStatusActive, Verified: true, CreatedAt: base},
		{ID: "u2", Name: "Bo", Email: "bo@mit.edu", University: "MIT", Status: models.UserStatusActive, CreatedAt: base.AddDate(0, 0, 1)},
		{ID: "u3", Name: "Cy", Email: "cy@ucla.edu", University: "UCLA", Status: models.UserStatusBanned, CreatedAt: base.AddDate(0, 0, 2)},
	}
	require.NoError(t, s.client.DB.Create(&rows).Error)

	w := s.do(t, http.MethodGet, "/v0/admin/users?university=MIT&verified=false", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	items := body["users"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "u2", items[0].(map[string]any)["id"])

	w = s.do(t, http.MethodGet, "/v0/admin/users?page=2&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.EqualValues(t, 2, body["total_pages"])
	assert.Len(t, body["users"].([]any), 1)

	w = s.do(t, http.MethodPost, "/v0/admin/users/u1/actions/suspend", token, gin.H{"days": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, true, result["persisted"])
	assert.Equal(t, "suspend", result["action"])

	w = s.do(t, http.MethodPost, "/v0/admin/users/missing/actions/ban", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/v0/admin/users/u1/actions/explode", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/users/universities", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["universities"].([]any), 2)
}

func TestReportExportDownload(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t, adminauth.RoleSuperAdmin)
	require.NoError(t, s.client.DB.Create(&models.Report{
		ID: "r1", Type: "user", TargetID: "u1", ReporterID: "u2", Reason: "Spam", Status: models.ReportStatusPending, Priority: "low",
	}).Error)

	w := s.do(t, http.MethodPost, "/v0/admin/reports/export?status=pending", token, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	taskID := decode(t, w)["task"].(map[string]any)["taskId"].(string)

	require.Eventually(t, func() bool {
		w := s.do(t, http.MethodGet, "/v0/admin/reports/export/"+taskID, token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		return decode(t, w)["task"].(map[string]any)["status"] == reports.ExportStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)

	w = s.do(t, http.MethodGet, "/v0/admin/reports/export/"+taskID+"/download", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "r1")

	w = s.do(t, http.MethodPost, "/v0/admin/reports/r1/actions/resolve", token, gin.H{"resolution": "warned"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/v0/admin/reports/r1/actions/dismiss", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNotificationsAndSettings(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t, adminauth.RoleSuperAdmin)

	w := s.do(t, http.MethodPost, "/v0/admin/notifications", token, gin.H{
		"title": "Maintenance", "message": "Tonight", "type": "info", "audience": "all",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode(t, w)["result"].(map[string]any)
	assert.Equal(t, true, result["persisted"])

	w = s.do(t, http.MethodGet, "/v0/admin/notifications?status=unread", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["unread"])

	w = s.do(t, http.MethodPost, "/v0/admin/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPut, "/v0/admin/settings/SITE_NAME", token, gin.H{"value": "UniDate Ops"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPut, "/v0/admin/settings/JWT_SECRET", token, gin.H{"value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/v0/admin/jobs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/v0/admin/jobs/missing/run", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardAndFlags(t *testing.T) {
	s := newTestServer(t)
	token := s.adminToken(t, adminauth.RoleSuperAdmin)

	w := s.do(t, http.MethodGet, "/v0/admin/dashboard/metrics", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w), "metrics")

	w = s.do(t, http.MethodGet, "/v0/admin/analytics/overview?range=7d", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/v0/admin/analytics/overview?range=12d", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v0/admin/feature-flags", token, gin.H{"key": "new_matching", "name": "New matching", "rolloutPercentage": 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/v0/admin/feature-flags/new_matching/toggle", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/v0/admin/feature-flags/new_matching/evaluate?uid=u1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	eval := decode(t, w)["evaluation"].(map[string]any)
	assert.Equal(t, true, eval["enabled"])
}
