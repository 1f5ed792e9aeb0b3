package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/session"
)

const testSecret = "test-secret-test-secret-test-secret"

type stubAuthorizer struct {
	sess  *session.AdminSession
	admin *models.AdminUser
	err   error
}

func (s stubAuthorizer) Authorize(_ context.Context, _ string) (*session.AdminSession, *models.AdminUser, error) {
	return s.sess, s.admin, s.err
}

func runRequestWithMiddleware(t *testing.T, middleware gin.HandlerFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware)
	router.GET("/*path", func(c *gin.Context) {
		if _, ok := session.FromContext(c.Request.Context()); !ok {
			if _, okID := c.Get(ContextSessionID); !okID {
				c.Status(http.StatusTeapot)
				return
			}
		}
		c.Status(http.StatusNoContent)
	})

	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v0/admin/session", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(responseRecorder, req)
	return responseRecorder
}

func mustToken(t *testing.T, uid, sessionID string) string {
	t.Helper()
	token, err := security.GenerateAdminToken(testSecret, uid, uid+"@unidate.app", sessionID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestAdminAuthMiddlewareRejectsMissingAndMalformedTokens(t *testing.T) {
	mw := AdminAuthMiddleware(testSecret, stubAuthorizer{})
	for _, header := range []string{"", "Token abc", "Bearer   ", "Bearer not-a-jwt"} {
		rec := runRequestWithMiddleware(t, mw, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestAdminAuthMiddlewareMapsAuthorizeErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.New(apperr.KindTwoFactor, "test", "two-factor verification required"), http.StatusUnauthorized},
		{apperr.New(apperr.KindAccountDisabled, "test", "admin account is disabled"), http.StatusForbidden},
		{apperr.New(apperr.KindUnavailable, "test", "auth not ready"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		mw := AdminAuthMiddleware(testSecret, stubAuthorizer{err: tc.err})
		rec := runRequestWithMiddleware(t, mw, "Bearer "+mustToken(t, "u1", "s1"))
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}
}

func TestAdminAuthMiddlewarePlacesSessionOnContext(t *testing.T) {
	sess := &session.AdminSession{ID: "s1", State: session.StateAuthenticated}
	admin := &models.AdminUser{UID: "u1", IsActive: true}
	mw := AdminAuthMiddleware(testSecret, stubAuthorizer{sess: sess, admin: admin})

	rec := runRequestWithMiddleware(t, mw, "Bearer "+mustToken(t, "u1", "s1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = runRequestWithMiddleware(t, mw, "Bearer "+mustToken(t, "someone-else", "s1"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mismatched uid, got %d", rec.Code)
	}
}

func TestSessionTokenMiddlewareAcceptsPendingSessions(t *testing.T) {
	rec := runRequestWithMiddleware(t, SessionTokenMiddleware(testSecret), "Bearer "+mustToken(t, "u1", "pending"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestLoginRateLimiterBlocksBurstAndEvictsIdle(t *testing.T) {
	rl := NewLoginRateLimiter(0.001, 2)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rl.cache.now = func() time.Time { return now }

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	do := func() int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := do(); code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, code)
		}
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	now = now.Add(limiterIdleTTL + 2*limiterSweepInterval)
	rl.cache.allow("10.0.0.2")
	if got := rl.cache.size(); got != 1 {
		t.Fatalf("expected idle limiter to be evicted, cache size %d", got)
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestTimeout(time.Second))
	router.GET("/x", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected deadline on request context, got %d", rec.Code)
	}
}
