package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/cache"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/db/dbtest"
	"github.com/unidate/unidate-admin/internal/models"
)

func TestGetMetricsEmptyPlatformIsAllZero(t *testing.T) {
	svc := NewService(dbtest.Open(t), config.MetricsConfig{})
	snap, err := svc.GetMetrics(context.Background())
	require.NoError(t, err)

	assert.Zero(t, snap.TotalUsers)
	assert.Zero(t, snap.ActiveUsers)
	assert.Zero(t, snap.NewUsers)
	assert.Zero(t, snap.TotalPosts)
	assert.Zero(t, snap.TotalGroups)
	assert.Zero(t, snap.PendingReports)
	assert.Equal(t, 0.0, snap.EngagementRate)
	assert.False(t, snap.LastUpdated.IsZero())
}

func TestGetMetricsCountsWindows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-72 * time.Hour)

	users := []models.AppUser{
		{ID: "u1", Name: "A", Email: "a@x.edu", University: "MIT", Status: models.UserStatusActive, LastActiveAt: &recent, CreatedAt: now.Add(-24 * time.Hour)},
		{ID: "u2", Name: "B", Email: "b@x.edu", University: "MIT", Status: models.UserStatusActive, LastActiveAt: &stale, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "u3", Name: "C", Email: "c@x.edu", University: "UCLA", Status: models.UserStatusBanned, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}
	require.NoError(t, conn.Create(&users).Error)
	posts := []models.Post{
		{ID: "p1", AuthorID: "u1", AuthorName: "A", Content: "hi", Status: models.PostStatusApproved},
		{ID: "p2", AuthorID: "u1", AuthorName: "A", Content: "hey", Status: models.PostStatusReported},
	}
	require.NoError(t, conn.Create(&posts).Error)
	require.NoError(t, conn.Create(&models.Group{ID: "g1", Name: "Chess"}).Error)
	require.NoError(t, conn.Create(&[]models.Report{
		{ID: "r1", Type: "post", TargetID: "p2", Reason: "spam", Status: models.ReportStatusPending},
		{ID: "r2", Type: "user", TargetID: "u3", Reason: "abuse", Status: models.ReportStatusResolved},
	}).Error)

	snap, err := NewService(conn, config.MetricsConfig{}).GetMetrics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, snap.TotalUsers)
	assert.EqualValues(t, 1, snap.ActiveUsers)
	assert.EqualValues(t, 1, snap.NewUsers)
	assert.EqualValues(t, 2, snap.TotalPosts)
	assert.EqualValues(t, 1, snap.TotalGroups)
	assert.EqualValues(t, 1, snap.PendingReports)
	assert.Equal(t, 0.67, snap.EngagementRate)
}

func TestGetMetricsPropagatesReadErrors(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Migrator().DropTable("community_groups"))

	snap, err := NewService(conn, config.MetricsConfig{}).GetMetrics(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRead), "got %v", err)
	assert.Equal(t, Snapshot{}, snap)
}

func TestEngagementRate(t *testing.T) {
	assert.Equal(t, 0.0, EngagementRate(10, 0))
	assert.Equal(t, 2.5, EngagementRate(5, 2))
	assert.Equal(t, 0.33, EngagementRate(1, 3))
}

func TestRefresherCachesAndPublishesGauges(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Create(&models.AppUser{ID: "u1", Name: "A", Email: "a@x.edu", University: "MIT", Status: models.UserStatusActive}).Error)

	mem := cache.NewMemory()
	r := NewRefresher(NewService(conn, config.MetricsConfig{}), mem, time.Minute)
	require.NotNil(t, r)

	first, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.TotalUsers)
	assert.Equal(t, 1.0, testutil.ToFloat64(PlatformEntities.WithLabelValues("users")))

	require.NoError(t, conn.Create(&models.AppUser{ID: "u2", Name: "B", Email: "b@x.edu", University: "MIT", Status: models.UserStatusActive}).Error)
	cached, err := r.Latest(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, cached.TotalUsers, "served from cache until the next refresh")

	fresh, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, fresh.TotalUsers)
}

// setHookCache calls onSet before each write, marking the end of a refresh.
type setHookCache struct {
	cache.Cache
	onSet func()
}

func (c setHookCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.onSet()
	return c.Cache.Set(ctx, key, value, ttl)
}

func TestRefresherNeverOverlapsRefreshes(t *testing.T) {
	svc := NewService(dbtest.Open(t), config.MetricsConfig{})
	var started, inFlight, maxInFlight atomic.Int32
	release := make(chan struct{})
	svc.now = func() time.Time {
		started.Add(1)
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		return time.Now()
	}
	r := NewRefresher(svc, setHookCache{Cache: cache.NewMemory(), onSet: func() { inFlight.Add(-1) }}, time.Minute)

	const callers = 4
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Refresh(context.Background())
			assert.NoError(t, err)
		}()
	}

	for i := int32(1); i <= callers; i++ {
		require.Eventually(t, func() bool { return started.Load() == i }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, i, started.Load(), "a second refresh started while one was running")
		release <- struct{}{}
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxInFlight.Load())
	assert.Zero(t, inFlight.Load())
}

func TestGinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/v0/admin/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v0/admin/users/:id", "204"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v0/admin/users/abc", nil))
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v0/admin/users/:id", "204"))
	assert.Equal(t, before+1, after)
}
