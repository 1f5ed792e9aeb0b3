package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/cache"
	internalsettings "github.com/unidate/unidate-admin/internal/settings"
)

const snapshotCacheKey = "metrics:snapshot"

// Refresher recomputes the dashboard snapshot on an interval and serves the cached copy.
// Refreshes are serialized, so a slow computation delays the next one instead of overlapping it.
type Refresher struct {
	svc      *Service
	cache    cache.Cache
	interval time.Duration

	mu sync.Mutex
}

// NewRefresher builds a Refresher. The interval can be overridden at runtime by the
// METRICS_REFRESH_INTERVAL_SECONDS setting.
func NewRefresher(svc *Service, c cache.Cache, interval time.Duration) *Refresher {
	if svc == nil || c == nil {
		return nil
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{svc: svc, cache: c, interval: interval}
}

// Start launches the refresh loop in a background goroutine.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go r.run(ctx)
	log.Infof("metrics refresher started (interval=%s)", r.resolveInterval())
}

func (r *Refresher) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, errRefresh := r.Refresh(ctx); errRefresh != nil && ctx.Err() == nil {
			log.WithError(errRefresh).Warn("metrics refresher: refresh failed")
		}
		timer := time.NewTimer(r.resolveInterval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (r *Refresher) resolveInterval() time.Duration {
	seconds := internalsettings.Int(internalsettings.MetricsRefreshIntervalSecondsKey, 0)
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return r.interval
}

// Refresh computes a snapshot now and caches it. Concurrent callers wait for the running refresh.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	snap, err := r.svc.GetMetrics(ctx)
	SnapshotRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		SnapshotRefreshesTotal.WithLabelValues("failure").Inc()
		return Snapshot{}, err
	}
	SnapshotRefreshesTotal.WithLabelValues("success").Inc()
	observeSnapshot(snap)

	if raw, errEncode := json.Marshal(snap); errEncode == nil {
		if errSet := r.cache.Set(ctx, snapshotCacheKey, raw, 2*r.resolveInterval()); errSet != nil {
			log.WithError(errSet).Warn("metrics refresher: cache snapshot failed")
		}
	}
	return snap, nil
}

// Latest returns the cached snapshot, computing one when none is cached.
func (r *Refresher) Latest(ctx context.Context) (Snapshot, error) {
	raw, errGet := r.cache.Get(ctx, snapshotCacheKey)
	if errGet == nil {
		var snap Snapshot
		if errDecode := json.Unmarshal(raw, &snap); errDecode == nil {
			return snap, nil
		}
	} else if !errors.Is(errGet, cache.ErrMiss) {
		log.WithError(errGet).Warn("metrics refresher: read cached snapshot failed")
	}
	return r.Refresh(ctx)
}
