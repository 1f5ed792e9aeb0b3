// Package cache stores short-lived values shared by the session store and the metrics refresher.
package cache

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/config"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is a byte-valued key store with per-entry expiry. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New returns a Redis cache when a URL is configured, otherwise an in-process cache.
func New(cfg config.RedisConfig) (Cache, error) {
	if cfg.URL == "" {
		log.Info("cache: using in-memory store")
		return NewMemory(), nil
	}
	redisCache, err := NewRedis(cfg.URL, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	log.Info("cache: using redis store")
	return redisCache, nil
}
