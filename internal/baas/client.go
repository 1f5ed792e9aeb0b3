// Package baas adapts the self-hosted backend services (credentials, documents, blobs)
// consumed by the admin console.
package baas

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas/blob"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/util"
	"gorm.io/gorm"
)

const defaultCallTimeout = 10 * time.Second

// Client holds the service handles. Auth and Blobs are nil when their initialization failed.
type Client struct {
	Auth  *CredentialService
	DB    *gorm.DB
	Blobs blob.Store

	callTimeout time.Duration
}

// New initializes every handle. A failing sub-service is logged and left nil unless
// cfg.BaaS.RequireAuth makes credential failures fatal.
func New(ctx context.Context, cfg *config.AppConfig, conn *gorm.DB) (*Client, error) {
	if conn == nil {
		return nil, errors.New("baas: database handle is nil")
	}
	client := &Client{DB: conn, callTimeout: defaultCallTimeout}
	if cfg == nil {
		cfg = &config.AppConfig{}
		cfg.ApplyDefaults()
	}
	if cfg.BaaS.CallTimeout > 0 {
		client.callTimeout = cfg.BaaS.CallTimeout
	}

	fields := log.Fields{"project_id": cfg.BaaS.ProjectID}
	if cfg.BaaS.APIKey != "" {
		fields["api_key"] = util.MaskSecret(cfg.BaaS.APIKey)
	}
	log.WithFields(fields).Info("baas: initializing client")

	auth, errAuth := NewCredentialService(ctx, conn)
	if errAuth != nil {
		if cfg.BaaS.RequireAuth {
			return nil, fmt.Errorf("baas: init auth: %w", errAuth)
		}
		log.WithError(errAuth).Error("baas: auth unavailable, continuing without it")
	} else {
		client.Auth = auth
	}

	blobs, errBlobs := newBlobStore(ctx, cfg.Storage)
	if errBlobs != nil {
		log.WithError(errBlobs).WithField("driver", cfg.Storage.Driver).Error("baas: blob store unavailable, continuing without it")
	} else {
		client.Blobs = blobs
	}
	return client, nil
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (blob.Store, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		s, err := blob.NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageDriverFS, "":
		s, err := blob.NewFS(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("baas: unknown storage driver %q", cfg.Driver)
	}
}

// AuthReady reports whether the credential service is usable.
func (c *Client) AuthReady() bool { return c != nil && c.Auth != nil }

// BlobsReady reports whether the blob store is usable.
func (c *Client) BlobsReady() bool { return c != nil && c.Blobs != nil }

// RequireAuth returns the credential service or an unavailable error.
func (c *Client) RequireAuth(op string) (*CredentialService, error) {
	if !c.AuthReady() {
		return nil, apperr.New(apperr.KindUnavailable, op, "authentication service unavailable")
	}
	return c.Auth, nil
}

// RequireBlobs returns the blob store or an unavailable error.
func (c *Client) RequireBlobs(op string) (blob.Store, error) {
	if !c.BlobsReady() {
		return nil, apperr.New(apperr.KindUnavailable, op, "storage service unavailable")
	}
	return c.Blobs, nil
}

// WithTimeout bounds a single remote call.
func (c *Client) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := defaultCallTimeout
	if c != nil && c.callTimeout > 0 {
		timeout = c.callTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
