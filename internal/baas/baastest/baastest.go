// Package baastest builds BaaS clients over throwaway storage for tests.
package baastest

import (
	"context"
	"testing"

	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/db/dbtest"
)

// New returns a client with a migrated in-memory database and a filesystem blob store under t.TempDir.
func New(t testing.TB) *baas.Client {
	t.Helper()
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Storage.FSRoot = t.TempDir()

	client, errNew := baas.New(context.Background(), cfg, dbtest.Open(t))
	if errNew != nil {
		t.Fatalf("baas client: %v", errNew)
	}
	return client
}
