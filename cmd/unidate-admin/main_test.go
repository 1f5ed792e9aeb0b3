package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"explode"}, &out)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(out.String(), "usage:") {
		t.Fatalf("expected usage, got %q", out.String())
	}
}

func TestRunCreateAdminRequiresCredentials(t *testing.T) {
	err := run(context.Background(), []string{"create-admin", "-email", "a@b.test"}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Fatalf("expected required flag error, got %v", err)
	}
}

func TestRunMigrateAndCreateAdmin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UNIDATE_DATABASE_DSN", filepath.Join(dir, "admin.db"))
	t.Setenv("UNIDATE_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("UNIDATE_STORAGE_FS_ROOT", filepath.Join(dir, "blobs"))

	if err := run(context.Background(), []string{"migrate"}, &bytes.Buffer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var out bytes.Buffer
	args := []string{"create-admin", "-email", "root@unidate.test", "-password", "password123", "-name", "Root", "-role", "super-admin"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("create-admin: %v", err)
	}
	if !strings.Contains(out.String(), "root@unidate.test") {
		t.Fatalf("unexpected output %q", out.String())
	}

	if err := run(context.Background(), args, &bytes.Buffer{}); err == nil {
		t.Fatal("expected duplicate admin to fail")
	}
}

func TestRunCreateAdminDefaultsDisplayName(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("UNIDATE_DATABASE_DSN", filepath.Join(dir, "admin.db"))
	t.Setenv("UNIDATE_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("UNIDATE_STORAGE_FS_ROOT", filepath.Join(dir, "blobs"))

	var out bytes.Buffer
	args := []string{"create-admin", "-email", "ops@unidate.test", "-password", "password123", "-role", "moderator"}
	if err := run(context.Background(), args, &out); err != nil {
		t.Fatalf("create-admin without -name: %v", err)
	}
	if !strings.Contains(out.String(), "ops@unidate.test") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
