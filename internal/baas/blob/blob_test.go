package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"exports/reports.csv", "a", "evidence/2026/10/x.png"} {
		if err := ValidateKey(key); err != nil {
			t.Fatalf("expected %q valid, got %v", key, err)
		}
	}
	for _, key := range []string{"", "/etc/passwd", "../x", "a/../b", "a//b", "a/./b", "a\\b", "a/"} {
		if err := ValidateKey(key); err == nil {
			t.Fatalf("expected %q rejected", key)
		}
	}
}

func TestFSRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, errNew := NewFS(t.TempDir())
	if errNew != nil {
		t.Fatalf("new fs: %v", errNew)
	}

	if errPut := store.Put(ctx, "exports/r.csv", strings.NewReader("id,status\n1,pending\n"), -1, "text/csv"); errPut != nil {
		t.Fatalf("put: %v", errPut)
	}
	exists, errExists := store.Exists(ctx, "exports/r.csv")
	if errExists != nil || !exists {
		t.Fatalf("expected blob exists, got %v %v", exists, errExists)
	}

	rc, errGet := store.Get(ctx, "exports/r.csv")
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "id,status\n1,pending\n" {
		t.Fatalf("unexpected body %q", body)
	}

	if errDelete := store.Delete(ctx, "exports/r.csv"); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if _, errGet := store.Get(ctx, "exports/r.csv"); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", errGet)
	}
	if errDelete := store.Delete(ctx, "exports/r.csv"); errDelete != nil {
		t.Fatalf("expected deleting a missing key to succeed, got %v", errDelete)
	}
}

func TestFSPutHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store, _ := NewFS(t.TempDir())
	if errPut := store.Put(ctx, "x.txt", strings.NewReader("data"), 4, ""); errPut == nil {
		t.Fatalf("expected cancelled put to fail")
	}
	if exists, _ := store.Exists(context.Background(), "x.txt"); exists {
		t.Fatalf("expected no partial blob committed")
	}
}
