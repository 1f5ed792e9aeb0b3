package baas

import (
	"context"
	"sync"
	"testing"

	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/db/dbtest"
)

func newCredentialService(t *testing.T) *CredentialService {
	t.Helper()
	svc, errNew := NewCredentialService(context.Background(), dbtest.Open(t))
	if errNew != nil {
		t.Fatalf("new credential service: %v", errNew)
	}
	return svc
}

func TestCreateUserAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t)

	uid, errCreate := svc.CreateUser(ctx, "  Admin@UniDate.app ", "secret1")
	if errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	if uid == "" {
		t.Fatalf("expected uid")
	}

	got, errSignIn := svc.SignIn(ctx, "admin@unidate.app", "secret1")
	if errSignIn != nil {
		t.Fatalf("sign in: %v", errSignIn)
	}
	if got != uid {
		t.Fatalf("expected uid %q, got %q", uid, got)
	}

	if _, errBad := svc.SignIn(ctx, "admin@unidate.app", "wrong-pass"); !apperr.Is(errBad, apperr.KindAuth) {
		t.Fatalf("expected auth error for wrong password, got %v", errBad)
	}
	if _, errUnknown := svc.SignIn(ctx, "nobody@unidate.app", "secret1"); !apperr.Is(errUnknown, apperr.KindAuth) {
		t.Fatalf("expected auth error for unknown email, got %v", errUnknown)
	}
}

func TestCreateUserRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t)

	if _, errCreate := svc.CreateUser(ctx, "a@unidate.app", "secret1"); errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	if _, errDup := svc.CreateUser(ctx, "A@unidate.app", "secret2"); !apperr.Is(errDup, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", errDup)
	}
	if _, errWeak := svc.CreateUser(ctx, "b@unidate.app", "12345"); !apperr.Is(errWeak, apperr.KindInvalid) {
		t.Fatalf("expected invalid for weak password, got %v", errWeak)
	}
	if _, errEmail := svc.CreateUser(ctx, "not-an-email", "secret1"); !apperr.Is(errEmail, apperr.KindInvalid) {
		t.Fatalf("expected invalid for bad email, got %v", errEmail)
	}
}

func TestDisabledCredentialCannotSignIn(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t)
	uid, _ := svc.CreateUser(ctx, "c@unidate.app", "secret1")

	if errDisable := svc.SetDisabled(ctx, uid, true); errDisable != nil {
		t.Fatalf("disable: %v", errDisable)
	}
	if _, errSignIn := svc.SignIn(ctx, "c@unidate.app", "secret1"); !apperr.Is(errSignIn, apperr.KindAuth) {
		t.Fatalf("expected disabled credential to fail, got %v", errSignIn)
	}
}

func TestAuthStateEvents(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t)
	uid, _ := svc.CreateUser(ctx, "d@unidate.app", "secret1")

	var mu sync.Mutex
	var events []AuthEvent
	unsubscribe := svc.OnAuthStateChanged(func(ev AuthEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	if _, errSignIn := svc.SignIn(ctx, "d@unidate.app", "secret1"); errSignIn != nil {
		t.Fatalf("sign in: %v", errSignIn)
	}
	svc.SignOut(ctx, uid)
	unsubscribe()
	unsubscribe()
	svc.SignOut(ctx, uid)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != AuthSignedIn || events[1].Type != AuthSignedOut {
		t.Fatalf("unexpected event order: %+v", events)
	}
	if events[1].UID != uid {
		t.Fatalf("expected uid %q, got %q", uid, events[1].UID)
	}
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t)
	uid, _ := svc.CreateUser(ctx, "e@unidate.app", "secret1")

	if errDelete := svc.DeleteUser(ctx, uid); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}
	if errDelete := svc.DeleteUser(ctx, uid); !apperr.Is(errDelete, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", errDelete)
	}
	if _, errSignIn := svc.SignIn(ctx, "e@unidate.app", "secret1"); !apperr.Is(errSignIn, apperr.KindAuth) {
		t.Fatalf("expected deleted credential to fail sign in, got %v", errSignIn)
	}
}

func TestNewClientFallsBackToNilHandles(t *testing.T) {
	ctx := context.Background()
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Storage.Driver = "bogus"

	client, errNew := New(ctx, cfg, dbtest.Open(t))
	if errNew != nil {
		t.Fatalf("new client: %v", errNew)
	}
	if !client.AuthReady() {
		t.Fatalf("expected auth ready")
	}
	if client.BlobsReady() {
		t.Fatalf("expected blobs unavailable for unknown driver")
	}
	if _, errBlobs := client.RequireBlobs("test"); !apperr.Is(errBlobs, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", errBlobs)
	}
}

func TestNewClientRequireAuthFailsWithoutTables(t *testing.T) {
	ctx := context.Background()
	cfg := &config.AppConfig{}
	cfg.ApplyDefaults()
	cfg.Storage.FSRoot = t.TempDir()

	conn := dbtest.Open(t)
	if errDrop := conn.Migrator().DropTable("credentials"); errDrop != nil {
		t.Fatalf("drop table: %v", errDrop)
	}

	client, errNew := New(ctx, cfg, conn)
	if errNew != nil {
		t.Fatalf("expected soft failure, got %v", errNew)
	}
	if client.AuthReady() {
		t.Fatalf("expected auth unavailable")
	}
	if !client.BlobsReady() {
		t.Fatalf("expected fs blobs ready")
	}

	cfg.BaaS.RequireAuth = true
	if _, errStrict := New(ctx, cfg, conn); errStrict == nil {
		t.Fatalf("expected require_auth to abort")
	}
}
