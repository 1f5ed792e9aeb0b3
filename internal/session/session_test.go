package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/cache"
	"github.com/unidate/unidate-admin/internal/db/dbtest"
	"github.com/unidate/unidate-admin/internal/models"
)

func TestTransitions(t *testing.T) {
	cases := []struct {
		name   string
		events []Event
		want   State
	}{
		{"no two-factor", []Event{EventUserPresent, EventAdminNo2FA}, StateAuthenticated},
		{"two-factor pending", []Event{EventUserPresent, EventAdmin2FA}, StateAwaitingCode},
		{"two-factor verified", []Event{EventUserPresent, EventAdmin2FA, EventCodeVerified}, StateAuthenticated},
		{"not admin", []Event{EventUserPresent, EventProfileMissing}, StateNotAdmin},
		{"not admin signs out", []Event{EventUserPresent, EventProfileMissing, EventSignOut}, StateSignedOut},
		{"logout", []Event{EventUserPresent, EventAdminNo2FA, EventSignOut}, StateSignedOut},
	}
	for _, tc := range cases {
		state := StateSignedOut
		for _, ev := range tc.events {
			next, err := Next(state, ev)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			state = next
		}
		if state != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, state)
		}
	}
}

func TestIllegalTransitions(t *testing.T) {
	illegal := []struct {
		from State
		ev   Event
	}{
		{StateSignedOut, EventCodeVerified},
		{StateSignedOut, EventAdminNo2FA},
		{StateProfileLookup, EventCodeVerified},
		{StateNotAdmin, EventAdminNo2FA},
		{StateAuthenticated, EventCodeVerified},
		{StateAuthenticated, EventAdmin2FA},
	}
	for _, tc := range illegal {
		next, err := Next(tc.from, tc.ev)
		if !errors.Is(err, ErrIllegalTransition) {
			t.Fatalf("expected illegal transition for %s on %s, got %v", tc.ev, tc.from, err)
		}
		if next != tc.from {
			t.Fatalf("expected state unchanged, got %s", next)
		}
	}
}

func TestAttachDerivesTwoFactorFlags(t *testing.T) {
	s, errNew := New(time.Now(), time.Hour)
	if errNew != nil {
		t.Fatalf("new session: %v", errNew)
	}
	if errAdvance := s.Advance(EventUserPresent); errAdvance != nil {
		t.Fatalf("advance: %v", errAdvance)
	}
	if errAttach := s.Attach(models.AdminUser{UID: "u1", TwoFactorEnabled: true, TwoFactorSecret: "SECRET"}); errAttach != nil {
		t.Fatalf("attach: %v", errAttach)
	}
	if !s.RequiresTwoFactor || s.TwoFactorVerified {
		t.Fatalf("expected pending two-factor, got %+v", s)
	}
	if s.User.TwoFactorSecret != "" {
		t.Fatalf("expected secret stripped from session")
	}
	if s.Ready(time.Now()) {
		t.Fatalf("expected awaiting-code session not ready")
	}
	if errVerify := s.Advance(EventCodeVerified); errVerify != nil {
		t.Fatalf("verify: %v", errVerify)
	}
	if !s.TwoFactorVerified || !s.Ready(time.Now()) {
		t.Fatalf("expected verified ready session")
	}

	plain, _ := New(time.Now(), time.Hour)
	_ = plain.Advance(EventUserPresent)
	_ = plain.Attach(models.AdminUser{UID: "u2"})
	if plain.RequiresTwoFactor || !plain.TwoFactorVerified {
		t.Fatalf("expected immediate verification without two-factor, got %+v", plain)
	}
}

func TestStoreRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(cache.NewMemory())
	mgr := NewManager(store, time.Hour)

	s, errBegin := mgr.Begin()
	if errBegin != nil {
		t.Fatalf("begin: %v", errBegin)
	}
	_ = s.Attach(models.AdminUser{UID: "u1", Email: "a@unidate.app"})
	if errSave := mgr.Save(ctx, s); errSave != nil {
		t.Fatalf("save: %v", errSave)
	}

	loaded, errLoad := mgr.Load(ctx, s.ID)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if loaded.State != StateAuthenticated || loaded.User.UID != "u1" {
		t.Fatalf("unexpected session %+v", loaded)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, errExpired := mgr.Load(ctx, s.ID); !errors.Is(errExpired, ErrNotFound) {
		t.Fatalf("expected expired session missing, got %v", errExpired)
	}
}

func TestCloseRemovesSession(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewStore(cache.NewMemory()), time.Hour)
	s, _ := mgr.Begin()
	_ = s.Attach(models.AdminUser{UID: "u1"})
	_ = mgr.Save(ctx, s)

	if errClose := mgr.Close(ctx, s.ID); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}
	if _, errLoad := mgr.Load(ctx, s.ID); !errors.Is(errLoad, ErrNotFound) {
		t.Fatalf("expected closed session gone, got %v", errLoad)
	}
}

func TestWatchClosesSessionsOnCredentialSignOut(t *testing.T) {
	ctx := context.Background()
	auth, errAuth := baas.NewCredentialService(ctx, dbtest.Open(t))
	if errAuth != nil {
		t.Fatalf("credential service: %v", errAuth)
	}
	mgr := NewManager(NewStore(cache.NewMemory()), time.Hour)
	unsubscribe := mgr.Watch(auth)
	defer unsubscribe()

	var ids []string
	for i := 0; i < 2; i++ {
		s, _ := mgr.Begin()
		_ = s.Attach(models.AdminUser{UID: "u1"})
		if errSave := mgr.Save(ctx, s); errSave != nil {
			t.Fatalf("save: %v", errSave)
		}
		ids = append(ids, s.ID)
	}
	other, _ := mgr.Begin()
	_ = other.Attach(models.AdminUser{UID: "u2"})
	_ = mgr.Save(ctx, other)

	auth.SignOut(ctx, "u1")

	for _, id := range ids {
		if _, errLoad := mgr.Load(ctx, id); !errors.Is(errLoad, ErrNotFound) {
			t.Fatalf("expected session %s closed, got %v", id, errLoad)
		}
	}
	if _, errLoad := mgr.Load(ctx, other.ID); errLoad != nil {
		t.Fatalf("expected other user's session kept, got %v", errLoad)
	}
}
