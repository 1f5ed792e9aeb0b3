package session

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/baas"
)

// authEventTimeout bounds session cleanup triggered by a credential event.
const authEventTimeout = 5 * time.Second

// Manager creates, loads and closes sessions.
type Manager struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager returns a Manager issuing sessions that live for ttl.
func NewManager(store *Store, ttl time.Duration) *Manager {
	return &Manager{store: store, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of new sessions.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Begin returns a session that has just seen a valid credential.
func (m *Manager) Begin() (*AdminSession, error) {
	s, err := New(m.now(), m.ttl)
	if err != nil {
		return nil, err
	}
	if err := s.Advance(EventUserPresent); err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists s.
func (m *Manager) Save(ctx context.Context, s *AdminSession) error {
	return m.store.Save(ctx, s)
}

// Load returns the live session with id.
func (m *Manager) Load(ctx context.Context, id string) (*AdminSession, error) {
	return m.store.Get(ctx, id)
}

// Advance applies ev to the stored session and saves the result.
func (m *Manager) Advance(ctx context.Context, id string, ev Event) (*AdminSession, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if errAdvance := s.Advance(ev); errAdvance != nil {
		return nil, errAdvance
	}
	if s.State == StateSignedOut {
		return s, m.store.Delete(ctx, id)
	}
	if errSave := m.store.Save(ctx, s); errSave != nil {
		return nil, errSave
	}
	return s, nil
}

// RecordFailedCode counts a rejected verification code on the stored session.
func (m *Manager) RecordFailedCode(ctx context.Context, id string) (*AdminSession, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.FailedCodes++
	if errSave := m.store.Save(ctx, s); errSave != nil {
		return nil, errSave
	}
	return s, nil
}

// Close signs the session out and removes it.
func (m *Manager) Close(ctx context.Context, id string) error {
	_, err := m.Advance(ctx, id, EventSignOut)
	return err
}

// CloseAllForUser removes every live session of uid and returns how many were closed.
func (m *Manager) CloseAllForUser(ctx context.Context, uid string) (int, error) {
	ids, err := m.store.IDsForUser(ctx, uid)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, id := range ids {
		if errDelete := m.store.Delete(ctx, id); errDelete != nil {
			return closed, fmt.Errorf("session: close %s: %w", id, errDelete)
		}
		closed++
	}
	if errDrop := m.store.DropUser(ctx, uid); errDrop != nil {
		return closed, errDrop
	}
	return closed, nil
}

// Watch closes the sessions of any uid whose credential signs out. It returns the unsubscribe func.
func (m *Manager) Watch(auth *baas.CredentialService) func() {
	if auth == nil {
		return func() {}
	}
	return auth.OnAuthStateChanged(func(ev baas.AuthEvent) {
		if ev.Type != baas.AuthSignedOut {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), authEventTimeout)
		defer cancel()
		closed, err := m.CloseAllForUser(ctx, ev.UID)
		if err != nil {
			log.WithError(err).WithField("uid", ev.UID).Warn("session: close on sign-out failed")
			return
		}
		if closed > 0 {
			log.WithFields(log.Fields{"uid": ev.UID, "sessions": closed}).Info("session: closed after credential sign-out")
		}
	})
}
