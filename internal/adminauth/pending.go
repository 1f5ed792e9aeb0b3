package adminauth

import (
	"sync"
	"time"
)

// pendingSecretTTL is how long an unconfirmed TOTP secret is kept.
const pendingSecretTTL = 10 * time.Minute

// pendingEntry stores a TOTP secret with expiry.
type pendingEntry struct {
	secret   string
	expires  time.Time
	failures int
}

// pendingSecrets keeps TOTP secrets awaiting confirmation, keyed by admin uid.
type pendingSecrets struct {
	mu    sync.Mutex
	items map[string]pendingEntry
	now   func() time.Time
}

func newPendingSecrets() *pendingSecrets {
	return &pendingSecrets{items: make(map[string]pendingEntry), now: time.Now}
}

// Set stores a secret, replacing any earlier one for uid.
func (s *pendingSecrets) Set(uid, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[uid] = pendingEntry{secret: secret, expires: s.now().Add(pendingSecretTTL)}
}

// Get returns a secret if present and not expired.
func (s *pendingSecrets) Get(uid string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[uid]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expires) {
		delete(s.items, uid)
		return "", false
	}
	return entry.secret, true
}

// Fail counts a wrong code for uid and discards the secret once max failures are reached.
// It reports whether the secret was discarded.
func (s *pendingSecrets) Fail(uid string, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[uid]
	if !ok {
		return false
	}
	entry.failures++
	if entry.failures >= max {
		delete(s.items, uid)
		return true
	}
	s.items[uid] = entry
	return false
}

// Delete removes a secret entry.
func (s *pendingSecrets) Delete(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, uid)
}
