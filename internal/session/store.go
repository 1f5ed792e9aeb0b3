package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unidate/unidate-admin/internal/cache"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "session:user:"
)

// Store persists sessions in a cache.Cache so several server instances can share them
// when the cache is Redis-backed.
type Store struct {
	cache cache.Cache
	now   func() time.Time

	indexMu sync.Mutex
}

// NewStore wraps c.
func NewStore(c cache.Cache) *Store {
	return &Store{cache: c, now: time.Now}
}

// Save writes s until its expiry and indexes it under the admin uid.
func (st *Store) Save(ctx context.Context, s *AdminSession) error {
	ttl := s.ExpiresAt.Sub(st.now())
	if ttl <= 0 {
		return fmt.Errorf("session: %s already expired", s.ID)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if errSet := st.cache.Set(ctx, sessionKeyPrefix+s.ID, raw, ttl); errSet != nil {
		return fmt.Errorf("session: save: %w", errSet)
	}
	if s.User.UID == "" {
		return nil
	}
	return st.updateIndex(ctx, s.User.UID, func(ids map[string]time.Time) {
		ids[s.ID] = s.ExpiresAt
	})
}

// Get loads a session by id.
func (st *Store) Get(ctx context.Context, id string) (*AdminSession, error) {
	raw, err := st.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var s AdminSession
	if errDecode := json.Unmarshal(raw, &s); errDecode != nil {
		return nil, fmt.Errorf("session: decode: %w", errDecode)
	}
	if s.Expired(st.now()) {
		_ = st.cache.Delete(ctx, sessionKeyPrefix+id)
		return nil, ErrNotFound
	}
	return &s, nil
}

// Delete removes a session. Unknown ids are ignored.
func (st *Store) Delete(ctx context.Context, id string) error {
	if errDelete := st.cache.Delete(ctx, sessionKeyPrefix+id); errDelete != nil {
		return fmt.Errorf("session: delete: %w", errDelete)
	}
	return nil
}

// IDsForUser lists live session ids of uid.
func (st *Store) IDsForUser(ctx context.Context, uid string) ([]string, error) {
	ids, err := st.loadIndex(ctx, uid)
	if err != nil {
		return nil, err
	}
	now := st.now()
	out := make([]string, 0, len(ids))
	for id, expires := range ids {
		if now.Before(expires) {
			out = append(out, id)
		}
	}
	return out, nil
}

// DropUser removes the user index entry.
func (st *Store) DropUser(ctx context.Context, uid string) error {
	st.indexMu.Lock()
	defer st.indexMu.Unlock()
	return st.cache.Delete(ctx, userIndexPrefix+uid)
}

func (st *Store) loadIndex(ctx context.Context, uid string) (map[string]time.Time, error) {
	ids := make(map[string]time.Time)
	raw, err := st.cache.Get(ctx, userIndexPrefix+uid)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return ids, nil
		}
		return nil, fmt.Errorf("session: load index: %w", err)
	}
	if errDecode := json.Unmarshal(raw, &ids); errDecode != nil {
		return nil, fmt.Errorf("session: decode index: %w", errDecode)
	}
	return ids, nil
}

func (st *Store) updateIndex(ctx context.Context, uid string, mutate func(map[string]time.Time)) error {
	st.indexMu.Lock()
	defer st.indexMu.Unlock()

	ids, err := st.loadIndex(ctx, uid)
	if err != nil {
		return err
	}
	mutate(ids)

	now := st.now()
	var latest time.Time
	for id, expires := range ids {
		if !now.Before(expires) {
			delete(ids, id)
			continue
		}
		if expires.After(latest) {
			latest = expires
		}
	}
	if len(ids) == 0 {
		return st.cache.Delete(ctx, userIndexPrefix+uid)
	}
	raw, errEncode := json.Marshal(ids)
	if errEncode != nil {
		return fmt.Errorf("session: encode index: %w", errEncode)
	}
	return st.cache.Set(ctx, userIndexPrefix+uid, raw, latest.Sub(now))
}
