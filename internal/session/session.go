package session

import (
	"time"

	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
)

// AdminSession is the per-login view of an admin. It is never written to the database.
type AdminSession struct {
	ID                string           `json:"id"`
	User              models.AdminUser `json:"user"`
	IsAuthenticated   bool             `json:"isAuthenticated"`   // Credential and admin profile accepted.
	RequiresTwoFactor bool             `json:"requiresTwoFactor"` // Mirrors user.twoFactorEnabled at login.
	TwoFactorVerified bool             `json:"twoFactorVerified"`
	FailedCodes       int              `json:"failedCodes,omitempty"` // Rejected verification codes.
	State             State            `json:"state"`
	CreatedAt         time.Time        `json:"createdAt"`
	ExpiresAt         time.Time        `json:"expiresAt"`
}

// New returns a signed-out session with a fresh id.
func New(now time.Time, ttl time.Duration) (*AdminSession, error) {
	id, err := security.NewSessionID()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &AdminSession{
		ID:        id,
		State:     StateSignedOut,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Advance applies ev and updates the derived flags.
func (s *AdminSession) Advance(ev Event) error {
	next, err := Next(s.State, ev)
	if err != nil {
		return err
	}
	s.State = next
	switch next {
	case StateAuthenticated:
		s.IsAuthenticated = true
		s.TwoFactorVerified = true
	case StateAwaitingCode:
		s.IsAuthenticated = true
		s.TwoFactorVerified = false
	case StateSignedOut, StateNotAdmin:
		s.IsAuthenticated = false
		s.TwoFactorVerified = false
	}
	return nil
}

// Attach records the admin profile found during lookup and advances past it.
func (s *AdminSession) Attach(user models.AdminUser) error {
	ev := EventAdminNo2FA
	if user.TwoFactorEnabled {
		ev = EventAdmin2FA
	}
	if err := s.Advance(ev); err != nil {
		return err
	}
	user.TwoFactorSecret = ""
	s.User = user
	s.RequiresTwoFactor = user.TwoFactorEnabled
	return nil
}

// Ready reports whether the session may call protected operations.
func (s *AdminSession) Ready(now time.Time) bool {
	return s != nil && s.State == StateAuthenticated && now.Before(s.ExpiresAt)
}

// Expired reports whether the session has passed its expiry.
func (s *AdminSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
