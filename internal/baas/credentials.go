package baas

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/util"
	"gorm.io/gorm"
)

// AuthEventType names a change of authentication state.
type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "signed_in"
	AuthSignedOut AuthEventType = "signed_out"
)

// AuthEvent is delivered to OnAuthStateChanged subscribers.
type AuthEvent struct {
	Type AuthEventType
	UID  string
	At   time.Time
}

// CredentialService owns email/password credentials and publishes sign-in state changes.
type CredentialService struct {
	db *gorm.DB

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(AuthEvent)
}

// NewCredentialService checks that the credential table is reachable.
func NewCredentialService(ctx context.Context, db *gorm.DB) (*CredentialService, error) {
	if db == nil {
		return nil, errors.New("baas: credential service requires a database")
	}
	if !db.WithContext(ctx).Migrator().HasTable(&models.Credential{}) {
		return nil, errors.New("baas: credentials table missing (run migrate)")
	}
	return &CredentialService{db: db, subs: make(map[uint64]func(AuthEvent))}, nil
}

// CreateUser registers a new credential and returns its uid.
func (s *CredentialService) CreateUser(ctx context.Context, email, password string) (string, error) {
	const op = "baas.CreateUser"
	email = util.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return "", apperr.New(apperr.KindInvalid, op, "invalid email address")
	}
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		if errors.Is(errHash, security.ErrWeakPassword) {
			return "", apperr.New(apperr.KindInvalid, op, errHash.Error())
		}
		return "", apperr.Wrap(apperr.KindInternal, op, "hash password failed", errHash)
	}

	var count int64
	if errCount := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("email = ?", email).Count(&count).Error; errCount != nil {
		return "", apperr.Wrap(apperr.KindRead, op, "lookup credential failed", errCount)
	}
	if count > 0 {
		return "", apperr.New(apperr.KindConflict, op, "email already registered")
	}

	cred := models.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if errCreate := s.db.WithContext(ctx).Create(&cred).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return "", apperr.New(apperr.KindConflict, op, "email already registered")
		}
		return "", apperr.Wrap(apperr.KindWrite, op, "create credential failed", errCreate)
	}
	return cred.UID, nil
}

// SignIn verifies email and password and returns the uid.
func (s *CredentialService) SignIn(ctx context.Context, email, password string) (string, error) {
	const op = "baas.SignIn"
	email = util.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.New(apperr.KindAuth, op, "invalid email or password")
	}

	var cred models.Credential
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return "", apperr.New(apperr.KindAuth, op, "invalid email or password")
		}
		return "", apperr.Wrap(apperr.KindRead, op, "lookup credential failed", errFind)
	}
	if !security.CheckPassword(cred.PasswordHash, password) {
		return "", apperr.New(apperr.KindAuth, op, "invalid email or password")
	}
	if cred.Disabled {
		return "", apperr.New(apperr.KindAuth, op, "credential disabled")
	}

	now := time.Now().UTC()
	if errUpdate := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("uid = ?", cred.UID).
		Update("last_sign_in_at", now).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("uid", cred.UID).Warn("baas: record sign-in time failed")
	}
	s.emit(AuthEvent{Type: AuthSignedIn, UID: cred.UID, At: now})
	return cred.UID, nil
}

// SignOut publishes a signed_out event for uid.
func (s *CredentialService) SignOut(_ context.Context, uid string) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return
	}
	s.emit(AuthEvent{Type: AuthSignedOut, UID: uid, At: time.Now().UTC()})
}

// DeleteUser removes the credential for uid.
func (s *CredentialService) DeleteUser(ctx context.Context, uid string) error {
	const op = "baas.DeleteUser"
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return apperr.New(apperr.KindInvalid, op, "uid is required")
	}
	res := s.db.WithContext(ctx).Where("uid = ?", uid).Delete(&models.Credential{})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindWrite, op, "delete credential failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, op, "credential not found")
	}
	s.emit(AuthEvent{Type: AuthSignedOut, UID: uid, At: time.Now().UTC()})
	return nil
}

// SetDisabled enables or disables sign-in for uid.
func (s *CredentialService) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	const op = "baas.SetDisabled"
	res := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("uid = ?", strings.TrimSpace(uid)).
		Updates(map[string]any{"disabled": disabled, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return apperr.Wrap(apperr.KindWrite, op, "update credential failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, op, "credential not found")
	}
	if disabled {
		s.emit(AuthEvent{Type: AuthSignedOut, UID: uid, At: time.Now().UTC()})
	}
	return nil
}

// OnAuthStateChanged registers fn for auth events. The returned func unsubscribes.
func (s *CredentialService) OnAuthStateChanged(fn func(AuthEvent)) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *CredentialService) emit(ev AuthEvent) {
	s.mu.RLock()
	listeners := make([]func(AuthEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
