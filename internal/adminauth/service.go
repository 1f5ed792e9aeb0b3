// Package adminauth implements admin accounts, login with optional two-factor verification,
// and admin administration on top of the credential service.
package adminauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/models"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/session"
	"github.com/unidate/unidate-admin/internal/util"
	"gorm.io/gorm"
)

const (
	lastLoginTimeout    = 5 * time.Second
	compensationTimeout = 10 * time.Second

	// maxCodeAttempts is how many wrong codes a login session or TOTP setup accepts
	// before it is discarded.
	maxCodeAttempts = 5
)

// Options configures a Service.
type Options struct {
	Verifier security.TwoFactorVerifier
	Issuer   string // TOTP issuer shown in authenticator apps.
}

// Service is the admin auth service.
type Service struct {
	client   *baas.Client
	sessions *session.Manager
	verifier security.TwoFactorVerifier
	issuer   string
	pending  *pendingSecrets

	background sync.WaitGroup
}

// NewService wires the service. A nil verifier falls back to RFC 6238 TOTP with one step of skew.
func NewService(client *baas.Client, sessions *session.Manager, opts Options) *Service {
	verifier := opts.Verifier
	if verifier == nil {
		verifier = security.TOTPVerifier{Skew: 1}
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = "UniDate Admin"
	}
	return &Service{
		client:   client,
		sessions: sessions,
		verifier: verifier,
		issuer:   issuer,
		pending:  newPendingSecrets(),
	}
}

// Wait blocks until background writes started by LoginAdmin finish.
func (s *Service) Wait() { s.background.Wait() }

// CreateAdminUser creates a credential and the admin profile keyed by its uid. If the profile
// write fails the credential is deleted again.
func (s *Service) CreateAdminUser(ctx context.Context, email, password, displayName string, role Role) (*models.AdminUser, error) {
	const op = "adminauth.CreateAdminUser"
	perms, errRole := DefaultPermissions(role)
	if errRole != nil {
		return nil, apperr.New(apperr.KindInvalid, op, errRole.Error())
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperr.New(apperr.KindInvalid, op, "display name is required")
	}
	auth, errAuth := s.client.RequireAuth(op)
	if errAuth != nil {
		return nil, errAuth
	}

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	uid, errCreate := auth.CreateUser(callCtx, email, password)
	if errCreate != nil {
		return nil, errCreate
	}

	now := time.Now().UTC()
	admin := models.AdminUser{
		UID:         uid,
		Email:       util.NormalizeEmail(email),
		DisplayName: displayName,
		Role:        string(role),
		IsActive:    true,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errProfile := s.client.DB.WithContext(callCtx).Create(&admin).Error; errProfile != nil {
		s.compensateCredential(uid)
		return nil, apperr.Wrap(apperr.KindWrite, op, "create admin profile failed", errProfile)
	}
	log.WithFields(log.Fields{"uid": uid, "email": util.MaskEmail(admin.Email), "role": admin.Role}).Info("admin created")
	return &admin, nil
}

func (s *Service) compensateCredential(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()
	if errDelete := s.client.Auth.DeleteUser(ctx, uid); errDelete != nil {
		log.WithError(errDelete).WithField("uid", uid).Error("orphaned credential left after failed admin profile write")
		return
	}
	log.WithField("uid", uid).Warn("credential removed after failed admin profile write")
}

// LoginAdmin signs in and returns a saved session, either authenticated or awaiting a code.
func (s *Service) LoginAdmin(ctx context.Context, email, password string) (*session.AdminSession, error) {
	const op = "adminauth.LoginAdmin"
	auth, errAuth := s.client.RequireAuth(op)
	if errAuth != nil {
		return nil, errAuth
	}
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	uid, errSignIn := auth.SignIn(callCtx, email, password)
	if errSignIn != nil {
		return nil, errSignIn
	}

	sess, errBegin := s.sessions.Begin()
	if errBegin != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, "start session failed", errBegin)
	}

	admin, errFind := s.findAdmin(callCtx, op, uid)
	if errFind != nil {
		if apperr.Is(errFind, apperr.KindNotFound) {
			_ = sess.Advance(session.EventProfileMissing)
			_ = sess.Advance(session.EventSignOut)
			auth.SignOut(ctx, uid)
			return nil, apperr.New(apperr.KindNotAdmin, op, "account is not an admin")
		}
		return nil, errFind
	}
	if !admin.IsActive {
		_ = sess.Advance(session.EventSignOut)
		auth.SignOut(ctx, uid)
		return nil, apperr.New(apperr.KindAccountDisabled, op, "admin account is disabled")
	}

	if errAttach := sess.Attach(*admin); errAttach != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, "attach profile failed", errAttach)
	}
	if errSave := s.sessions.Save(callCtx, sess); errSave != nil {
		return nil, apperr.Wrap(apperr.KindWrite, op, "save session failed", errSave)
	}

	s.recordLastLogin(uid)
	log.WithFields(log.Fields{"uid": uid, "state": sess.State}).Info("admin signed in")
	return sess, nil
}

// recordLastLogin writes lastLogin in the background; failures are only logged.
func (s *Service) recordLastLogin(uid string) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), lastLoginTimeout)
		defer cancel()
		now := time.Now().UTC()
		if errUpdate := s.client.DB.WithContext(ctx).Model(&models.AdminUser{}).
			Where("uid = ?", uid).
			Update("last_login", now).Error; errUpdate != nil {
			log.WithError(errUpdate).WithField("uid", uid).Warn("update admin last login failed")
		}
	}()
}

// VerifyTwoFactor checks a one-time code against secret.
func (s *Service) VerifyTwoFactor(secret, token string) bool {
	return s.verifier.Verify(secret, strings.TrimSpace(token))
}

// CompleteTwoFactor verifies code for a session awaiting it and marks the session authenticated.
func (s *Service) CompleteTwoFactor(ctx context.Context, sessionID, code string) (*session.AdminSession, error) {
	const op = "adminauth.CompleteTwoFactor"
	sess, errLoad := s.loadSession(ctx, op, sessionID)
	if errLoad != nil {
		return nil, errLoad
	}
	if sess.State != session.StateAwaitingCode {
		return nil, apperr.New(apperr.KindInvalid, op, "session is not awaiting a code")
	}
	admin, errFind := s.findAdmin(ctx, op, sess.User.UID)
	if errFind != nil {
		return nil, errFind
	}
	if !admin.IsActive {
		_ = s.sessions.Close(ctx, sess.ID)
		return nil, apperr.New(apperr.KindAccountDisabled, op, "admin account is disabled")
	}
	if !s.VerifyTwoFactor(admin.TwoFactorSecret, code) {
		return nil, s.rejectCode(ctx, op, sess.ID)
	}
	verified, errAdvance := s.sessions.Advance(ctx, sess.ID, session.EventCodeVerified)
	if errAdvance != nil {
		return nil, apperr.Wrap(apperr.KindWrite, op, "update session failed", errAdvance)
	}
	return verified, nil
}

// rejectCode counts a wrong code and closes the session once maxCodeAttempts is reached.
func (s *Service) rejectCode(ctx context.Context, op, sessionID string) error {
	failed, errRecord := s.sessions.RecordFailedCode(ctx, sessionID)
	if errRecord != nil {
		if errors.Is(errRecord, session.ErrNotFound) {
			return apperr.New(apperr.KindUnauthenticated, op, "session expired or signed out")
		}
		return apperr.Wrap(apperr.KindWrite, op, "update session failed", errRecord)
	}
	if failed.FailedCodes < maxCodeAttempts {
		return apperr.New(apperr.KindTwoFactor, op, "invalid verification code")
	}
	if errClose := s.sessions.Close(ctx, sessionID); errClose != nil && !errors.Is(errClose, session.ErrNotFound) {
		log.WithError(errClose).WithField("session", sessionID).Warn("close session after failed codes failed")
	}
	log.WithField("uid", failed.User.UID).Warn("login session closed after too many invalid codes")
	return apperr.New(apperr.KindTwoFactor, op, "too many invalid codes, sign in again")
}

// Authorize loads a ready session and the current admin profile behind it.
func (s *Service) Authorize(ctx context.Context, sessionID string) (*session.AdminSession, *models.AdminUser, error) {
	const op = "adminauth.Authorize"
	sess, errLoad := s.loadSession(ctx, op, sessionID)
	if errLoad != nil {
		return nil, nil, errLoad
	}
	if sess.State != session.StateAuthenticated {
		return nil, nil, apperr.New(apperr.KindTwoFactor, op, "two-factor verification required")
	}
	admin, errFind := s.findAdmin(ctx, op, sess.User.UID)
	if errFind != nil {
		if apperr.Is(errFind, apperr.KindNotFound) {
			_ = s.sessions.Close(ctx, sess.ID)
			return nil, nil, apperr.New(apperr.KindNotAdmin, op, "account is not an admin")
		}
		return nil, nil, errFind
	}
	if !admin.IsActive {
		_ = s.sessions.Close(ctx, sess.ID)
		return nil, nil, apperr.New(apperr.KindAccountDisabled, op, "admin account is disabled")
	}
	return sess, admin, nil
}

// Session loads a session in any live state.
func (s *Service) Session(ctx context.Context, sessionID string) (*session.AdminSession, error) {
	return s.loadSession(ctx, "adminauth.Session", sessionID)
}

func (s *Service) loadSession(ctx context.Context, op, sessionID string) (*session.AdminSession, error) {
	sess, err := s.sessions.Load(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperr.New(apperr.KindUnauthenticated, op, "session expired or signed out")
		}
		return nil, apperr.Wrap(apperr.KindRead, op, "load session failed", err)
	}
	return sess, nil
}

// PrepareTwoFactor generates a TOTP secret for uid that must be confirmed with a code.
func (s *Service) PrepareTwoFactor(ctx context.Context, uid string) (security.TOTPEnrollment, error) {
	const op = "adminauth.PrepareTwoFactor"
	admin, errFind := s.findAdmin(ctx, op, uid)
	if errFind != nil {
		return security.TOTPEnrollment{}, errFind
	}
	if admin.TwoFactorEnabled {
		return security.TOTPEnrollment{}, apperr.New(apperr.KindConflict, op, "two-factor already enabled")
	}
	enrollment, errGenerate := security.GenerateTOTP(s.issuer, admin.Email)
	if errGenerate != nil {
		return security.TOTPEnrollment{}, apperr.Wrap(apperr.KindInternal, op, "generate totp secret failed", errGenerate)
	}
	s.pending.Set(admin.UID, enrollment.Secret)
	return enrollment, nil
}

// ConfirmTwoFactor enables two-factor with the pending secret once code matches it.
func (s *Service) ConfirmTwoFactor(ctx context.Context, uid, code string) error {
	const op = "adminauth.ConfirmTwoFactor"
	secret, ok := s.pending.Get(uid)
	if !ok {
		return apperr.New(apperr.KindInvalid, op, "no pending two-factor setup")
	}
	if !s.VerifyTwoFactor(secret, code) {
		if s.pending.Fail(uid, maxCodeAttempts) {
			log.WithField("uid", uid).Warn("pending two-factor setup discarded after too many invalid codes")
			return apperr.New(apperr.KindTwoFactor, op, "too many invalid codes, start setup again")
		}
		return apperr.New(apperr.KindTwoFactor, op, "invalid verification code")
	}
	if errEnable := s.EnableTwoFactor(ctx, uid, secret); errEnable != nil {
		return errEnable
	}
	s.pending.Delete(uid)
	return nil
}

// EnableTwoFactor stores secret and requires a code on future logins.
func (s *Service) EnableTwoFactor(ctx context.Context, uid, secret string) error {
	const op = "adminauth.EnableTwoFactor"
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return apperr.New(apperr.KindInvalid, op, "secret is required")
	}
	return s.updateAdmin(ctx, op, uid, map[string]any{
		"two_factor_enabled": true,
		"two_factor_secret":  secret,
	})
}

// DisableTwoFactor clears the stored secret.
func (s *Service) DisableTwoFactor(ctx context.Context, uid string) error {
	return s.updateAdmin(ctx, "adminauth.DisableTwoFactor", uid, map[string]any{
		"two_factor_enabled": false,
		"two_factor_secret":  "",
	})
}

// LogoutAdmin closes the session. Unknown sessions are treated as already signed out.
func (s *Service) LogoutAdmin(ctx context.Context, sessionID string) error {
	const op = "adminauth.LogoutAdmin"
	if errClose := s.sessions.Close(ctx, strings.TrimSpace(sessionID)); errClose != nil {
		if errors.Is(errClose, session.ErrNotFound) {
			return nil
		}
		return apperr.Wrap(apperr.KindWrite, op, "close session failed", errClose)
	}
	return nil
}

// GetAllAdmins lists admins, newest first.
func (s *Service) GetAllAdmins(ctx context.Context) ([]models.AdminUser, error) {
	const op = "adminauth.GetAllAdmins"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var admins []models.AdminUser
	if errFind := s.client.DB.WithContext(callCtx).Order("created_at DESC").Find(&admins).Error; errFind != nil {
		return nil, apperr.Wrap(apperr.KindRead, op, "list admins failed", errFind)
	}
	return admins, nil
}

// GetAdmin returns one admin.
func (s *Service) GetAdmin(ctx context.Context, uid string) (*models.AdminUser, error) {
	return s.findAdmin(ctx, "adminauth.GetAdmin", uid)
}

// UpdateAdminPermissions merges the supplied flags into the stored permissions.
func (s *Service) UpdateAdminPermissions(ctx context.Context, uid string, patch PermissionPatch) (*models.AdminUser, error) {
	const op = "adminauth.UpdateAdminPermissions"
	if patch.Empty() {
		return nil, apperr.New(apperr.KindInvalid, op, "no permissions supplied")
	}
	if errUpdate := s.updateAdmin(ctx, op, uid, patch.columns()); errUpdate != nil {
		return nil, errUpdate
	}
	return s.findAdmin(ctx, op, uid)
}

// ToggleAdminStatus activates or deactivates an admin. Deactivation closes its sessions.
func (s *Service) ToggleAdminStatus(ctx context.Context, uid string, isActive bool) error {
	const op = "adminauth.ToggleAdminStatus"
	if errUpdate := s.updateAdmin(ctx, op, uid, map[string]any{"is_active": isActive}); errUpdate != nil {
		return errUpdate
	}
	if !isActive {
		if _, errClose := s.sessions.CloseAllForUser(ctx, strings.TrimSpace(uid)); errClose != nil {
			log.WithError(errClose).WithField("uid", uid).Warn("close sessions of deactivated admin failed")
		}
	}
	return nil
}

func (s *Service) findAdmin(ctx context.Context, op, uid string) (*models.AdminUser, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, apperr.New(apperr.KindInvalid, op, "uid is required")
	}
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var admin models.AdminUser
	if errFind := s.client.DB.WithContext(callCtx).Where("uid = ?", uid).First(&admin).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, op, "admin not found")
		}
		return nil, apperr.Wrap(apperr.KindRead, op, "load admin failed", errFind)
	}
	return &admin, nil
}

func (s *Service) updateAdmin(ctx context.Context, op, uid string, updates map[string]any) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return apperr.New(apperr.KindInvalid, op, "uid is required")
	}
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	updates["updated_at"] = time.Now().UTC()
	res := s.client.DB.WithContext(callCtx).Model(&models.AdminUser{}).Where("uid = ?", uid).Updates(updates)
	if res.Error != nil {
		return apperr.Wrap(apperr.KindWrite, op, "update admin failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, op, "admin not found")
	}
	return nil
}
