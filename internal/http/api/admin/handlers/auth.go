package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/adminauth"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/config"
	relayhttp "github.com/unidate/unidate-admin/internal/http"
	"github.com/unidate/unidate-admin/internal/security"
	"github.com/unidate/unidate-admin/internal/session"
)

// AuthHandler handles admin login, two-factor completion and logout.
type AuthHandler struct {
	auth   *adminauth.Service
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *adminauth.Service, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{auth: auth, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in and returns a token bound to the new session. When the admin has two-factor
// enabled the session awaits a code and only /login/verify-2fa accepts the token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	sess, errLogin := h.auth.LoginAdmin(c.Request.Context(), email, body.Password)
	if errLogin != nil {
		respondError(c, errLogin)
		return
	}
	h.respondWithSession(c, sess)
}

type verifyTwoFactorRequest struct {
	Code string `json:"code"`
}

// VerifyTwoFactor completes login for a session awaiting a one-time code.
func (h *AuthHandler) VerifyTwoFactor(c *gin.Context) {
	var body verifyTwoFactorRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	sess, errVerify := h.auth.CompleteTwoFactor(c.Request.Context(), c.GetString(relayhttp.ContextSessionID), code)
	if errVerify != nil {
		respondError(c, errVerify)
		return
	}
	h.respondWithSession(c, sess)
}

// Logout closes the current session.
func (h *AuthHandler) Logout(c *gin.Context) {
	if errLogout := h.auth.LogoutAdmin(c.Request.Context(), c.GetString(relayhttp.ContextSessionID)); errLogout != nil {
		respondError(c, errLogout)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session returns the current session.
func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := session.FromContext(c.Request.Context())
	if !ok {
		respondError(c, apperr.New(apperr.KindUnauthenticated, "handlers.Session", "no session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *AuthHandler) respondWithSession(c *gin.Context, sess *session.AdminSession) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, sess.User.UID, sess.User.Email, sess.ID, h.jwtCfg.Expiry)
	if errToken != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "handlers.Login", "issue token failed", errToken))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":             token,
		"expires_at":        sess.ExpiresAt,
		"state":             sess.State,
		"requiresTwoFactor": sess.RequiresTwoFactor,
		"session":           sess,
	})
}
