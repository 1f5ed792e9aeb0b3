package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/adminauth"
)

// MFAHandler manages TOTP enrollment for the signed-in admin.
type MFAHandler struct {
	auth *adminauth.Service
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(auth *adminauth.Service) *MFAHandler {
	return &MFAHandler{auth: auth}
}

// PrepareTOTP generates a pending secret and its provisioning QR code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	enrollment, errPrepare := h.auth.PrepareTwoFactor(c.Request.Context(), actorUID(c))
	if errPrepare != nil {
		respondError(c, errPrepare)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      enrollment.Secret,
		"otpauth_url": enrollment.OTPAuthURL,
		"qr_code":     enrollment.QRImage,
	})
}

type totpCodeRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP enables two-factor once the code matches the pending secret.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	var body totpCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	uid := actorUID(c)
	if errConfirm := h.auth.ConfirmTwoFactor(c.Request.Context(), uid, code); errConfirm != nil {
		respondError(c, errConfirm)
		return
	}
	log.WithField("uid", uid).Info("admin enabled two-factor")
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}

// DisableTOTP turns two-factor off for the signed-in admin.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	uid := actorUID(c)
	if errDisable := h.auth.DisableTwoFactor(c.Request.Context(), uid); errDisable != nil {
		respondError(c, errDisable)
		return
	}
	log.WithField("uid", uid).Info("admin disabled two-factor")
	c.JSON(http.StatusOK, gin.H{"enabled": false})
}
