package security

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// PlaceholderCode is the only code accepted by the placeholder verifier.
const PlaceholderCode = "123456"

// totpPeriod is the RFC 6238 time step in seconds.
const totpPeriod = 30

// TwoFactorVerifier checks a one-time code against a shared secret.
type TwoFactorVerifier interface {
	Verify(secret, code string) bool
}

// TOTPVerifier validates RFC 6238 codes (SHA1, six digits, 30 second steps).
type TOTPVerifier struct {
	Skew uint             // Accepted steps before and after the current one.
	Now  func() time.Time // Clock, defaults to time.Now.
}

// Verify reports whether code is valid for secret at the current time.
func (v TOTPVerifier) Verify(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	ok, err := totp.ValidateCustom(code, secret, now().UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      v.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// PlaceholderVerifier accepts PlaceholderCode for any secret. Development use only.
type PlaceholderVerifier struct{}

// Verify reports whether code equals PlaceholderCode.
func (PlaceholderVerifier) Verify(_, code string) bool {
	return strings.TrimSpace(code) == PlaceholderCode
}

// NewTwoFactorVerifier returns the verifier for a configured mode ("totp" or "placeholder").
func NewTwoFactorVerifier(mode string, skew uint) (TwoFactorVerifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "totp":
		return TOTPVerifier{Skew: skew}, nil
	case "placeholder":
		return PlaceholderVerifier{}, nil
	default:
		return nil, fmt.Errorf("security: unknown two-factor mode %q", mode)
	}
}

// TOTPEnrollment is a freshly generated shared secret ready to be scanned by an authenticator app.
type TOTPEnrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	QRImage    string `json:"qrImage,omitempty"` // PNG data URL, empty if rendering failed.
}

// GenerateTOTP creates a new TOTP secret for account under issuer.
func GenerateTOTP(issuer, account string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	enrollment := TOTPEnrollment{Secret: key.Secret(), OTPAuthURL: key.URL()}
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			enrollment.QRImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return enrollment, nil
}
