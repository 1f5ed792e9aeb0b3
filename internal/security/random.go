package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// sessionIDPrefix marks opaque admin session identifiers.
const sessionIDPrefix = "ses_"

// NewSessionID returns a random opaque admin session identifier.
func NewSessionID() (string, error) {
	buf := make([]byte, 24)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return sessionIDPrefix + hex.EncodeToString(buf), nil
}
