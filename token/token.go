package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const rawTokenSize = 32

// New returns a cryptographically random opaque token encoded as
// unpadded base64url. The clear value is meant to be embedded in an
// out-of-band link and must never be persisted.
func New() (string, error) {
	var raw [rawTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// Hash returns the hex-encoded SHA-256 digest of tok. The digest is the
// only form a token takes in storage.
func Hash(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// ErrInvalidEmail is returned by NormalizeEmail for inputs that cannot be
// an address.
var ErrInvalidEmail = errors.New("invalid email address")

// NormalizeEmail lower-cases and trims an email address for uniqueness
// comparison. The stored matching form is always the normalized one.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	at := strings.IndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return "", ErrInvalidEmail
	}
	if strings.IndexByte(email[at+1:], '@') != -1 {
		return "", ErrInvalidEmail
	}

	return email, nil
}
