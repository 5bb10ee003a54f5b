package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrCookieInvalid is returned by [CookieCodec.Parse] for cookie values
// that are malformed, forged, or expired.
var ErrCookieInvalid = errors.New("invalid session cookie token")

const minSecretLength = 32

// CookieCodec mints and verifies the signed value the host adapter writes
// into the session cookie. The value is an HS256 JWT binding the session
// and user IDs; verification happens before any session store lookup, so a
// forged cookie never reaches the adapter.
type CookieCodec struct {
	secret []byte
}

type cookieClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// NewCookieCodec returns a codec signing with secret. Secrets shorter than
// 32 bytes are rejected.
func NewCookieCodec(secret []byte) (*CookieCodec, error) {
	if len(secret) < minSecretLength {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	cp := make([]byte, len(secret))
	copy(cp, secret)
	return &CookieCodec{secret: cp}, nil
}

// Mint signs a cookie value for the session. expiresAt mirrors the session
// row's expiry so the signature alone bounds the token lifetime.
func (c *CookieCodec) Mint(sessionID, userID string, expiresAt time.Time) (string, error) {
	claims := cookieClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Parse verifies raw and returns the bound session and user IDs. The
// signing algorithm is pinned to HS256.
func (c *CookieCodec) Parse(raw string) (sessionID, userID string, err error) {
	var claims cookieClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", ErrCookieInvalid
	}
	if claims.Subject == "" || claims.UserID == "" {
		return "", "", ErrCookieInvalid
	}

	return claims.Subject, claims.UserID, nil
}
