package authcore

import (
	"time"

	"github.com/authcore-dev/authcore/internal/device"
)

// User is the identity record. Email is always stored in normalized
// (trimmed, lower-cased) form and is unique across users.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Name          string     `json:"name,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
}

// Credential is the one-to-one password record for a user. The argon2id
// PHC hash embeds its salt. FailedAttempts counts consecutive login
// failures; LockedUntil is set when the counter reaches the lockout
// threshold and clears the lockout by simple expiry.
type Credential struct {
	UserID         string
	PasswordHash   string
	FailedAttempts int
	LockedUntil    *time.Time
	UpdatedAt      time.Time
}

// Session binds an opaque unguessable ID to a user for one device or
// browser. It is the unit of revocation: deleting the row invalidates
// every request bearing its ID.
type Session struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	ExpiresAt      time.Time   `json:"expiresAt"`
	CreatedAt      time.Time   `json:"createdAt"`
	LastAccessedAt time.Time   `json:"lastAccessedAt"`
	ClientIP       string      `json:"clientIp,omitempty"`
	UserAgent      string      `json:"userAgent,omitempty"`
	Device         device.Info `json:"device"`
}

// Expired reports whether the session's expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TokenType discriminates single-use token artifacts.
type TokenType string

const (
	TokenEmailVerification TokenType = "email-verification"
	TokenPasswordReset     TokenType = "password-reset"
)

// Token is a single-use credential artifact. Only the SHA-256 digest of
// the clear token is stored; the clear value is surfaced exactly once at
// creation. A token is valid iff unexpired and unused, rechecked
// atomically at consumption.
type Token struct {
	Hash      string
	Type      TokenType
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}

// SessionData is the session-store write instruction attached to a
// Response. Token is the signed cookie value the host adapter should set;
// the adapter never needs to construct or inspect it.
type SessionData struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

// Response is the engine's canonical result: transport shaping (status,
// JSON-serializable body) plus session-store instructions. Exactly one of
// SessionData and ClearSession is ever set, and often neither.
type Response struct {
	Status       int
	Body         any
	SessionData  *SessionData
	ClearSession bool
}

// Event is the payload carried on every emitted topic and forwarded to
// the audit sink. Security-sensitive handlers emit one before returning,
// making the emitter the single audit choke point.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Endpoint  string            `json:"endpoint,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Event topics. Topics are colon-delimited resource:action pairs;
// listener patterns may wildcard either segment.
const (
	TopicRegister            = "auth:register"
	TopicSignIn              = "auth:sign_in"
	TopicSignOut             = "auth:sign_out"
	TopicVerificationRequest = "auth:verification_request"
	TopicEmailVerified       = "auth:email_verified"
	TopicResetRequest        = "auth:reset_request"
	TopicPasswordReset       = "auth:password_reset"
	TopicAccountDeleted      = "auth:account_deleted"
	TopicRateLimit           = "ratelimit:exceeded"
	TopicError               = "engine:error"
)
