package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/ratelimit"
)

// Config holds all engine tuning. Instances are configured before
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	// BasePath prefixes every route pattern, e.g. "/auth".
	BasePath string

	Session          SessionConfig
	RateLimit        RateLimitConfig
	EmailAndPassword EmailPasswordConfig
	Lockout          LockoutConfig
	Password         password.Params
	Tokens           TokenConfig
	Audit            AuditConfig
	Metrics          MetricsConfig
	Hooks            Hooks
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session issuance and the signed cookie value.
type SessionConfig struct {
	// Secret signs the session cookie token (HS256). At least 32 bytes.
	Secret []byte
	// ExpiresIn is the session lifetime from issuance.
	ExpiresIn time.Duration
	// CookieName is advisory for host adapters; the engine never reads
	// or writes cookies itself.
	CookieName string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig assigns fixed-window rules per endpoint group. Global
// applies to every request, matched or not, before route dispatch.
type RateLimitConfig struct {
	Enabled       bool
	Global        ratelimit.Rule
	Login         ratelimit.Rule
	Registration  ratelimit.Rule
	PasswordReset ratelimit.Rule
	// ReapInterval tunes the MemoryStore reaper when the Builder owns
	// the store. Ignored for injected stores.
	ReapInterval time.Duration
}

/*
====================================
EMAIL + PASSWORD CONFIG
====================================
*/

// EmailPasswordConfig tunes the first-party email+password flow.
type EmailPasswordConfig struct {
	// RequireEmailVerification makes login fail with EMAIL_NOT_VERIFIED
	// until the verification token has been consumed.
	RequireEmailVerification bool
	// RehashOnLogin transparently upgrades stored hashes produced with
	// weaker argon2 parameters on the next successful login.
	RehashOnLogin bool
}

// LockoutConfig controls credential lockout. After Threshold consecutive
// failures the credential denies logins until Duration has elapsed; a
// successful login or completed password reset clears the counter.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// TokenConfig sets single-use token lifetimes.
type TokenConfig struct {
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

/*
====================================
AUDIT + METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events under backpressure instead of blocking
	// the request path. Dropped counts are observable via
	// [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig enables in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
HOOKS
====================================
*/

// Hook is a named callback invoked with the emitted event. Hooks run with
// the same isolation as any listener: failures are logged, never
// propagated into the request.
type Hook func(ctx context.Context, event Event) error

// Hooks maps named callbacks 1:1 onto emitter topics. OnAuthEvent
// subscribes to every auth:* topic.
type Hooks struct {
	OnRegister       Hook
	OnSignIn         Hook
	OnSignOut        Hook
	OnPasswordReset  Hook
	OnEmailVerified  Hook
	OnAccountDeleted Hook
	OnRateLimit      Hook
	OnError          Hook
	OnAuthEvent      Hook
}

// DefaultConfig returns production-leaning defaults: 7-day sessions,
// 5-failure/2-hour lockout, 24h verification and 1h reset tokens, and
// conservative per-endpoint rate limits. The session secret has no
// default and must be set.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			ExpiresIn:  7 * 24 * time.Hour,
			CookieName: "authcore_session",
		},
		RateLimit: RateLimitConfig{
			Enabled:       true,
			Global:        ratelimit.Rule{Max: 100, Window: time.Minute},
			Login:         ratelimit.Rule{Max: 10, Window: time.Minute},
			Registration:  ratelimit.Rule{Max: 10, Window: time.Minute},
			PasswordReset: ratelimit.Rule{Max: 3, Window: 15 * time.Minute},
			ReapInterval:  time.Minute,
		},
		EmailAndPassword: EmailPasswordConfig{
			RehashOnLogin: true,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  2 * time.Hour,
		},
		Password: password.DefaultParams(),
		Tokens: TokenConfig{
			VerificationTTL: 24 * time.Hour,
			ResetTTL:        time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the invariants the Builder enforces.
func (c *Config) Validate() error {
	if len(c.Session.Secret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.Session.ExpiresIn <= 0 {
		return errors.New("session expiry must be positive")
	}
	if c.Lockout.Threshold <= 0 {
		return errors.New("lockout threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.Tokens.VerificationTTL <= 0 || c.Tokens.ResetTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.RateLimit.Enabled {
		for _, rule := range []ratelimit.Rule{
			c.RateLimit.Global,
			c.RateLimit.Login,
			c.RateLimit.Registration,
			c.RateLimit.PasswordReset,
		} {
			if rule.Max <= 0 || rule.Window <= 0 {
				return errors.New("rate limit rules need positive max and window")
			}
		}
	}
	return nil
}
