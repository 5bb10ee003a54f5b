package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
	"github.com/authcore-dev/authcore/token"
)

func (e *Engine) handleLogin(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	rawEmail, _ := req.String("email")
	pw, _ := req.String("password")

	email, err := token.NormalizeEmail(rawEmail)
	if err != nil {
		// Same failure shape as a wrong password: the endpoint never
		// reveals whether an email is registered.
		return nil, e.loginFailure(ctx, req, rawEmail, "", string(CodeInvalidCredentials))
	}

	user, err := e.adapter.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a hash verification anyway so the unknown-email path
			// costs the same as a wrong password.
			_, _ = e.hasher.Verify(pw, dummyHash)
			return nil, e.loginFailure(ctx, req, email, "", string(CodeInvalidCredentials))
		}
		return nil, err
	}

	cred, err := e.adapter.CredentialByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	if cred.LockedUntil != nil && now.Before(*cred.LockedUntil) {
		e.metrics.Inc(MetricLoginLocked)
		return nil, e.loginFailure(ctx, req, email, user.ID, string(CodeAccountLocked), ErrAccountLocked)
	}

	ok, err := e.hasher.Verify(pw, cred.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.recordLoginFailure(ctx, cred)
		return nil, e.loginFailure(ctx, req, email, user.ID, string(CodeInvalidCredentials))
	}

	if e.config.EmailAndPassword.RequireEmailVerification && !user.EmailVerified {
		return nil, e.loginFailure(ctx, req, email, user.ID, string(CodeEmailNotVerified), ErrEmailNotVerified)
	}

	// Successful login clears any failure history.
	if cred.FailedAttempts != 0 || cred.LockedUntil != nil {
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
		cred.UpdatedAt = now
		if err := e.adapter.UpdateCredential(ctx, cred); err != nil {
			e.log.Warn(ctx, "lockout reset failed", "user_id", user.ID, "error", err)
		}
	}

	if e.config.EmailAndPassword.RehashOnLogin {
		e.rehashIfStale(ctx, cred, pw)
	}

	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := e.adapter.UpdateUser(ctx, user); err != nil {
		e.log.Warn(ctx, "last-login bump failed", "user_id", user.ID, "error", err)
	}

	sess, sessionData, err := e.createSession(ctx, user, req)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(ctx, TopicSignIn, Event{
		Action:    "sign_in",
		Endpoint:  "login",
		ClientIP:  req.ClientIP,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sess.ID,
		Success:   true,
	})

	return &Response{
		Status:      http.StatusOK,
		Body:        authBody{User: user, Session: sess},
		SessionData: sessionData,
	}, nil
}

// loginFailure emits the failed sign-in event and returns the domain
// error, ErrInvalidCredentials unless one is passed.
func (e *Engine) loginFailure(ctx context.Context, req *request.Context, email, userID, reason string, override ...*Error) *Error {
	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, TopicSignIn, Event{
		Action:   "sign_in",
		Endpoint: "login",
		ClientIP: req.ClientIP,
		UserID:   userID,
		Email:    email,
		Success:  false,
		Error:    reason,
	})
	if len(override) > 0 {
		return override[0]
	}
	return ErrInvalidCredentials
}

// recordLoginFailure bumps the consecutive-failure counter and, at the
// threshold, arms the lockout window. Persistence failures are logged
// and swallowed; the login still fails for its own reason.
func (e *Engine) recordLoginFailure(ctx context.Context, cred *Credential) {
	now := e.now()
	cred.FailedAttempts++
	if cred.FailedAttempts >= e.config.Lockout.Threshold {
		lockedUntil := now.Add(e.config.Lockout.Duration)
		cred.LockedUntil = &lockedUntil
	}
	cred.UpdatedAt = now
	if err := e.adapter.UpdateCredential(ctx, cred); err != nil {
		e.log.Warn(ctx, "failed-attempt record failed", "user_id", cred.UserID, "error", err)
	}
}

// rehashIfStale upgrades a hash produced with weaker parameters than the
// engine's current ones. Best-effort: the login already succeeded.
func (e *Engine) rehashIfStale(ctx context.Context, cred *Credential, pw string) {
	stale, err := e.hasher.NeedsRehash(cred.PasswordHash)
	if err != nil || !stale {
		return
	}
	rehashed, err := e.hasher.Hash(pw)
	if err != nil {
		return
	}
	cred.PasswordHash = rehashed
	cred.UpdatedAt = e.now()
	if err := e.adapter.UpdateCredential(ctx, cred); err != nil {
		e.log.Warn(ctx, "password rehash failed", "user_id", cred.UserID, "error", err)
	}
}

// dummyHash is a throwaway argon2id hash verified on the unknown-email
// path so response timing does not distinguish unregistered addresses.
const dummyHash = "$argon2id$v=19$m=65536,t=2,p=2$AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
