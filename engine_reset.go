package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
	"github.com/authcore-dev/authcore/token"
)

func (e *Engine) handleRequestPasswordReset(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	// The response is constant regardless of whether the email is
	// registered; the existence signal lives only in the emitted event.
	accepted := &Response{Status: http.StatusOK, Body: requestedBody{Status: true}}

	rawEmail, _ := req.String("email")
	email, err := token.NormalizeEmail(rawEmail)
	if err != nil {
		return accepted, nil
	}

	user, err := e.adapter.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return accepted, nil
		}
		return nil, err
	}

	if err := e.adapter.DeleteTokensByUser(ctx, user.ID, TokenPasswordReset); err != nil {
		return nil, err
	}
	clear, err := e.issueToken(ctx, user.ID, TokenPasswordReset, e.config.Tokens.ResetTTL)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricPasswordResetRequest)
	e.emit(ctx, TopicResetRequest, Event{
		Action:   "reset_request",
		Endpoint: "request-password-reset",
		ClientIP: req.ClientIP,
		UserID:   user.ID,
		Email:    user.Email,
		Success:  true,
		Metadata: map[string]string{"reset_token": clear},
	})

	return accepted, nil
}

func (e *Engine) handleResetPassword(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	clear, _ := req.String("token")
	pw, _ := req.String("password")

	if err := password.Validate(pw); err != nil {
		return nil, NewValidationError(map[string]string{"password": err.Error()})
	}

	now := e.now()
	tok, err := e.adapter.ConsumeToken(ctx, token.Hash(clear), TokenPasswordReset, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metrics.Inc(MetricPasswordResetFailure)
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	cred, err := e.adapter.CredentialByUser(ctx, tok.UserID)
	if err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	// The reset is proof of account control: it replaces the hash and
	// clears any lockout in the same write.
	cred.PasswordHash = hash
	cred.FailedAttempts = 0
	cred.LockedUntil = nil
	cred.UpdatedAt = now
	if err := e.adapter.UpdateCredential(ctx, cred); err != nil {
		return nil, err
	}

	// Every live session dies with the old password.
	if err := e.adapter.DeleteSessionsByUser(ctx, tok.UserID); err != nil {
		return nil, err
	}

	user, err := e.adapter.UserByID(ctx, tok.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	email := ""
	if user != nil {
		email = user.Email
	}

	e.metrics.Inc(MetricPasswordResetSuccess)
	e.emit(ctx, TopicPasswordReset, Event{
		Action:   "password_reset",
		Endpoint: "reset-password",
		ClientIP: req.ClientIP,
		UserID:   tok.UserID,
		Email:    email,
		Success:  true,
	})

	return &Response{
		Status:       http.StatusOK,
		Body:         statusBody{Status: true},
		ClearSession: true,
	}, nil
}
