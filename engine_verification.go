package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
	"github.com/authcore-dev/authcore/token"
)

// requestedBody is the anti-enumeration payload: identical whether or
// not the email is registered.
type requestedBody struct {
	Status bool `json:"status"`
}

func (e *Engine) handleRequestEmailVerification(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
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
	if user.EmailVerified {
		return accepted, nil
	}

	// A fresh request invalidates any outstanding verification token.
	if err := e.adapter.DeleteTokensByUser(ctx, user.ID, TokenEmailVerification); err != nil {
		return nil, err
	}
	clear, err := e.issueToken(ctx, user.ID, TokenEmailVerification, e.config.Tokens.VerificationTTL)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricEmailVerificationRequest)
	e.emit(ctx, TopicVerificationRequest, Event{
		Action:   "verification_request",
		Endpoint: "request-email-verification",
		ClientIP: req.ClientIP,
		UserID:   user.ID,
		Email:    user.Email,
		Success:  true,
		Metadata: map[string]string{"verification_token": clear},
	})

	return accepted, nil
}

func (e *Engine) handleVerifyEmail(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	clear, _ := req.String("token")

	tok, err := e.adapter.ConsumeToken(ctx, token.Hash(clear), TokenEmailVerification, e.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	user, err := e.adapter.UserByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		user.UpdatedAt = e.now()
		if err := e.adapter.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
	}

	e.metrics.Inc(MetricEmailVerified)
	e.emit(ctx, TopicEmailVerified, Event{
		Action:   "email_verified",
		Endpoint: "verify-email",
		ClientIP: req.ClientIP,
		UserID:   user.ID,
		Email:    user.Email,
		Success:  true,
	})

	return &Response{
		Status: http.StatusOK,
		Body:   statusBody{Status: true},
	}, nil
}
