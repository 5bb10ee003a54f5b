package authcore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
	"github.com/authcore-dev/authcore/token"
	"github.com/google/uuid"
)

// authBody is the success payload for register, login, and get-session.
type authBody struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// statusBody is the success-shaped payload for operations with no data.
type statusBody struct {
	Status bool `json:"status"`
}

func (e *Engine) handleRegister(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	rawEmail, _ := req.String("email")
	pw, _ := req.String("password")
	name, _ := req.String("name")

	email, err := token.NormalizeEmail(rawEmail)
	if err != nil {
		return nil, NewValidationError(map[string]string{"email": "invalid email address"})
	}
	if err := password.Validate(pw); err != nil {
		return nil, NewValidationError(map[string]string{"password": err.Error()})
	}

	hash, err := e.hasher.Hash(pw)
	if err != nil {
		return nil, err
	}

	now := e.now()
	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &Credential{
		UserID:       user.ID,
		PasswordHash: hash,
		UpdatedAt:    now,
	}

	// The adapter's uniqueness constraint is the arbiter under
	// concurrent registration for the same email.
	if err := e.adapter.CreateUser(ctx, user, cred); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emit(ctx, TopicRegister, Event{
				Action:   "register",
				Endpoint: "register",
				ClientIP: req.ClientIP,
				Email:    email,
				Success:  false,
				Error:    string(CodeEmailExists),
			})
			return nil, ErrEmailExists
		}
		return nil, err
	}

	verification, err := e.issueToken(ctx, user.ID, TokenEmailVerification, e.config.Tokens.VerificationTTL)
	if err != nil {
		return nil, err
	}

	sess, sessionData, err := e.createSession(ctx, user, req)
	if err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, TopicRegister, Event{
		Action:    "register",
		Endpoint:  "register",
		ClientIP:  req.ClientIP,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sess.ID,
		Success:   true,
		// The clear verification token exists only here and in the
		// notification listener that mails the link.
		Metadata: map[string]string{"verification_token": verification},
	})

	return &Response{
		Status:      http.StatusCreated,
		Body:        authBody{User: user, Session: sess},
		SessionData: sessionData,
	}, nil
}

// issueToken creates a single-use token row and returns the clear value,
// which is never persisted and never returned to the HTTP caller.
func (e *Engine) issueToken(ctx context.Context, userID string, typ TokenType, ttl time.Duration) (string, error) {
	clear, err := token.New()
	if err != nil {
		return "", err
	}

	now := e.now()
	if err := e.adapter.CreateToken(ctx, &Token{
		Hash:      token.Hash(clear),
		Type:      typ,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}); err != nil {
		return "", err
	}

	return clear, nil
}
