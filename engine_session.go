package authcore

import (
	"context"
	"errors"
	"net/http"

	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
)

func (e *Engine) handleLogout(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	done := &Response{
		Status:       http.StatusOK,
		Body:         statusBody{Status: true},
		ClearSession: true,
	}

	// Logout is idempotent: with no resolvable session there is nothing
	// to delete, but the host still clears its cookie.
	user, sess, authErr := e.currentSession(ctx, req)
	if authErr != nil {
		if authErr.Code == CodeNotAuthenticated || authErr.Code == CodeSessionExpired {
			return done, nil
		}
		return nil, authErr
	}

	if err := e.adapter.DeleteSession(ctx, sess.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	e.metrics.Inc(MetricLogout)
	e.emit(ctx, TopicSignOut, Event{
		Action:    "sign_out",
		Endpoint:  "logout",
		ClientIP:  req.ClientIP,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sess.ID,
		Success:   true,
	})

	return done, nil
}

func (e *Engine) handleGetSession(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	user, sess, authErr := e.currentSession(ctx, req)
	if authErr != nil {
		return nil, authErr
	}

	return &Response{
		Status: http.StatusOK,
		Body:   authBody{User: user, Session: sess},
	}, nil
}

type sessionListBody struct {
	Sessions []sessionView `json:"sessions"`
}

// sessionView is a listed session annotated with whether it is the one
// making the request.
type sessionView struct {
	*Session
	Current bool `json:"current"`
}

func (e *Engine) handleListSessions(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	_, current, authErr := e.currentSession(ctx, req)
	if authErr != nil {
		return nil, authErr
	}

	sessions, err := e.adapter.SessionsByUser(ctx, current.UserID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	views := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		if s.Expired(now) {
			continue
		}
		views = append(views, sessionView{Session: s, Current: s.ID == current.ID})
	}

	return &Response{
		Status: http.StatusOK,
		Body:   sessionListBody{Sessions: views},
	}, nil
}

func (e *Engine) handleRevokeSession(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	user, current, authErr := e.currentSession(ctx, req)
	if authErr != nil {
		return nil, authErr
	}

	targetID, _ := req.String("sessionId")
	if targetID == current.ID {
		// Self-revocation goes through logout so the host clears the
		// cookie; a silent self-revoke would strand the caller.
		return nil, NewInvalidInputError("cannot revoke the current session, use logout")
	}

	target, err := e.adapter.SessionByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if target.UserID != user.ID {
		return nil, ErrUnauthorized
	}

	if err := e.adapter.DeleteSession(ctx, target.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	e.metrics.Inc(MetricSessionRevoked)
	e.emit(ctx, TopicSignOut, Event{
		Action:    "session_revoked",
		Endpoint:  "revoke-session",
		ClientIP:  req.ClientIP,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: target.ID,
		Success:   true,
	})

	return &Response{
		Status: http.StatusOK,
		Body:   statusBody{Status: true},
	}, nil
}
