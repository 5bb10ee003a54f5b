package authcore

import (
	"context"
	"net/http"

	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
)

func (e *Engine) handleDeleteAccount(ctx context.Context, req *request.Context, _ router.Params) (*Response, error) {
	user, sess, authErr := e.currentSession(ctx, req)
	if authErr != nil {
		return nil, authErr
	}

	// Cascade: the adapter removes credential, sessions, and outstanding
	// tokens with the user row.
	if err := e.adapter.DeleteUser(ctx, user.ID); err != nil {
		return nil, err
	}

	e.metrics.Inc(MetricAccountDeleted)
	e.emit(ctx, TopicAccountDeleted, Event{
		Action:    "account_deleted",
		Endpoint:  "delete-account",
		ClientIP:  req.ClientIP,
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: sess.ID,
		Success:   true,
	})

	return &Response{
		Status:       http.StatusOK,
		Body:         statusBody{Status: true},
		ClearSession: true,
	}, nil
}
