package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/authcore-dev/authcore/events"
	"github.com/authcore-dev/authcore/internal/device"
	"github.com/authcore-dev/authcore/logging"
	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/ratelimit"
	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
	"github.com/authcore-dev/authcore/token"
)

// Engine is the request-handling pipeline: context normalization, rate
// limiting, route dispatch, credential verification, session/token
// lifecycle, and event emission. Construct one through [Builder.Build];
// it is immutable and safe for concurrent use afterwards.
type Engine struct {
	config  Config
	adapter Adapter
	hasher  *password.Hasher
	cookies *token.CookieCodec
	limiter *ratelimit.Limiter
	emitter *events.Emitter
	audit   *auditDispatcher
	metrics *Metrics
	log     logging.Logger
	routes  *router.Router[routeDef]

	// ownedStore is the MemoryStore the Builder created when no store
	// was injected; Close stops its reaper.
	ownedStore *ratelimit.MemoryStore

	now func() time.Time
}

// Emitter exposes the event emitter so hosts can register additional
// listeners beyond the named config hooks.
func (e *Engine) Emitter() *events.Emitter {
	return e.emitter
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events shed under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close releases background resources: the audit dispatcher worker and,
// when the Builder created it, the rate-limit store reaper.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedStore != nil {
		e.ownedStore.Close()
	}
}

// emit stamps and fans out an event. Audit delivery rides the same
// emission through the dispatcher's wildcard subscription, so every emit
// is audited exactly once.
func (e *Engine) emit(ctx context.Context, topic string, event Event) {
	event.Timestamp = e.now()
	e.emitter.Emit(ctx, topic, event)
}

func (e *Engine) emitError(ctx context.Context, endpoint, clientIP string, err error) {
	e.metrics.Inc(MetricInternalError)
	e.emit(ctx, TopicError, Event{
		Action:   "internal_error",
		Endpoint: endpoint,
		ClientIP: clientIP,
		Success:  false,
		Error:    err.Error(),
	})
}

// currentSession authenticates a request from its session cookie token:
// signature check first, then the session row, then expiry. Expired rows
// are lazily deleted on sight. On success the session's last-accessed
// timestamp is bumped best-effort.
func (e *Engine) currentSession(ctx context.Context, req *request.Context) (*User, *Session, *Error) {
	if req.SessionToken == "" {
		return nil, nil, ErrNotAuthenticated
	}

	sessionID, userID, err := e.cookies.Parse(req.SessionToken)
	if err != nil {
		return nil, nil, ErrNotAuthenticated
	}

	sess, err := e.adapter.SessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrNotAuthenticated
		}
		e.log.Error(ctx, "session lookup failed", "error", err)
		return nil, nil, ErrInternal
	}
	if sess.UserID != userID {
		return nil, nil, ErrNotAuthenticated
	}

	now := e.now()
	if sess.Expired(now) {
		_ = e.adapter.DeleteSession(ctx, sess.ID)
		return nil, nil, ErrSessionExpired
	}

	user, err := e.adapter.UserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = e.adapter.DeleteSession(ctx, sess.ID)
			return nil, nil, ErrNotAuthenticated
		}
		e.log.Error(ctx, "user lookup failed", "error", err)
		return nil, nil, ErrInternal
	}

	sess.LastAccessedAt = now
	if err := e.adapter.UpdateSession(ctx, sess); err != nil {
		e.log.Warn(ctx, "session access bump failed", "session_id", sess.ID, "error", err)
	}

	return user, sess, nil
}

// createSession issues a session row plus its signed cookie token.
func (e *Engine) createSession(ctx context.Context, user *User, req *request.Context) (*Session, *SessionData, error) {
	id, err := token.New()
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	sess := &Session{
		ID:             id,
		UserID:         user.ID,
		ExpiresAt:      now.Add(e.config.Session.ExpiresIn),
		CreatedAt:      now,
		LastAccessedAt: now,
		ClientIP:       req.ClientIP,
		UserAgent:      req.UserAgent,
		Device:         device.Derive(req.UserAgent),
	}

	if err := e.adapter.CreateSession(ctx, sess); err != nil {
		return nil, nil, err
	}

	cookieToken, err := e.cookies.Mint(sess.ID, user.ID, sess.ExpiresAt)
	if err != nil {
		_ = e.adapter.DeleteSession(ctx, sess.ID)
		return nil, nil, err
	}

	e.metrics.Inc(MetricSessionCreated)

	return sess, &SessionData{
		UserID:    user.ID,
		SessionID: sess.ID,
		Token:     cookieToken,
	}, nil
}
