package authcore

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/authcore-dev/authcore/ratelimit"
	"github.com/authcore-dev/authcore/request"
	"github.com/authcore-dev/authcore/router"
)

// handlerFunc is one route handler: a state transition from canonical
// context to canonical response. Domain failures come back as *Error;
// anything else is treated as unexpected.
type handlerFunc func(ctx context.Context, req *request.Context, params router.Params) (*Response, error)

// routeDef binds a route to its validator and handler. validate returns
// per-field messages and runs after rate limiting and route matching,
// before the handler. Rate-limit rules attach by path in ruleForPath so
// throttling can run before route matching.
type routeDef struct {
	validate func(req *request.Context) map[string]string
	handler  handlerFunc
}

func (e *Engine) buildRoutes() {
	r := router.New[routeDef]()

	r.Register(http.MethodPost, e.path("/register"), "register", routeDef{
		validate: requireFields("email", "password"),
		handler:  e.handleRegister,
	})
	r.Register(http.MethodPost, e.path("/login"), "login", routeDef{
		validate: requireFields("email", "password"),
		handler:  e.handleLogin,
	})
	r.Register(http.MethodPost, e.path("/logout"), "logout", routeDef{
		handler: e.handleLogout,
	})
	r.Register(http.MethodGet, e.path("/me"), "get-session", routeDef{
		handler: e.handleGetSession,
	})
	r.Register(http.MethodGet, e.path("/sessions"), "list-sessions", routeDef{
		handler: e.handleListSessions,
	})
	r.Register(http.MethodPost, e.path("/sessions/revoke"), "revoke-session", routeDef{
		validate: requireFields("sessionId"),
		handler:  e.handleRevokeSession,
	})
	r.Register(http.MethodPost, e.path("/request-email-verification"), "request-email-verification", routeDef{
		validate: requireFields("email"),
		handler:  e.handleRequestEmailVerification,
	})
	r.Register(http.MethodPost, e.path("/verify-email"), "verify-email", routeDef{
		validate: requireFields("token"),
		handler:  e.handleVerifyEmail,
	})
	r.Register(http.MethodPost, e.path("/request-password-reset"), "request-password-reset", routeDef{
		validate: requireFields("email"),
		handler:  e.handleRequestPasswordReset,
	})
	r.Register(http.MethodPost, e.path("/reset-password"), "reset-password", routeDef{
		validate: requireFields("token", "password"),
		handler:  e.handleResetPassword,
	})
	r.Register(http.MethodDelete, e.path("/account"), "delete-account", routeDef{
		handler: e.handleDeleteAccount,
	})

	e.routes = r
}

func (e *Engine) path(suffix string) string {
	return strings.TrimSuffix(e.config.BasePath, "/") + suffix
}

// Handle runs one request through the pipeline: rate-limit check, route
// match, validation, handler, response shaping. It never panics and never
// leaks internal failure detail; unexpected errors surface as
// INTERNAL_ERROR after being logged and reported on the engine:error
// topic.
func (e *Engine) Handle(ctx context.Context, raw request.Raw) (resp *Response) {
	var endpoint, clientIP string

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			e.log.Error(ctx, "request handler panic", "endpoint", endpoint, "error", err)
			e.emitError(ctx, endpoint, clientIP, err)
			resp = e.errorResponse(ErrInternal)
		}
	}()

	req, err := request.Build(raw)
	if err != nil {
		// Only malformed JSON reaches here; unrecognized content
		// types already degraded to a nil body.
		return e.errorResponse(NewValidationError(map[string]string{
			"body": "malformed JSON body",
		}))
	}
	endpoint = req.Path
	clientIP = req.ClientIP

	// Rate limiting runs before route matching so unmatched paths are
	// still throttled.
	if denied := e.enforceRateLimit(ctx, req); denied != nil {
		return denied
	}

	route, params, ok := e.routes.Match(req.Method, req.Path)
	if !ok {
		return e.errorResponse(ErrEndpointNotFound)
	}
	endpoint = route.Name

	if route.Handler.validate != nil {
		if fields := route.Handler.validate(req); len(fields) > 0 {
			return e.errorResponse(NewValidationError(fields))
		}
	}

	result, err := route.Handler.handler(ctx, req, params)
	if err != nil {
		if domainErr, ok := err.(*Error); ok {
			return e.errorResponse(domainErr)
		}
		e.log.Error(ctx, "handler failed", "endpoint", endpoint, "error", err)
		e.emitError(ctx, endpoint, clientIP, err)
		return e.errorResponse(ErrInternal)
	}

	return result
}

// enforceRateLimit picks the rule for the request path (endpoint-specific
// when the path names a throttled endpoint, the global rule otherwise),
// then checks and records one attempt. Store failures fail open: a broken
// shared store must not take authentication down with it.
func (e *Engine) enforceRateLimit(ctx context.Context, req *request.Context) *Response {
	if !e.config.RateLimit.Enabled {
		return nil
	}

	rule := e.ruleForPath(req.Path)
	key := ratelimit.Key(strings.TrimPrefix(req.Path, "/"), req.ClientIP)

	result, err := e.limiter.Check(ctx, key, rule)
	if err != nil {
		e.log.Warn(ctx, "rate limit check failed", "key", key, "error", err)
		return nil
	}
	if !result.Allowed {
		e.metrics.Inc(MetricRateLimited)
		retryAfter := int(result.ResetAt.Sub(e.now()).Seconds())
		e.emit(ctx, TopicRateLimit, Event{
			Action:   "rate_limited",
			Endpoint: req.Path,
			ClientIP: req.ClientIP,
			Success:  false,
		})
		return e.errorResponse(NewRateLimitError(retryAfter))
	}

	if err := e.limiter.Record(ctx, key, rule); err != nil {
		e.log.Warn(ctx, "rate limit record failed", "key", key, "error", err)
	}
	return nil
}

func (e *Engine) ruleForPath(path string) ratelimit.Rule {
	switch path {
	case e.path("/login"):
		return e.config.RateLimit.Login
	case e.path("/register"):
		return e.config.RateLimit.Registration
	case e.path("/request-password-reset"), e.path("/reset-password"):
		return e.config.RateLimit.PasswordReset
	default:
		return e.config.RateLimit.Global
	}
}

type errorBody struct {
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter *int              `json:"retryAfter,omitempty"`
}

func (e *Engine) errorResponse(domainErr *Error) *Response {
	body := errorBody{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Fields:  domainErr.Fields,
	}
	if domainErr.Code == CodeRateLimited {
		retry := domainErr.RetryAfter
		body.RetryAfter = &retry
	}

	return &Response{
		Status: domainErr.Status,
		Body:   body,
	}
}

// requireFields builds the standard presence validator: each named body
// field must be a non-empty string.
func requireFields(names ...string) func(req *request.Context) map[string]string {
	return func(req *request.Context) map[string]string {
		fields := map[string]string{}
		for _, name := range names {
			if v, ok := req.String(name); !ok || strings.TrimSpace(v) == "" {
				fields[name] = name + " is required"
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return fields
	}
}
