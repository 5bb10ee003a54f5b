package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/authcore-dev/authcore/events"
	"github.com/authcore-dev/authcore/logging"
	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/ratelimit"
	"github.com/authcore-dev/authcore/token"
)

// Builder assembles an Engine. Construction is allocation-only until
// Build, which validates the configuration and wires every component.
type Builder struct {
	config     Config
	adapter    Adapter
	log        logging.Logger
	sink       Sink
	limitStore ratelimit.Store
	now        func() time.Time
}

// New starts a Builder from DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAdapter sets the persistence adapter. Required.
func (b *Builder) WithAdapter(a Adapter) *Builder {
	b.adapter = a
	return b
}

// WithLogger sets the engine logger. Defaults to a nop logger.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.log = l
	return b
}

// WithAuditSink sets the audit sink, implicitly enabling audit dispatch.
func (b *Builder) WithAuditSink(s Sink) *Builder {
	b.sink = s
	b.config.Audit.Enabled = true
	return b
}

// WithRateLimitStore injects a shared counter store (e.g.
// [ratelimit.RedisStore]). Without one the Builder creates a MemoryStore
// whose reaper the Engine owns and stops on Close.
func (b *Builder) WithRateLimitStore(s ratelimit.Store) *Builder {
	b.limitStore = s
	return b
}

// WithClock overrides the engine time source. Test-only.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns an immutable Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.config.Password)
	if err != nil {
		return nil, err
	}

	cookies, err := token.NewCookieCodec(b.config.Session.Secret)
	if err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = logging.Nop{}
	}

	e := &Engine{
		config:  b.config,
		adapter: b.adapter,
		hasher:  hasher,
		cookies: cookies,
		emitter: events.New(log),
		metrics: NewMetrics(b.config.Metrics),
		log:     log,
		now:     b.now,
	}
	if e.now == nil {
		e.now = time.Now
	}

	if b.config.RateLimit.Enabled {
		store := b.limitStore
		if store == nil {
			owned := ratelimit.NewMemoryStore(b.config.RateLimit.ReapInterval)
			e.ownedStore = owned
			store = owned
		}
		e.limiter = ratelimit.New(store)
	}

	e.audit = newAuditDispatcher(b.config.Audit, b.sink)
	if e.audit != nil {
		e.emitter.On("*", func(ctx context.Context, _ string, payload any) error {
			if event, ok := payload.(Event); ok {
				e.audit.Emit(ctx, event)
			}
			return nil
		})
	}

	registerHooks(e.emitter, b.config.Hooks)
	e.buildRoutes()

	return e, nil
}

// registerHooks maps the named config callbacks 1:1 onto emitter topics.
func registerHooks(emitter *events.Emitter, hooks Hooks) {
	bind := func(topic string, hook Hook) {
		if hook == nil {
			return
		}
		emitter.On(topic, func(ctx context.Context, _ string, payload any) error {
			event, ok := payload.(Event)
			if !ok {
				return nil
			}
			return hook(ctx, event)
		})
	}

	bind(TopicRegister, hooks.OnRegister)
	bind(TopicSignIn, hooks.OnSignIn)
	bind(TopicSignOut, hooks.OnSignOut)
	bind(TopicPasswordReset, hooks.OnPasswordReset)
	bind(TopicEmailVerified, hooks.OnEmailVerified)
	bind(TopicAccountDeleted, hooks.OnAccountDeleted)
	bind(TopicRateLimit, hooks.OnRateLimit)
	bind(TopicError, hooks.OnError)
	bind("auth:*", hooks.OnAuthEvent)
}
