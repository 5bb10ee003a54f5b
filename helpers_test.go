package authcore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/authcore-dev/authcore"
	"github.com/authcore-dev/authcore/adapter/memoryadapter"
	"github.com/authcore-dev/authcore/password"
	"github.com/authcore-dev/authcore/request"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const (
	testEmail    = "alice@example.com"
	testPassword = "Str0ng-Passw0rd!"
)

// testEnv wires an engine on the in-memory adapter with a controllable
// clock. The clock starts at the real time because cookie signatures are
// validated against the wall clock.
type testEnv struct {
	t      *testing.T
	engine *authcore.Engine
	store  *memoryadapter.Store

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T, mutate func(*authcore.Config)) *testEnv {
	t.Helper()

	cfg := authcore.DefaultConfig()
	cfg.BasePath = "/auth"
	cfg.Session.Secret = testSecret
	cfg.RateLimit.Enabled = false
	// Cheap argon2 parameters keep the flow tests fast.
	cfg.Password = password.Params{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	env := &testEnv{
		t:     t,
		store: memoryadapter.New(),
		now:   time.Now(),
	}

	engine, err := authcore.New().
		WithConfig(cfg).
		WithAdapter(env.store).
		WithClock(env.clock).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	env.engine = engine
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// do runs one request through the engine with a JSON body.
func (e *testEnv) do(method, path string, body map[string]any, sessionToken string) *authcore.Response {
	e.t.Helper()

	var payload []byte
	headers := http.Header{}
	headers.Set("User-Agent", "authcore-test/1.0")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		headers.Set("Content-Type", "application/json")
	}

	return e.engine.Handle(context.Background(), request.Raw{
		Method:       method,
		Path:         path,
		RemoteAddr:   "192.0.2.1:40000",
		Headers:      headers,
		Body:         payload,
		SessionToken: sessionToken,
	})
}

func (e *testEnv) register(email, pw string) *authcore.Response {
	e.t.Helper()

	resp := e.do("POST", "/auth/register", map[string]any{
		"email":    email,
		"password": pw,
	}, "")
	if resp.Status != http.StatusCreated {
		e.t.Fatalf("register status = %d, body = %+v", resp.Status, resp.Body)
	}
	if resp.SessionData == nil || resp.SessionData.Token == "" {
		e.t.Fatal("register did not issue a session")
	}
	return resp
}

func (e *testEnv) login(email, pw string) *authcore.Response {
	e.t.Helper()
	return e.do("POST", "/auth/login", map[string]any{
		"email":    email,
		"password": pw,
	}, "")
}

// bodyCode extracts the error code from a shaped error response.
func bodyCode(t *testing.T, resp *authcore.Response) string {
	t.Helper()

	data, err := json.Marshal(resp.Body)
	if err != nil {
		t.Fatalf("marshal response body: %v", err)
	}
	var shaped struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &shaped); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return shaped.Code
}

func assertError(t *testing.T, resp *authcore.Response, status int, code authcore.Code) {
	t.Helper()

	if resp.Status != status {
		t.Fatalf("status = %d, want %d (body %+v)", resp.Status, status, resp.Body)
	}
	if got := bodyCode(t, resp); got != string(code) {
		t.Fatalf("code = %q, want %q", got, code)
	}
}
