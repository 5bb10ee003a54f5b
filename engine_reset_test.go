package authcore_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/authcore-dev/authcore"
)

// captureResetToken subscribes for the clear reset token that a real
// deployment would email out.
func captureResetToken(env *testEnv) func() string {
	var mu sync.Mutex
	var tok string

	env.engine.Emitter().On("auth:reset_request", func(_ context.Context, _ string, payload any) error {
		if event, ok := payload.(authcore.Event); ok {
			mu.Lock()
			tok = event.Metadata["reset_token"]
			mu.Unlock()
		}
		return nil
	})

	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return tok
	}
}

func TestPasswordReset_FullFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(testEmail, testPassword)
	lastToken := captureResetToken(env)

	resp := env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	if resp.Status != http.StatusOK {
		t.Fatalf("request status = %d, body = %+v", resp.Status, resp.Body)
	}

	tok := lastToken()
	if tok == "" {
		t.Fatal("no reset token emitted")
	}

	const newPassword = "N3w-Str0ng-Secret!"
	reset := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    tok,
		"password": newPassword,
	}, "")
	if reset.Status != http.StatusOK {
		t.Fatalf("reset status = %d, body = %+v", reset.Status, reset.Body)
	}

	// The old password is dead, the new one works.
	old := env.login(testEmail, testPassword)
	assertError(t, old, http.StatusUnauthorized, authcore.CodeInvalidCredentials)
	fresh := env.login(testEmail, newPassword)
	if fresh.Status != http.StatusOK {
		t.Fatalf("new password login = %d, body = %+v", fresh.Status, fresh.Body)
	}

	// Every session from before the reset is invalidated.
	me := env.do("GET", "/auth/me", nil, reg.SessionData.Token)
	assertError(t, me, http.StatusUnauthorized, authcore.CodeNotAuthenticated)

	// The token is single use.
	replay := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    tok,
		"password": "An0ther-Secret-9!",
	}, "")
	assertError(t, replay, http.StatusBadRequest, authcore.CodeInvalidToken)
}

func TestPasswordReset_UnknownEmailIndistinguishable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(testEmail, testPassword)

	known := env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	unknown := env.do("POST", "/auth/request-password-reset", map[string]any{"email": "nobody@example.com"}, "")
	invalid := env.do("POST", "/auth/request-password-reset", map[string]any{"email": "not-an-email"}, "")

	for _, resp := range []*authcore.Response{known, unknown, invalid} {
		if resp.Status != http.StatusOK {
			t.Fatalf("status = %d, want uniform 200", resp.Status)
		}
	}
}

func TestPasswordReset_NewRequestInvalidatesOldToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(testEmail, testPassword)
	lastToken := captureResetToken(env)

	env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	first := lastToken()

	env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	second := lastToken()

	if first == "" || second == "" || first == second {
		t.Fatalf("expected two distinct tokens, got %q and %q", first, second)
	}

	stale := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    first,
		"password": "N3w-Str0ng-Secret!",
	}, "")
	assertError(t, stale, http.StatusBadRequest, authcore.CodeInvalidToken)
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(testEmail, testPassword)
	lastToken := captureResetToken(env)

	env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	tok := lastToken()

	// Default reset TTL is one hour.
	env.advance(2 * time.Hour)

	resp := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    tok,
		"password": "N3w-Str0ng-Secret!",
	}, "")
	assertError(t, resp, http.StatusBadRequest, authcore.CodeInvalidToken)
}

func TestPasswordReset_ClearsLockout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(testEmail, testPassword)
	lastToken := captureResetToken(env)

	// Lock the account.
	for i := 0; i < 5; i++ {
		env.login(testEmail, "Wr0ng-Passw0rd!")
	}
	locked := env.login(testEmail, testPassword)
	assertError(t, locked, http.StatusForbidden, authcore.CodeAccountLocked)

	// A completed reset is proof of account control and unlocks it.
	env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	reset := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    lastToken(),
		"password": "N3w-Str0ng-Secret!",
	}, "")
	if reset.Status != http.StatusOK {
		t.Fatalf("reset status = %d, body = %+v", reset.Status, reset.Body)
	}

	login := env.login(testEmail, "N3w-Str0ng-Secret!")
	if login.Status != http.StatusOK {
		t.Fatalf("post-reset login = %d, body = %+v", login.Status, login.Body)
	}
}

func TestPasswordReset_WeakReplacementRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(testEmail, testPassword)
	lastToken := captureResetToken(env)

	env.do("POST", "/auth/request-password-reset", map[string]any{"email": testEmail}, "")
	tok := lastToken()

	weak := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    tok,
		"password": "weak",
	}, "")
	assertError(t, weak, http.StatusBadRequest, authcore.CodeInvalidRequest)

	// The policy failure must not consume the token.
	ok := env.do("POST", "/auth/reset-password", map[string]any{
		"token":    tok,
		"password": "N3w-Str0ng-Secret!",
	}, "")
	if ok.Status != http.StatusOK {
		t.Fatalf("reset after weak attempt = %d, body = %+v", ok.Status, ok.Body)
	}
}
