package router

import "testing"

func TestRouter_LiteralMatch(t *testing.T) {
	r := New[string]()
	r.Register("POST", "/auth/login", "login", "login-handler")
	r.Register("GET", "/auth/me", "get-session", "me-handler")

	route, params, ok := r.Match("POST", "/auth/login")
	if !ok {
		t.Fatal("expected match")
	}
	if route.Name != "login" || route.Handler != "login-handler" {
		t.Fatalf("matched wrong route: %+v", route)
	}
	if len(params) != 0 {
		t.Fatalf("literal match captured params: %v", params)
	}

	if _, _, ok := r.Match("GET", "/auth/login"); ok {
		t.Fatal("method mismatch should not match")
	}
	if _, _, ok := r.Match("POST", "/auth/unknown"); ok {
		t.Fatal("unknown path should not match")
	}
}

func TestRouter_MethodCaseInsensitive(t *testing.T) {
	r := New[int]()
	r.Register("post", "/auth/login", "login", 1)

	if _, _, ok := r.Match("POST", "/auth/login"); !ok {
		t.Fatal("lowercase registration should match uppercase method")
	}
	if _, _, ok := r.Match("Post", "/auth/login"); !ok {
		t.Fatal("mixed-case method should match")
	}
}

func TestRouter_ParamCapture(t *testing.T) {
	r := New[int]()
	r.Register("GET", "/auth/sessions/:id", "session-by-id", 1)

	route, params, ok := r.Match("GET", "/auth/sessions/abc123")
	if !ok {
		t.Fatal("expected match")
	}
	if route.Name != "session-by-id" {
		t.Fatalf("matched %q", route.Name)
	}
	if params["id"] != "abc123" {
		t.Fatalf("params = %v", params)
	}

	// An empty segment does not satisfy a capture.
	if _, _, ok := r.Match("GET", "/auth/sessions//"); ok {
		t.Fatal("empty capture segment matched")
	}
}

func TestRouter_FirstRegisteredWins(t *testing.T) {
	r := New[string]()
	r.Register("GET", "/auth/:resource", "by-param", "param")
	r.Register("GET", "/auth/sessions", "literal", "literal")

	route, _, ok := r.Match("GET", "/auth/sessions")
	if !ok {
		t.Fatal("expected match")
	}
	// Registration order decides; the earlier capture route shadows the
	// later literal.
	if route.Name != "by-param" {
		t.Fatalf("matched %q, want by-param", route.Name)
	}
}

func TestRouter_Wildcard(t *testing.T) {
	r := New[int]()
	r.Register("GET", "/auth/admin/*", "admin", 1)

	for _, path := range []string{
		"/auth/admin",
		"/auth/admin/users",
		"/auth/admin/users/42/sessions",
	} {
		if _, _, ok := r.Match("GET", path); !ok {
			t.Fatalf("wildcard did not match %q", path)
		}
	}

	if _, _, ok := r.Match("GET", "/auth/other"); ok {
		t.Fatal("wildcard matched outside its prefix")
	}
}

func TestRouter_WildcardShadowsLaterRoutes(t *testing.T) {
	r := New[string]()
	r.Register("GET", "/auth/*", "catch-all", "wild")
	r.Register("GET", "/auth/me", "get-session", "me")

	route, _, ok := r.Match("GET", "/auth/me")
	if !ok {
		t.Fatal("expected match")
	}
	if route.Name != "catch-all" {
		t.Fatalf("matched %q, want catch-all", route.Name)
	}
}

func TestRouter_TrailingSlashInsensitive(t *testing.T) {
	r := New[int]()
	r.Register("GET", "/auth/me/", "get-session", 1)

	if _, _, ok := r.Match("GET", "/auth/me"); !ok {
		t.Fatal("trailing slash in pattern should not matter")
	}
	if _, _, ok := r.Match("GET", "auth/me"); !ok {
		t.Fatal("missing leading slash should not matter")
	}
}
