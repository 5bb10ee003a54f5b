package request

import (
	"errors"
	"net/http"
	"testing"
)

func jsonHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

func TestBuild_JSONBody(t *testing.T) {
	h := jsonHeaders()
	h.Set("User-Agent", "curl/8.0")

	ctx, err := Build(Raw{
		Method:     "post",
		Path:       "/auth/login?redirect=%2Fhome",
		RemoteAddr: "192.0.2.10:54321",
		Headers:    h,
		Body:       []byte(`{"email":"a@b.com","password":"secret","remember":true}`),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if ctx.Method != "POST" {
		t.Fatalf("method = %q, want POST", ctx.Method)
	}
	if ctx.Path != "/auth/login" {
		t.Fatalf("path = %q, want /auth/login", ctx.Path)
	}
	if got := ctx.Query.Get("redirect"); got != "/home" {
		t.Fatalf("query redirect = %q, want /home", got)
	}
	if ctx.ClientIP != "192.0.2.10" {
		t.Fatalf("client IP = %q, want 192.0.2.10", ctx.ClientIP)
	}
	if ctx.UserAgent != "curl/8.0" {
		t.Fatalf("user agent = %q", ctx.UserAgent)
	}

	if email, ok := ctx.String("email"); !ok || email != "a@b.com" {
		t.Fatalf("String(email) = %q, %v", email, ok)
	}
	if remember, ok := ctx.Bool("remember"); !ok || !remember {
		t.Fatalf("Bool(remember) = %v, %v", remember, ok)
	}
	if _, ok := ctx.String("remember"); ok {
		t.Fatal("String on a boolean field should report absence")
	}
}

func TestBuild_MalformedJSON(t *testing.T) {
	_, err := Build(Raw{
		Method:  "POST",
		Path:    "/auth/login",
		Headers: jsonHeaders(),
		Body:    []byte(`{"email":`),
	})
	if !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("expected ErrMalformedBody, got %v", err)
	}
}

func TestBuild_UnrecognizedContentType(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/octet-stream")

	ctx, err := Build(Raw{
		Method:  "POST",
		Path:    "/auth/login",
		Headers: h,
		Body:    []byte{0xde, 0xad},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if ctx.Body != nil {
		t.Fatal("unrecognized content type should leave body nil")
	}
}

func TestBuild_FormBody(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")

	ctx, err := Build(Raw{
		Method:  "POST",
		Path:    "/auth/login",
		Headers: h,
		Body:    []byte("email=a%40b.com&password=secret"),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if email, ok := ctx.String("email"); !ok || email != "a@b.com" {
		t.Fatalf("String(email) = %q, %v", email, ok)
	}
}

func TestBuild_ForwardedFor(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"single hop", "203.0.113.7", "10.0.0.1:1234", "203.0.113.7"},
		{"proxy chain takes first", "203.0.113.7, 10.0.0.2, 10.0.0.3", "10.0.0.1:1234", "203.0.113.7"},
		{"absent falls back to peer", "", "10.0.0.1:1234", "10.0.0.1"},
		{"peer without port", "", "10.0.0.1", "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.forwarded != "" {
				h.Set("X-Forwarded-For", tc.forwarded)
			}

			ctx, err := Build(Raw{Method: "GET", Path: "/auth/me", RemoteAddr: tc.remoteAddr, Headers: h})
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			if ctx.ClientIP != tc.want {
				t.Fatalf("client IP = %q, want %q", ctx.ClientIP, tc.want)
			}
		})
	}
}

func TestBuild_EmptyPath(t *testing.T) {
	ctx, err := Build(Raw{Method: "GET", Path: ""})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if ctx.Path != "/" {
		t.Fatalf("path = %q, want /", ctx.Path)
	}
}
