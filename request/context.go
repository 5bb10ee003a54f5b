// Package request normalizes a raw transport request into the canonical
// context the engine dispatches on. Host adapters construct a [Raw] from
// their framework's native request and hand it to the engine; they never
// pass framework types across the boundary.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// ErrMalformedBody is returned by Build when the declared content type is
// JSON but the payload does not parse. The dispatcher maps it to a
// BadRequest-class response; it is the only body failure that is an error.
var ErrMalformedBody = errors.New("malformed request body")

// Raw is the transport-level request a host adapter hands to the engine.
// SessionToken is the session cookie value the adapter extracted; cookie
// parsing stays on the adapter's side of the boundary.
type Raw struct {
	Method       string
	Path         string
	RemoteAddr   string
	Headers      http.Header
	Body         []byte
	SessionToken string
}

// Context is the immutable canonical request context. Body is a parsed
// field map (JSON object, urlencoded form, or multipart fields) or nil
// when the payload matched no recognized content type.
type Context struct {
	Method       string
	Path         string
	Query        url.Values
	Headers      http.Header
	Body         map[string]any
	ClientIP     string
	UserAgent    string
	SessionToken string
}

// Build normalizes raw. The path is split from its query string, the
// client IP resolves through X-Forwarded-For before the peer address, and
// the body is parsed by content type.
func Build(raw Raw) (*Context, error) {
	path := raw.Path
	query := url.Values{}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if q, err := url.ParseQuery(path[i+1:]); err == nil {
			query = q
		}
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}

	headers := raw.Headers
	if headers == nil {
		headers = http.Header{}
	}

	body, err := parseBody(headers.Get("Content-Type"), raw.Body)
	if err != nil {
		return nil, err
	}

	return &Context{
		Method:       strings.ToUpper(raw.Method),
		Path:         path,
		Query:        query,
		Headers:      headers,
		Body:         body,
		ClientIP:     clientIP(headers, raw.RemoteAddr),
		UserAgent:    headers.Get("User-Agent"),
		SessionToken: raw.SessionToken,
	}, nil
}

// String returns the named body field when it is a string.
func (c *Context) String(key string) (string, bool) {
	if c.Body == nil {
		return "", false
	}
	v, ok := c.Body[key].(string)
	return v, ok
}

// Bool returns the named body field when it is a boolean.
func (c *Context) Bool(key string) (bool, bool) {
	if c.Body == nil {
		return false, false
	}
	v, ok := c.Body[key].(bool)
	return v, ok
}

func parseBody(contentType string, body []byte) (map[string]any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, nil
	}

	switch {
	case mediaType == "application/json":
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, ErrMalformedBody
		}
		return fields, nil

	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, nil
		}
		fields := make(map[string]any, len(values))
		for key := range values {
			fields[key] = values.Get(key)
		}
		return fields, nil

	case mediaType == "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil, nil
		}
		return parseMultipart(body, boundary), nil
	}

	return nil, nil
}

// parseMultipart extracts form fields only. File parts are read to keep
// the stream consistent but their content is discarded; auth flows never
// need file payloads.
func parseMultipart(body []byte, boundary string) map[string]any {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	fields := make(map[string]any)

	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		if part.FileName() != "" || part.FormName() == "" {
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
			continue
		}

		value, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			break
		}
		fields[part.FormName()] = string(value)
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// clientIP takes the first entry of X-Forwarded-For when present, else the
// host part of the transport peer address.
func clientIP(headers http.Header, remoteAddr string) string {
	if fwd := headers.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
