// Package router implements the engine's pattern-based route matcher.
//
// Patterns are slash-separated segment lists. A segment is either a
// literal, a ":name" capture, or a single trailing "*" that matches any
// remaining suffix and captures nothing. Matching is
// first-registered-first-matched with no specificity ranking: callers must
// register more specific patterns before wildcard ones, and a wildcard
// registered first will shadow later routes. That ordering contract is
// deliberate and load-bearing.
package router

import "strings"

// Params holds ":name" captures from a matched path.
type Params map[string]string

// Route is one registered pattern. Name is a stable identifier used as
// the rate-limit endpoint key and in audit payloads.
type Route[H any] struct {
	Method  string
	Pattern string
	Name    string
	Handler H

	segments []string
	wildcard bool
}

// Router matches methods and paths against registered routes in
// registration order. Registration happens once during engine
// construction; Match is safe for concurrent use afterwards.
type Router[H any] struct {
	routes []*Route[H]
}

// New returns an empty Router.
func New[H any]() *Router[H] {
	return &Router[H]{}
}

// Register appends a route. Pattern segments after a "*" are ignored; the
// wildcard always terminates the pattern.
func (r *Router[H]) Register(method, pattern, name string, handler H) {
	segments := splitPath(pattern)

	wildcard := false
	for i, seg := range segments {
		if seg == "*" {
			wildcard = true
			segments = segments[:i]
			break
		}
	}

	r.routes = append(r.routes, &Route[H]{
		Method:   strings.ToUpper(method),
		Pattern:  pattern,
		Name:     name,
		Handler:  handler,
		segments: segments,
		wildcard: wildcard,
	})
}

// Match returns the first registered route matching method and path,
// together with its captured parameters.
func (r *Router[H]) Match(method, path string) (*Route[H], Params, bool) {
	method = strings.ToUpper(method)
	segments := splitPath(path)

	for _, route := range r.routes {
		if route.Method != method {
			continue
		}
		if params, ok := route.match(segments); ok {
			return route, params, true
		}
	}

	return nil, nil, false
}

func (rt *Route[H]) match(path []string) (Params, bool) {
	if rt.wildcard {
		if len(path) < len(rt.segments) {
			return nil, false
		}
	} else if len(path) != len(rt.segments) {
		return nil, false
	}

	params := Params{}
	for i, seg := range rt.segments {
		switch {
		case strings.HasPrefix(seg, ":"):
			if path[i] == "" {
				return nil, false
			}
			params[seg[1:]] = path[i]
		case seg != path[i]:
			return nil, false
		}
	}

	return params, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
