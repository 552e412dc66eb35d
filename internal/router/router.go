// Package router provides a declarative, ordered route table that dispatches
// requests by HTTP method and path segments.
//
// Paths are split on "/" with empty segments dropped, so "/status",
// "/status/" and "//status" are the same path. A route matches when the
// method is equal, the segment count is equal and every literal segment is
// equal. Placeholder segments ("{name}") capture the raw segment verbatim.
// The first matching route in table order wins.
package router

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrInvalidRoute is returned for routes with an empty method or a malformed pattern
	ErrInvalidRoute = errors.New("invalid route")
	// ErrDuplicateRoute is returned when two routes share method and pattern
	ErrDuplicateRoute = errors.New("duplicate route")
)

// HandlerFunc handles a matched request
type HandlerFunc func(req *Request) Response

// Route binds a method and a path pattern to a handler
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Request is the dispatcher's view of an inbound request
type Request struct {
	Method   string
	Segments []string
	Params   map[string]string
	Body     io.Reader
}

// Param returns a captured placeholder value
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Response is the outcome of a dispatch. A nil Body means an empty response body.
type Response struct {
	Status int
	Body   any
}

// NotFound is the response for requests no route matches
func NotFound() Response {
	return Response{Status: http.StatusNotFound}
}

type segment struct {
	literal string
	param   string
}

type compiledRoute struct {
	route    Route
	segments []segment
}

// Table is an immutable, ordered set of routes. It is safe for concurrent use.
type Table struct {
	routes []compiledRoute
}

// NewTable compiles routes into a table. Order is preserved and is the
// matching precedence.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{routes: make([]compiledRoute, 0, len(routes))}
	seen := make(map[string]struct{}, len(routes))

	for _, r := range routes {
		if r.Method == "" || r.Handler == nil {
			return nil, fmt.Errorf("%w: %q %q", ErrInvalidRoute, r.Method, r.Pattern)
		}
		segs, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, err
		}

		key := r.Method + " " + shapeKey(segs)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRoute, r.Method, r.Pattern)
		}
		seen[key] = struct{}{}

		t.routes = append(t.routes, compiledRoute{route: r, segments: segs})
	}

	return t, nil
}

// MustNewTable is like NewTable but panics on error. Intended for static tables.
func MustNewTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Routes returns the table's routes in matching order
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	for i, cr := range t.routes {
		out[i] = cr.route
	}
	return out
}

// Match finds the first route matching method and segments
func (t *Table) Match(method string, segments []string) (Route, map[string]string, bool) {
	for _, cr := range t.routes {
		if cr.route.Method != method || len(cr.segments) != len(segments) {
			continue
		}
		params, ok := cr.match(segments)
		if ok {
			return cr.route, params, true
		}
	}
	return Route{}, nil, false
}

// Dispatch resolves the request against the table and runs the matched handler
func (t *Table) Dispatch(method, rawPath string, body io.Reader) Response {
	segments := SplitPath(rawPath)

	route, params, ok := t.Match(method, segments)
	if !ok {
		return NotFound()
	}

	return route.Handler(&Request{
		Method:   method,
		Segments: segments,
		Params:   params,
		Body:     body,
	})
}

func (cr compiledRoute) match(segments []string) (map[string]string, bool) {
	var params map[string]string
	for i, s := range cr.segments {
		if s.param != "" {
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[s.param] = segments[i]
			continue
		}
		if s.literal != segments[i] {
			return nil, false
		}
	}
	return params, true
}

// SplitPath splits a URI path on "/" and drops empty segments
func SplitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// JoinPath is the inverse of SplitPath for non-empty segments
func JoinPath(segments []string) string {
	return "/" + strings.Join(segments, "/")
}

func compilePattern(pattern string) ([]segment, error) {
	parts := SplitPath(pattern)
	segs := make([]segment, 0, len(parts))
	names := make(map[string]struct{})

	for _, p := range parts {
		opening, closing := strings.HasPrefix(p, "{"), strings.HasSuffix(p, "}")
		switch {
		case opening && closing && len(p) > 2:
			name := p[1 : len(p)-1]
			if strings.ContainsAny(name, "{}") {
				return nil, fmt.Errorf("%w: malformed placeholder %q in %q", ErrInvalidRoute, p, pattern)
			}
			if _, dup := names[name]; dup {
				return nil, fmt.Errorf("%w: repeated placeholder %q in %q", ErrInvalidRoute, name, pattern)
			}
			names[name] = struct{}{}
			segs = append(segs, segment{param: name})
		case opening || closing:
			return nil, fmt.Errorf("%w: malformed placeholder %q in %q", ErrInvalidRoute, p, pattern)
		default:
			segs = append(segs, segment{literal: p})
		}
	}

	return segs, nil
}

// shapeKey identifies a pattern independent of placeholder names
func shapeKey(segs []segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteByte('/')
		if s.param != "" {
			b.WriteString("{}")
			continue
		}
		b.WriteString(s.literal)
	}
	return b.String()
}
