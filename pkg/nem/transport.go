package nem

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
)

// Transport is the HTTP server nem mounts compiled routes on. Adapters for
// echo, gin and fiber live in pkg/nem/adapters.
type Transport interface {
	// Name returns the adapter name
	Name() string

	// Handle registers a handler for method and an express-style path
	// ("/users/:id", "/files/*")
	Handle(method, path string, handler TransportHandler)

	// SetErrorHandler installs the handler for errors raised outside routes,
	// e.g. unmatched paths
	SetErrorHandler(handler ErrorHandlerFunc)

	// SetRenderer installs the engine behind Response.Render
	SetRenderer(engine ViewEngine)

	// Serve accepts connections on l until Shutdown
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error

	http.Handler
}

// TransportHandler is what the router hands to the transport for one route
type TransportHandler func(req Request, res Response) error

// Request provides a framework-agnostic view of the incoming request
type Request interface {
	Context() context.Context
	Method() string
	Path() string

	// Path parameters
	Param(name string) (string, bool)
	Params() map[string]string

	// Query parameters
	Query(name string) (string, bool)
	QueryParams() url.Values

	// Headers
	Header(name string) (string, bool)
	Headers() http.Header

	// Body returns the raw body; it can be read more than once
	Body() ([]byte, error)
	// Bind decodes the body into v using the framework binder
	Bind(v any) error

	Cookie(name string) (*http.Cookie, error)

	// Side-channel values (scope, error, parsed body, session)
	Get(key string) any
	Set(key string, value any)
}

// Response provides response writing capabilities
type Response interface {
	Status(code int)
	StatusCode() int
	Header() http.Header
	ContentType(contentType string)

	Redirect(code int, url string) error
	JSON(v any) error
	Send(b []byte) error
	Render(name string, data any) error
	Stream(fn func(w io.Writer, flush func()) error) error

	Locals() map[string]any
	SetCookie(cookie *http.Cookie)

	Written() bool
}

// Side-channel keys set on Request
const (
	ScopeKey    = "nem.scope"
	ErrorKey    = "nem.err"
	BodyKey     = "nem.body"
	SessionKey  = "nem.session"
	ResponseKey = "nem.response"
	RouteKey    = "nem.route"
)

// SessionData is the contract SessionParam, Session and SessionId bindings read
// from. pkg/nem/session provides a cookie backed implementation.
type SessionData interface {
	ID() string
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ViewEngine renders a named template
type ViewEngine interface {
	Render(w io.Writer, name string, data any) error
}

// ScopeOf returns the scope stamped on the request by the route entry handler
func ScopeOf(req Request) *Scope {
	s, _ := req.Get(ScopeKey).(*Scope)
	return s
}

// SessionOf returns the session attached by session middleware, if any
func SessionOf(req Request) (SessionData, bool) {
	s, ok := req.Get(SessionKey).(SessionData)
	return s, ok
}

// RouteOf returns the path pattern of the route serving the request
func RouteOf(req Request) string {
	r, _ := req.Get(RouteKey).(string)
	return r
}

// ResponseOf returns the response stamped on the request by the route entry handler
func ResponseOf(req Request) Response {
	r, _ := req.Get(ResponseKey).(Response)
	return r
}
