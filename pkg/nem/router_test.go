package nem

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	handlers map[string]TransportHandler
	onError  ErrorHandlerFunc
	renderer ViewEngine
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{handlers: map[string]TransportHandler{}}
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Handle(method, path string, handler TransportHandler) {
	t.handlers[method+" "+path] = handler
}

func (t *recordingTransport) SetErrorHandler(h ErrorHandlerFunc)  { t.onError = h }
func (t *recordingTransport) SetRenderer(engine ViewEngine)       { t.renderer = engine }
func (t *recordingTransport) Serve(net.Listener) error            { return nil }
func (t *recordingTransport) Shutdown(context.Context) error      { return nil }
func (t *recordingTransport) ServeHTTP(http.ResponseWriter, *http.Request) {}

func (t *recordingTransport) call(method, path string) (*fakeRequest, error) {
	h, ok := t.handlers[method+" "+path]
	if !ok {
		return nil, errors.New("no route " + method + " " + path)
	}
	req := newFakeRequest(method, path)
	return req, h(req, newFakeResponse())
}

func recordHandler(tr *chainTrace, name string) HandlerFunc {
	return func(_ Request, _ Response, next Next) error {
		*tr = append(*tr, name)
		return next()
	}
}

func TestRouterMiddlewareSnapshot(t *testing.T) {
	transport := newRecordingTransport()
	router := newRouter(&routeTable{transport: transport})
	var tr chainTrace

	router.Use(recordHandler(&tr, "root-1"))
	api := router.Group("/api")
	router.Use(recordHandler(&tr, "root-2"))
	api.Use(recordHandler(&tr, "api"))

	api.Get("/users", recordHandler(&tr, "users"))
	router.Get("/health", recordHandler(&tr, "health"))

	_, err := transport.call(http.MethodGet, "/api/users")
	require.NoError(t, err)
	assert.Equal(t, []string{"root-1", "api", "users"}, []string(tr), "root middleware added after Group does not reach the group")

	tr = nil
	_, err = transport.call(http.MethodGet, "/health")
	require.NoError(t, err)
	assert.Equal(t, []string{"root-1", "root-2", "health"}, []string(tr))
}

func TestRouterRoutes(t *testing.T) {
	transport := newRecordingTransport()
	router := newRouter(&routeTable{transport: transport})
	v1 := router.Group("/v1").Group("/items")
	assert.Equal(t, "/v1/items", v1.Prefix())

	v1.Handle(MethodAll, "/:id", recordHandler(new(chainTrace), "item"))
	v1.Post("/", recordHandler(new(chainTrace), "create"))

	routes := router.Routes()
	require.Len(t, routes, len(allMethods)+1)
	for _, r := range routes {
		if r.Method == http.MethodPost && r.Path == "/v1/items" {
			continue
		}
		assert.Equal(t, "/v1/items/:id", r.Path)
	}
	assert.Contains(t, transport.handlers, "DELETE /v1/items/:id")
	assert.Contains(t, transport.handlers, "POST /v1/items")
}

func TestRouterRouteKeyAndErrors(t *testing.T) {
	transport := newRecordingTransport()
	table := &routeTable{transport: transport}
	router := newRouter(table)
	boom := errors.New("boom")

	router.Get("/fail/:id", func(Request, Response, Next) error { return boom })

	req, err := transport.call(http.MethodGet, "/fail/:id")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "/fail/:id", RouteOf(req))

	var handled error
	table.setOnError(func(err error, _ Request, _ Response) error {
		handled = err
		return nil
	})
	_, err = transport.call(http.MethodGet, "/fail/:id")
	assert.NoError(t, err)
	assert.ErrorIs(t, handled, boom)
}

func TestRouterUseError(t *testing.T) {
	transport := newRecordingTransport()
	router := newRouter(&routeTable{transport: transport})
	var tr chainTrace

	router.Use(func(Request, Response, Next) error { return ErrUnauthorized() })
	router.UseError(func(err error, _ Request, _ Response, next Next) error {
		tr = append(tr, "recovered "+err.Error())
		return next()
	})
	router.Get("/", recordHandler(&tr, "index"))

	_, err := transport.call(http.MethodGet, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"recovered Unauthorized", "index"}, []string(tr))
}

func TestJoinPaths(t *testing.T) {
	tests := []struct {
		parts    []string
		expected string
	}{
		{parts: nil, expected: "/"},
		{parts: []string{"/", "/"}, expected: "/"},
		{parts: []string{"/api/", "/users"}, expected: "/api/users"},
		{parts: []string{"api", "", "users/:id"}, expected: "/api/users/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, JoinPaths(tt.parts...), tt.parts)
	}
}
