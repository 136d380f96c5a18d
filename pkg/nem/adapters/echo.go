package adapters

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/toyz/nem/pkg/nem"
)

// EchoAdapter implements nem.Transport for Echo v4
type EchoAdapter struct {
	engine *echo.Echo

	mu       sync.RWMutex
	renderer nem.ViewEngine
	onError  nem.ErrorHandlerFunc
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	ea := &EchoAdapter{engine: e}
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = echoRenderer{ea}
	e.HTTPErrorHandler = ea.handleError
	return ea
}

// NewDefaultEchoAdapter creates a new Echo adapter with panic recovery and
// trailing slash removal
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	return NewEchoAdapter(e)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// Handle registers a route with the Echo server
func (ea *EchoAdapter) Handle(method, path string, handler nem.TransportHandler) {
	echoPath, wildcard := wildcardName(path, func(string) string { return "*" })
	ea.engine.Add(method, echoPath, func(c echo.Context) error {
		return handler(newEchoRequest(c, wildcard), &echoResponse{ctx: c})
	})
}

// SetErrorHandler installs the handler for errors Echo raises itself, such
// as unmatched routes, and errors routes return unhandled
func (ea *EchoAdapter) SetErrorHandler(handler nem.ErrorHandlerFunc) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.onError = handler
}

// SetRenderer installs the view engine
func (ea *EchoAdapter) SetRenderer(engine nem.ViewEngine) {
	ea.mu.Lock()
	defer ea.mu.Unlock()
	ea.renderer = engine
}

// Serve serves connections accepted on l
func (ea *EchoAdapter) Serve(l net.Listener) error {
	ea.engine.Listener = l
	ea.engine.Server.Handler = ea.engine
	return ea.engine.Server.Serve(l)
}

// Shutdown stops the server gracefully
func (ea *EchoAdapter) Shutdown(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// ServeHTTP dispatches a request through Echo
func (ea *EchoAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ea.engine.ServeHTTP(w, r)
}

func (ea *EchoAdapter) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	ea.mu.RLock()
	onError := ea.onError
	ea.mu.RUnlock()

	if onError != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			err = asHTTPError(he.Code, he.Message, he.Internal)
		}
		if onError(err, newEchoRequest(c, ""), &echoResponse{ctx: c}, noop) == nil {
			return
		}
	}
	ea.engine.DefaultHTTPErrorHandler(err, c)
}

type echoRenderer struct {
	adapter *EchoAdapter
}

func (r echoRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.adapter.mu.RLock()
	engine := r.adapter.renderer
	r.adapter.mu.RUnlock()
	out, err := renderTo(engine, name, data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// echoRequest implements nem.Request for Echo
type echoRequest struct {
	sideChannel
	ctx      echo.Context
	wildcard string
	body     requestBody
}

func newEchoRequest(c echo.Context, wildcard string) *echoRequest {
	return &echoRequest{
		sideChannel: sideChannel{fallback: c.Get},
		ctx:         c,
		wildcard:    wildcard,
	}
}

func (r *echoRequest) Context() context.Context { return r.ctx.Request().Context() }
func (r *echoRequest) Method() string           { return r.ctx.Request().Method }
func (r *echoRequest) Path() string             { return r.ctx.Request().URL.Path }

func (r *echoRequest) Param(name string) (string, bool) {
	if name == r.wildcard && name != "" {
		name = "*"
	}
	for i, n := range r.ctx.ParamNames() {
		if n == name {
			return r.ctx.ParamValues()[i], true
		}
	}
	return "", false
}

func (r *echoRequest) Params() map[string]string {
	names, values := r.ctx.ParamNames(), r.ctx.ParamValues()
	params := make(map[string]string, len(names))
	for i, n := range names {
		if n == "*" && r.wildcard != "" {
			n = r.wildcard
		}
		if i < len(values) {
			params[n] = values[i]
		}
	}
	return params
}

func (r *echoRequest) Query(name string) (string, bool) {
	return firstValue(r.ctx.QueryParams(), name)
}

func (r *echoRequest) QueryParams() url.Values { return r.ctx.QueryParams() }

func (r *echoRequest) Header(name string) (string, bool) {
	return headerValue(r.ctx.Request().Header, name)
}

func (r *echoRequest) Headers() http.Header { return r.ctx.Request().Header }

func (r *echoRequest) Body() ([]byte, error) {
	return r.body.read(r.ctx.Request())
}

func (r *echoRequest) Bind(v any) error {
	return r.body.bind(r.ctx.Request(), func() error {
		return (&echo.DefaultBinder{}).BindBody(r.ctx, v)
	})
}

func (r *echoRequest) Cookie(name string) (*http.Cookie, error) {
	return r.ctx.Cookie(name)
}

// echoResponse implements nem.Response for Echo
type echoResponse struct {
	responseState
	ctx echo.Context
}

func (r *echoResponse) StatusCode() int {
	if r.ctx.Response().Committed {
		return r.ctx.Response().Status
	}
	return r.code()
}

func (r *echoResponse) Header() http.Header { return r.ctx.Response().Header() }

func (r *echoResponse) ContentType(contentType string) {
	r.Header().Set(echo.HeaderContentType, contentType)
}

func (r *echoResponse) Redirect(code int, url string) error {
	return r.ctx.Redirect(code, url)
}

func (r *echoResponse) JSON(v any) error {
	return r.ctx.JSON(r.code(), v)
}

func (r *echoResponse) Send(b []byte) error {
	resp := r.ctx.Response()
	resp.WriteHeader(r.code())
	_, err := resp.Write(b)
	return err
}

func (r *echoResponse) Render(name string, data any) error {
	return r.ctx.Render(r.code(), name, data)
}

func (r *echoResponse) Stream(fn func(w io.Writer, flush func()) error) error {
	resp := r.ctx.Response()
	resp.WriteHeader(r.code())
	resp.Flush()
	return fn(resp, resp.Flush)
}

func (r *echoResponse) SetCookie(cookie *http.Cookie) { r.ctx.SetCookie(cookie) }

func (r *echoResponse) Written() bool { return r.ctx.Response().Committed }

var _ nem.Transport = (*EchoAdapter)(nil)
