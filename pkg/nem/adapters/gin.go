package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/toyz/nem/pkg/nem"
)

// GinAdapter implements nem.Transport for Gin
type GinAdapter struct {
	engine *gin.Engine

	mu       sync.RWMutex
	server   *http.Server
	renderer nem.ViewEngine
	onError  nem.ErrorHandlerFunc
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	ga := &GinAdapter{engine: g}
	g.HandleMethodNotAllowed = true
	g.NoRoute(func(c *gin.Context) {
		ga.fail(c, nem.ErrNotFound())
	})
	g.NoMethod(func(c *gin.Context) {
		ga.fail(c, nem.NewHTTPError(http.StatusMethodNotAllowed))
	})
	return ga
}

// NewDefaultGinAdapter creates a new Gin adapter with panic recovery
func NewDefaultGinAdapter() *GinAdapter {
	g := gin.New()
	g.Use(gin.Recovery())
	return NewGinAdapter(g)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// Handle registers a route with the Gin engine. Gin requires named
// catch-alls, so an unnamed "*" becomes "*path".
func (ga *GinAdapter) Handle(method, path string, handler nem.TransportHandler) {
	ginPath, wildcard := wildcardName(path, func(name string) string {
		if name == "*" {
			return "*path"
		}
		return "*" + name
	})
	ga.engine.Handle(method, ginPath, func(c *gin.Context) {
		if err := handler(newGinRequest(c, wildcard), &ginResponse{ctx: c, adapter: ga}); err != nil {
			ga.fail(c, err)
		}
	})
}

// SetErrorHandler installs the handler for unmatched routes and errors
// routes return unhandled
func (ga *GinAdapter) SetErrorHandler(handler nem.ErrorHandlerFunc) {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.onError = handler
}

// SetRenderer installs the view engine
func (ga *GinAdapter) SetRenderer(engine nem.ViewEngine) {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.renderer = engine
}

// Serve serves connections accepted on l
func (ga *GinAdapter) Serve(l net.Listener) error {
	ga.mu.Lock()
	ga.server = &http.Server{Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()
	return server.Serve(l)
}

// Shutdown stops the server gracefully
func (ga *GinAdapter) Shutdown(ctx context.Context) error {
	ga.mu.RLock()
	server := ga.server
	ga.mu.RUnlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// ServeHTTP dispatches a request through Gin
func (ga *GinAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ga.engine.ServeHTTP(w, r)
}

func (ga *GinAdapter) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if c.Writer.Written() {
		return
	}
	ga.mu.RLock()
	onError := ga.onError
	ga.mu.RUnlock()

	if onError != nil && onError(err, newGinRequest(c, ""), &ginResponse{ctx: c, adapter: ga}, noop) == nil {
		return
	}
	he := nem.AsHTTPError(err)
	c.String(he.Code, he.Message)
}

// viewRender adapts a rendered template to gin's render.Render
type viewRender struct {
	body []byte
}

func (v viewRender) Render(w http.ResponseWriter) error {
	_, err := w.Write(v.body)
	return err
}

func (v viewRender) WriteContentType(w http.ResponseWriter) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
}

// ginRequest implements nem.Request for Gin
type ginRequest struct {
	sideChannel
	ctx      *gin.Context
	wildcard string
	body     requestBody
}

func newGinRequest(c *gin.Context, wildcard string) *ginRequest {
	return &ginRequest{
		sideChannel: sideChannel{fallback: func(key string) any {
			v, _ := c.Get(key)
			return v
		}},
		ctx:      c,
		wildcard: wildcard,
	}
}

func (r *ginRequest) Context() context.Context { return r.ctx.Request.Context() }
func (r *ginRequest) Method() string           { return r.ctx.Request.Method }
func (r *ginRequest) Path() string             { return r.ctx.Request.URL.Path }

func (r *ginRequest) ginName(name string) string {
	if name != "" && name == r.wildcard && name == "*" {
		return "path"
	}
	return name
}

func (r *ginRequest) Param(name string) (string, bool) {
	v, ok := r.ctx.Params.Get(r.ginName(name))
	if ok && name == r.wildcard {
		v = strings.TrimPrefix(v, "/")
	}
	return v, ok
}

func (r *ginRequest) Params() map[string]string {
	params := make(map[string]string, len(r.ctx.Params))
	for _, p := range r.ctx.Params {
		name, value := p.Key, p.Value
		if r.wildcard != "" && r.ginName(r.wildcard) == name {
			name, value = r.wildcard, strings.TrimPrefix(value, "/")
		}
		params[name] = value
	}
	return params
}

func (r *ginRequest) Query(name string) (string, bool) { return r.ctx.GetQuery(name) }
func (r *ginRequest) QueryParams() url.Values          { return r.ctx.Request.URL.Query() }

func (r *ginRequest) Header(name string) (string, bool) {
	return headerValue(r.ctx.Request.Header, name)
}

func (r *ginRequest) Headers() http.Header { return r.ctx.Request.Header }

func (r *ginRequest) Body() ([]byte, error) {
	return r.body.read(r.ctx.Request)
}

func (r *ginRequest) Bind(v any) error {
	return r.body.bind(r.ctx.Request, func() error {
		return r.ctx.ShouldBind(v)
	})
}

func (r *ginRequest) Cookie(name string) (*http.Cookie, error) {
	return r.ctx.Request.Cookie(name)
}

// ginResponse implements nem.Response for Gin
type ginResponse struct {
	responseState
	ctx     *gin.Context
	adapter *GinAdapter
}

func (r *ginResponse) StatusCode() int {
	if r.ctx.Writer.Written() {
		return r.ctx.Writer.Status()
	}
	return r.code()
}

func (r *ginResponse) Header() http.Header { return r.ctx.Writer.Header() }

func (r *ginResponse) ContentType(contentType string) {
	r.Header().Set("Content-Type", contentType)
}

func (r *ginResponse) Redirect(code int, url string) error {
	if code < http.StatusMultipleChoices || code > http.StatusPermanentRedirect {
		return fmt.Errorf("cannot redirect with status code %d", code)
	}
	r.ctx.Redirect(code, url)
	return nil
}

func (r *ginResponse) JSON(v any) error {
	r.ctx.JSON(r.code(), v)
	return nil
}

func (r *ginResponse) Send(b []byte) error {
	r.ctx.Writer.WriteHeader(r.code())
	_, err := r.ctx.Writer.Write(b)
	return err
}

func (r *ginResponse) Render(name string, data any) error {
	r.adapter.mu.RLock()
	engine := r.adapter.renderer
	r.adapter.mu.RUnlock()
	out, err := renderTo(engine, name, data)
	if err != nil {
		return err
	}
	r.ctx.Render(r.code(), viewRender{body: out})
	return nil
}

func (r *ginResponse) Stream(fn func(w io.Writer, flush func()) error) error {
	r.ctx.Writer.WriteHeader(r.code())
	r.ctx.Writer.WriteHeaderNow()
	r.ctx.Writer.Flush()
	return fn(r.ctx.Writer, r.ctx.Writer.Flush)
}

func (r *ginResponse) SetCookie(cookie *http.Cookie) { http.SetCookie(r.ctx.Writer, cookie) }

func (r *ginResponse) Written() bool { return r.ctx.Writer.Written() }

var _ nem.Transport = (*GinAdapter)(nil)
