package adapters

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/toyz/nem/pkg/nem"
)

// FiberAdapter implements nem.Transport for Fiber v2
type FiberAdapter struct {
	app *fiber.App

	once    sync.Once
	handler http.HandlerFunc

	mu       sync.RWMutex
	renderer nem.ViewEngine
	onError  nem.ErrorHandlerFunc
}

// NewFiberAdapter creates a new Fiber app wrapped in an adapter. The
// config's error handler is replaced by the adapter's.
func NewFiberAdapter(config ...fiber.Config) *FiberAdapter {
	fa := &FiberAdapter{}
	cfg := fiber.Config{DisableStartupMessage: true}
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg.ErrorHandler = fa.handleError
	fa.app = fiber.New(cfg)
	return fa
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	fa := NewFiberAdapter()
	fa.app.Use(recover.New())
	return fa
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

// Handle registers a route with the Fiber app
func (fa *FiberAdapter) Handle(method, path string, handler nem.TransportHandler) {
	fiberPath, wildcard := wildcardName(path, func(string) string { return "*" })
	fa.app.Add(method, fiberPath, func(c *fiber.Ctx) error {
		res := &fiberResponse{ctx: c, adapter: fa}
		return handler(newFiberRequest(c, wildcard), res)
	})
}

// SetErrorHandler installs the handler for unmatched routes and errors
// routes return unhandled
func (fa *FiberAdapter) SetErrorHandler(handler nem.ErrorHandlerFunc) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.onError = handler
}

// SetRenderer installs the view engine
func (fa *FiberAdapter) SetRenderer(engine nem.ViewEngine) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.renderer = engine
}

// Serve serves connections accepted on l
func (fa *FiberAdapter) Serve(l net.Listener) error {
	return fa.app.Listener(l)
}

// Shutdown stops the server gracefully
func (fa *FiberAdapter) Shutdown(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// ServeHTTP dispatches a net/http request through Fiber
func (fa *FiberAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fa.once.Do(func() {
		fa.handler = adaptor.FiberApp(fa.app)
	})
	fa.handler(w, r)
}

func (fa *FiberAdapter) handleError(c *fiber.Ctx, err error) error {
	fa.mu.RLock()
	onError := fa.onError
	fa.mu.RUnlock()

	if onError != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			err = nem.NewHTTPError(fe.Code, fe.Message)
		}
		res := &fiberResponse{ctx: c, adapter: fa}
		if onError(err, newFiberRequest(c, ""), res, noop) == nil {
			return nil
		}
	}
	var he *nem.HTTPError
	if errors.As(err, &he) {
		return c.Status(he.Code).SendString(he.Message)
	}
	return fiber.DefaultErrorHandler(c, err)
}

// fiberRequest implements nem.Request for Fiber
type fiberRequest struct {
	sideChannel
	ctx      *fiber.Ctx
	wildcard string

	once sync.Once
	body []byte
}

func newFiberRequest(c *fiber.Ctx, wildcard string) *fiberRequest {
	return &fiberRequest{
		sideChannel: sideChannel{fallback: func(key string) any { return c.Locals(key) }},
		ctx:         c,
		wildcard:    wildcard,
	}
}

func (r *fiberRequest) Context() context.Context { return r.ctx.UserContext() }
func (r *fiberRequest) Method() string           { return r.ctx.Method() }
func (r *fiberRequest) Path() string             { return r.ctx.Path() }

func (r *fiberRequest) Param(name string) (string, bool) {
	if name != "" && name == r.wildcard {
		return r.ctx.Params("*"), true
	}
	for _, p := range r.ctx.Route().Params {
		if p == name {
			return r.ctx.Params(name), true
		}
	}
	return "", false
}

func (r *fiberRequest) Params() map[string]string {
	params := make(map[string]string)
	for k, v := range r.ctx.AllParams() {
		if (k == "*" || k == "*1") && r.wildcard != "" {
			k = r.wildcard
		}
		params[k] = v
	}
	return params
}

func (r *fiberRequest) Query(name string) (string, bool) {
	args := r.ctx.Context().QueryArgs()
	if !args.Has(name) {
		return "", false
	}
	return string(args.Peek(name)), true
}

func (r *fiberRequest) QueryParams() url.Values {
	values, _ := url.ParseQuery(string(r.ctx.Request().URI().QueryString()))
	return values
}

func (r *fiberRequest) Header(name string) (string, bool) {
	v := r.ctx.Request().Header.Peek(name)
	if v == nil {
		return "", false
	}
	return string(v), true
}

func (r *fiberRequest) Headers() http.Header {
	h := make(http.Header)
	r.ctx.Request().Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})
	return h
}

// Body copies the body since fasthttp reuses its buffers
func (r *fiberRequest) Body() ([]byte, error) {
	r.once.Do(func() {
		r.body = append([]byte(nil), r.ctx.Body()...)
	})
	return r.body, nil
}

func (r *fiberRequest) Bind(v any) error {
	return r.ctx.BodyParser(v)
}

func (r *fiberRequest) Cookie(name string) (*http.Cookie, error) {
	v := r.ctx.Cookies(name)
	if v == "" {
		return nil, http.ErrNoCookie
	}
	return &http.Cookie{Name: name, Value: v}, nil
}

// fiberResponse implements nem.Response for Fiber. Headers are collected in
// an http.Header and copied to the fasthttp response on write.
type fiberResponse struct {
	responseState
	ctx     *fiber.Ctx
	adapter *FiberAdapter
	header  http.Header
	written bool
}

func (r *fiberResponse) StatusCode() int {
	if r.written {
		return r.ctx.Response().StatusCode()
	}
	return r.code()
}

func (r *fiberResponse) Header() http.Header {
	if r.header == nil {
		r.header = make(http.Header)
	}
	return r.header
}

func (r *fiberResponse) ContentType(contentType string) {
	r.Header().Set(fiber.HeaderContentType, contentType)
}

// commit copies headers and status to the fasthttp response
func (r *fiberResponse) commit() {
	for k, vs := range r.header {
		for i, v := range vs {
			if i == 0 {
				r.ctx.Set(k, v)
			} else {
				r.ctx.Append(k, v)
			}
		}
	}
	r.ctx.Status(r.code())
	r.written = true
}

func (r *fiberResponse) Redirect(code int, url string) error {
	r.commit()
	return r.ctx.Redirect(url, code)
}

func (r *fiberResponse) JSON(v any) error {
	ct := r.Header().Get(fiber.HeaderContentType)
	r.commit()
	if ct != "" {
		return r.ctx.JSON(v, ct)
	}
	return r.ctx.JSON(v)
}

func (r *fiberResponse) Send(b []byte) error {
	r.commit()
	return r.ctx.Send(b)
}

func (r *fiberResponse) Render(name string, data any) error {
	r.adapter.mu.RLock()
	engine := r.adapter.renderer
	r.adapter.mu.RUnlock()
	out, err := renderTo(engine, name, data)
	if err != nil {
		return err
	}
	if r.Header().Get(fiber.HeaderContentType) == "" {
		r.ContentType(fiber.MIMETextHTMLCharsetUTF8)
	}
	return r.Send(out)
}

// Stream hands fn a writer fasthttp drains after the handler returned
func (r *fiberResponse) Stream(fn func(w io.Writer, flush func()) error) error {
	r.commit()
	r.ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = fn(w, func() { _ = w.Flush() })
		_ = w.Flush()
	})
	return nil
}

func (r *fiberResponse) SetCookie(cookie *http.Cookie) {
	r.ctx.Cookie(&fiber.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		MaxAge:   cookie.MaxAge,
		Expires:  cookie.Expires,
		Secure:   cookie.Secure,
		HTTPOnly: cookie.HttpOnly,
		SameSite: sameSite(cookie.SameSite),
	})
}

func (r *fiberResponse) Written() bool {
	return r.written || len(r.ctx.Response().Body()) > 0
}

func sameSite(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return fiber.CookieSameSiteStrictMode
	case http.SameSiteNoneMode:
		return fiber.CookieSameSiteNoneMode
	case http.SameSiteLaxMode:
		return fiber.CookieSameSiteLaxMode
	}
	return ""
}

var _ nem.Transport = (*FiberAdapter)(nil)
